package waf

import (
	"context"
	"fmt"
	"iter"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
)

// Lookup resolves IP sets by name.
type Lookup struct {
	client Client
	scope  domain.Scope
}

// NewLookup creates a Lookup for sets in the given scope.
func NewLookup(client Client, scope domain.Scope) *Lookup {
	return &Lookup{client: client, scope: scope}
}

// Pages iterates over the remote listing one page at a time. Each call
// starts again from the first page; iteration stops after the first error.
func (l *Lookup) Pages(ctx context.Context) iter.Seq2[*domain.IPSetPage, error] {
	return func(yield func(*domain.IPSetPage, error) bool) {
		marker := ""
		for {
			page, err := l.client.ListIPSets(ctx, l.scope, marker)
			if err != nil {
				yield(nil, fmt.Errorf("listing ip sets: %w", err))
				return
			}
			if !yield(page, nil) {
				return
			}
			// A repeated marker would never terminate.
			if page.NextMarker == "" || page.NextMarker == marker {
				return
			}
			marker = page.NextMarker
		}
	}
}

// Find returns a fresh snapshot of the set named name. The name match is
// exact and case sensitive.
func (l *Lookup) Find(ctx context.Context, name string) (*domain.IPSetSnapshot, error) {
	for page, err := range l.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		for _, summary := range page.IPSets {
			if summary.Name != name {
				continue
			}
			snapshot, err := l.client.GetIPSet(ctx, summary.Name, l.scope, summary.ID)
			if err != nil {
				return nil, fmt.Errorf("getting ip set %s: %w", name, err)
			}
			snapshot.Name = name
			snapshot.Scope = l.scope
			return snapshot, nil
		}
	}
	return nil, &domain.IPSetNotFoundError{Name: name}
}
