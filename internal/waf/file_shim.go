package waf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
)

const defaultShimPageSize = 100

// FileShim is a testing implementation that keeps IP sets in a JSON file and
// enforces lock tokens the way WAFv2 does.
type FileShim struct {
	filePath string
	pageSize int
	log      logrus.FieldLogger
	mu       sync.Mutex
}

// Ensure FileShim implements Client.
var _ Client = (*FileShim)(nil)

// ShimIPSet is the on-disk form of one IP set.
type ShimIPSet struct {
	Name             string                  `json:"name"`
	ID               string                  `json:"id"`
	ARN              string                  `json:"arn"`
	Description      string                  `json:"description,omitempty"`
	Scope            domain.Scope            `json:"scope"`
	IPAddressVersion domain.IPAddressVersion `json:"ipAddressVersion"`
	Addresses        []string                `json:"addresses"`
	LockToken        string                  `json:"lockToken"`
}

type shimState struct {
	IPSets []*ShimIPSet `json:"ipsets"`
}

// NewFileShim creates a new file-based shim. A missing file reads as an
// empty catalog.
func NewFileShim(filePath string, log logrus.FieldLogger) *FileShim {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileShim{
		filePath: filePath,
		pageSize: defaultShimPageSize,
		log:      log,
	}
}

// WithPageSize sets how many summaries one ListIPSets page holds.
func (f *FileShim) WithPageSize(n int) *FileShim {
	if n > 0 {
		f.pageSize = n
	}
	return f
}

// CreateIPSet adds a set to the file, assigning id, ARN and lock token when
// they are empty.
func (f *FileShim) CreateIPSet(set ShimIPSet) (*ShimIPSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return nil, err
	}
	for _, s := range state.IPSets {
		if s.Name == set.Name && s.Scope == set.Scope {
			return nil, &RejectionError{Code: CodeDuplicateItem, Message: "ip set " + set.Name + " already exists"}
		}
	}

	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.ARN == "" {
		set.ARN = fmt.Sprintf("arn:aws:wafv2:local:000000000000:%s/ipset/%s/%s", scopeSegment(set.Scope), set.Name, set.ID)
	}
	if set.LockToken == "" {
		set.LockToken = uuid.NewString()
	}
	if set.Addresses == nil {
		set.Addresses = []string{}
	}

	state.IPSets = append(state.IPSets, &set)
	if err := f.save(state); err != nil {
		return nil, err
	}
	return &set, nil
}

// ListIPSets returns one page of summaries for scope.
func (f *FileShim) ListIPSets(ctx context.Context, scope domain.Scope, marker string) (*domain.IPSetPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return nil, err
	}

	var inScope []*ShimIPSet
	for _, s := range state.IPSets {
		if s.Scope == scope {
			inScope = append(inScope, s)
		}
	}

	start := 0
	if marker != "" {
		if _, err := fmt.Sscanf(marker, "offset-%d", &start); err != nil || start < 0 || start > len(inScope) {
			return nil, &RejectionError{Code: CodeInvalidParam, Message: "invalid NextMarker " + marker}
		}
	}
	end := min(start+f.pageSize, len(inScope))

	page := &domain.IPSetPage{}
	for _, s := range inScope[start:end] {
		page.IPSets = append(page.IPSets, domain.IPSetSummary{
			Name:        s.Name,
			ID:          s.ID,
			ARN:         s.ARN,
			Description: s.Description,
			LockToken:   s.LockToken,
		})
	}
	if end < len(inScope) {
		page.NextMarker = fmt.Sprintf("offset-%d", end)
	}
	return page, nil
}

// GetIPSet returns a copy of one set with its current lock token.
func (f *FileShim) GetIPSet(ctx context.Context, name string, scope domain.Scope, id string) (*domain.IPSetSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return nil, err
	}
	s := state.find(name, scope, id)
	if s == nil {
		return nil, &RejectionError{Code: CodeNonexistentItem, Message: "ip set " + name + " does not exist"}
	}

	return &domain.IPSetSnapshot{
		Name:             s.Name,
		ID:               s.ID,
		ARN:              s.ARN,
		Description:      s.Description,
		Addresses:        append([]string{}, s.Addresses...),
		IPAddressVersion: s.IPAddressVersion,
		LockToken:        s.LockToken,
		Scope:            s.Scope,
	}, nil
}

// UpdateIPSet replaces the addresses of a set if req.LockToken is current.
func (f *FileShim) UpdateIPSet(ctx context.Context, req domain.SubmissionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return err
	}
	s := state.find(req.Name, req.Scope, req.ID)
	if s == nil {
		return &RejectionError{Code: CodeNonexistentItem, Message: "ip set " + req.Name + " does not exist"}
	}
	if req.LockToken != s.LockToken {
		return &RejectionError{Code: CodeOptimisticLock, Message: "lock token is stale"}
	}

	seen := make(map[string]struct{}, len(req.Addresses))
	for _, addr := range req.Addresses {
		if _, ok := seen[addr]; ok {
			return &RejectionError{Code: CodeDuplicateItem, Message: addr + " is duplicated"}
		}
		seen[addr] = struct{}{}
	}

	s.Addresses = append([]string{}, req.Addresses...)
	s.Description = req.Description
	s.LockToken = uuid.NewString()
	if err := f.save(state); err != nil {
		return err
	}

	f.log.WithFields(logrus.Fields{
		"ipset":     s.Name,
		"addresses": len(s.Addresses),
	}).Debugf("[FileShim] IP set written to %s", f.filePath)
	return nil
}

func (f *FileShim) load() (*shimState, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &shimState{}, nil
		}
		return nil, fmt.Errorf("reading shim file: %w", err)
	}

	var state shimState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing shim file: %w", err)
	}
	return &state, nil
}

func (f *FileShim) save(state *shimState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling shim state: %w", err)
	}
	if err := os.WriteFile(f.filePath, data, 0644); err != nil {
		return fmt.Errorf("writing shim file: %w", err)
	}
	return nil
}

func (s *shimState) find(name string, scope domain.Scope, id string) *ShimIPSet {
	for _, set := range s.IPSets {
		if set.Name == name && set.Scope == scope && set.ID == id {
			return set
		}
	}
	return nil
}

func scopeSegment(scope domain.Scope) string {
	if scope == domain.ScopeCloudFront {
		return "global"
	}
	return "regional"
}
