package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/storage"
)

// Store is an in-memory operation history. Nothing outlives the process.
type Store struct {
	mu         sync.RWMutex
	operations map[string]*domain.OperationRecord // key: id
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		operations: make(map[string]*domain.OperationRecord),
	}
}

func (s *Store) Close() error { return nil }

// copyRecord keeps callers from mutating stored records.
func copyRecord(op *domain.OperationRecord) *domain.OperationRecord {
	c := *op
	c.Addresses = slices.Clone(op.Addresses)
	if op.CompletedAt != nil {
		t := *op.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (s *Store) CreateOperation(ctx context.Context, op *domain.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.operations[op.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.operations[op.ID] = copyRecord(op)
	return nil
}

func (s *Store) GetOperation(ctx context.Context, id string) (*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, exists := s.operations[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyRecord(op), nil
}

func (s *Store) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ops := make([]*domain.OperationRecord, 0, len(s.operations))
	for _, op := range s.operations {
		if filter.IPSetName != "" && op.IPSetName != filter.IPSetName {
			continue
		}
		ops = append(ops, copyRecord(op))
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].CreatedAt.Equal(ops[j].CreatedAt) {
			return ops[i].ID > ops[j].ID
		}
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	if filter.Offset >= len(ops) {
		return []*domain.OperationRecord{}, nil
	}
	end := filter.Offset + limit
	if end > len(ops) {
		end = len(ops)
	}
	return ops[filter.Offset:end], nil
}

func (s *Store) UpdateOperation(ctx context.Context, op *domain.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.operations[op.ID]; !exists {
		return domain.ErrNotFound
	}
	s.operations[op.ID] = copyRecord(op)
	return nil
}
