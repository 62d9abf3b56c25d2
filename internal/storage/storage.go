package storage

import (
	"context"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
)

// DefaultListLimit is used when a listing does not ask for a page size.
const DefaultListLimit = 50

// Storage defines the interface for the operation history.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Operations
	CreateOperation(ctx context.Context, op *domain.OperationRecord) error
	GetOperation(ctx context.Context, id string) (*domain.OperationRecord, error)
	ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*domain.OperationRecord, error)
	UpdateOperation(ctx context.Context, op *domain.OperationRecord) error
}
