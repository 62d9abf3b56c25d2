package domain

import "time"

// Operation is the kind of mutation applied to an IP set.
type Operation string

const (
	OperationAdd    Operation = "ADD"
	OperationRemove Operation = "REMOVE"
)

// Operation statuses.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusNoop    = "noop" // remote reported the change as already applied
	StatusFailed  = "failed"
)

// OperationRecord is the audit trail entry of one add or remove request.
type OperationRecord struct {
	ID          string     `json:"id" db:"id"`
	IPSetName   string     `json:"ipset" db:"ipset_name"`
	Operation   Operation  `json:"operation" db:"operation"`
	Addresses   []string   `json:"addresses" db:"-"`
	Status      string     `json:"status" db:"status"`
	Attempts    int        `json:"attempts" db:"attempts"`
	Error       string     `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// OperationFilter narrows a history listing.
type OperationFilter struct {
	IPSetName string
	Limit     int
	Offset    int
}
