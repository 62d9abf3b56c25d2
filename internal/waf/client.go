package waf

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
)

// Rejection codes returned by WAFv2 that the update loop classifies.
const (
	CodeOptimisticLock  = "WAFOptimisticLockException"
	CodeLimitsExceeded  = "WAFLimitsExceededException"
	CodeDuplicateItem   = "WAFDuplicateItemException"
	CodeNonexistentItem = "WAFNonexistentItemException"
	CodeInvalidParam    = "WAFInvalidParameterException"
	CodeInternalError   = "WAFInternalErrorException"
)

// Client defines the subset of the WAFv2 API used to manage IP sets.
type Client interface {
	ListIPSets(ctx context.Context, scope domain.Scope, marker string) (*domain.IPSetPage, error)
	GetIPSet(ctx context.Context, name string, scope domain.Scope, id string) (*domain.IPSetSnapshot, error)
	UpdateIPSet(ctx context.Context, req domain.SubmissionRequest) error
}

// RejectionError is a request the remote service refused. Code is the
// service's own error code and is preserved verbatim.
type RejectionError struct {
	Code    string
	Message string
	Err     error
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the rejection is caused by a concurrent writer
// or a transient limit.
func (e *RejectionError) Retryable() bool {
	return e.Code == CodeOptimisticLock || e.Code == CodeLimitsExceeded
}

// RejectionCode returns the remote rejection code carried by err, or "" if
// err is not a remote rejection.
func RejectionCode(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Code
	}
	return ""
}
