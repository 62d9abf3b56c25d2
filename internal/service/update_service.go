package service

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/waf-ipset-manager/internal/backoff"
	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/ipset"
	"github.com/bcnelson/waf-ipset-manager/internal/storage"
	"github.com/bcnelson/waf-ipset-manager/internal/validation"
	"github.com/bcnelson/waf-ipset-manager/internal/waf"
)

// UpdateService adds and removes IP set addresses against WAF, retrying
// when another writer wins the race for the lock token.
type UpdateService struct {
	client waf.Client
	lookup *waf.Lookup
	store  storage.Storage
	policy backoff.Policy
	log    logrus.FieldLogger
}

// NewUpdateService creates a new UpdateService. store may be nil, in which
// case no history is recorded.
func NewUpdateService(client waf.Client, scope domain.Scope, store storage.Storage, policy backoff.Policy, log logrus.FieldLogger) *UpdateService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UpdateService{
		client: client,
		lookup: waf.NewLookup(client, scope),
		store:  store,
		policy: policy,
		log:    log,
	}
}

// AddAddresses parses raw and adds the addresses to the named set.
func (s *UpdateService) AddAddresses(ctx context.Context, name string, raw []string) (*domain.OperationRecord, error) {
	prefixes, err := parseRequest(name, raw)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, name, prefixes, domain.OperationAdd)
}

// RemoveAddresses parses raw and removes the addresses from the named set.
func (s *UpdateService) RemoveAddresses(ctx context.Context, name string, raw []string) (*domain.OperationRecord, error) {
	prefixes, err := parseRequest(name, raw)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, name, prefixes, domain.OperationRemove)
}

func parseRequest(name string, raw []string) ([]netip.Prefix, error) {
	if err := validation.ValidateIPSetName(name); err != nil {
		return nil, validation.NewValidationError("ipset", name, err.Error())
	}
	return validation.ParseAddresses(raw)
}

// Apply runs fetch, mutate and submit until the update is accepted, the
// remote reports it as already applied, a fatal error occurs, or the attempt
// budget is spent. Every attempt works on a freshly fetched snapshot.
func (s *UpdateService) Apply(ctx context.Context, name string, prefixes []netip.Prefix, op domain.Operation) (*domain.OperationRecord, error) {
	if op != domain.OperationAdd && op != domain.OperationRemove {
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidInput, op)
	}

	addresses := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		addresses = append(addresses, p.Masked().String())
	}
	record := &domain.OperationRecord{
		ID:        uuid.New().String(),
		IPSetName: name,
		Operation: op,
		Addresses: addresses,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.recordStart(ctx, record)

	log := s.log.WithFields(logrus.Fields{
		"ipset":        name,
		"operation":    op,
		"operation_id": record.ID,
	})

	status := domain.StatusSuccess
	err := retry.Do(ctx, backoff.New(s.policy), func(ctx context.Context) error {
		record.Attempts++
		noop, err := s.attempt(ctx, name, prefixes, op)
		if noop {
			log.WithField("attempt", record.Attempts).Info("Remote reports the change as already applied")
			status = domain.StatusNoop
		}
		if rej := retryable(err); rej != nil {
			log.WithFields(logrus.Fields{
				"attempt": record.Attempts,
				"code":    rej.Code,
			}).Warn("Update rejected, retrying with a fresh lock token")
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil {
		if retryable(err) != nil {
			err = fmt.Errorf("%w: giving up after %d attempts: %w", domain.ErrConflict, record.Attempts, err)
		}
		log.WithError(err).WithField("attempts", record.Attempts).Error("IP set update failed")
		s.recordFinish(ctx, record, domain.StatusFailed, err)
		return record, err
	}

	log.WithFields(logrus.Fields{
		"attempts": record.Attempts,
		"status":   status,
	}).Info("IP set updated")
	s.recordFinish(ctx, record, status, nil)
	return record, nil
}

// attempt performs one fetch, mutate, submit cycle. noop is true when the
// remote refused the submission because the change is already in place.
func (s *UpdateService) attempt(ctx context.Context, name string, prefixes []netip.Prefix, op domain.Operation) (noop bool, err error) {
	snapshot, err := s.lookup.Find(ctx, name)
	if err != nil {
		return false, err
	}

	var next domain.IPSetSnapshot
	switch op {
	case domain.OperationAdd:
		next, err = ipset.Add(*snapshot, prefixes)
	case domain.OperationRemove:
		next, err = ipset.Remove(*snapshot, prefixes)
	}
	if err != nil {
		return false, err
	}

	if err := s.client.UpdateIPSet(ctx, ipset.ToSubmission(next)); err != nil {
		var rej *waf.RejectionError
		if errors.As(err, &rej) && alreadyApplied(op, rej.Code) {
			return true, nil
		}
		return false, fmt.Errorf("updating ip set %s: %w", name, err)
	}
	return false, nil
}

// alreadyApplied reports whether a submit rejection means the remote already
// holds the requested state.
func alreadyApplied(op domain.Operation, code string) bool {
	switch op {
	case domain.OperationAdd:
		return code == waf.CodeDuplicateItem
	case domain.OperationRemove:
		return code == waf.CodeNonexistentItem
	}
	return false
}

// retryable returns the rejection carried by err if another attempt may
// succeed.
func retryable(err error) *waf.RejectionError {
	var rej *waf.RejectionError
	if errors.As(err, &rej) && rej.Retryable() {
		return rej
	}
	return nil
}

// Describe returns a fresh snapshot of the named set.
func (s *UpdateService) Describe(ctx context.Context, name string) (*domain.IPSetSnapshot, error) {
	if err := validation.ValidateIPSetName(name); err != nil {
		return nil, validation.NewValidationError("ipset", name, err.Error())
	}
	return s.lookup.Find(ctx, name)
}

// Contains reports whether raw, once normalized, is registered in the named
// set.
func (s *UpdateService) Contains(ctx context.Context, name, raw string) (bool, error) {
	prefix, err := validation.ParseAddress(raw)
	if err != nil {
		return false, validation.NewValidationError("address", raw, err.Error())
	}
	snapshot, err := s.Describe(ctx, name)
	if err != nil {
		return false, err
	}
	return ipset.Contains(*snapshot, prefix), nil
}

// History lists recorded operations, newest first.
func (s *UpdateService) History(ctx context.Context, filter domain.OperationFilter) ([]*domain.OperationRecord, error) {
	if s.store == nil {
		return []*domain.OperationRecord{}, nil
	}
	return s.store.ListOperations(ctx, filter)
}

// Operation returns one recorded operation.
func (s *UpdateService) Operation(ctx context.Context, id string) (*domain.OperationRecord, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.GetOperation(ctx, id)
}

func (s *UpdateService) recordStart(ctx context.Context, record *domain.OperationRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.CreateOperation(ctx, record); err != nil {
		s.log.WithError(err).Warn("Failed to record operation")
	}
}

func (s *UpdateService) recordFinish(ctx context.Context, record *domain.OperationRecord, status string, opErr error) {
	now := time.Now().UTC()
	record.Status = status
	record.CompletedAt = &now
	if opErr != nil {
		record.Error = opErr.Error()
	}
	if s.store == nil {
		return
	}
	// The request context may already be cancelled.
	if err := s.store.UpdateOperation(context.WithoutCancel(ctx), record); err != nil {
		s.log.WithError(err).Warn("Failed to update operation record")
	}
}
