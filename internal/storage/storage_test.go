package storage_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/storage"
	"github.com/bcnelson/waf-ipset-manager/internal/storage/memory"
	"github.com/bcnelson/waf-ipset-manager/internal/storage/sql"
)

// Both backends must behave the same way.
func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()

	sqlStore, err := sql.New("sqlite3", filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })

	return map[string]storage.Storage{
		"memory": memory.New(),
		"sqlite": sqlStore,
	}
}

func record(id, ipset string, createdAt time.Time) *domain.OperationRecord {
	return &domain.OperationRecord{
		ID:        id,
		IPSetName: ipset,
		Operation: domain.OperationAdd,
		Addresses: []string{"10.0.0.1/32", "10.0.0.2/32"},
		Status:    domain.StatusPending,
		CreatedAt: createdAt,
	}
}

func TestOperationLifecycle(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			op := record("op-1", "office", time.Now().UTC().Truncate(time.Second))

			if err := store.CreateOperation(ctx, op); err != nil {
				t.Fatalf("CreateOperation failed: %v", err)
			}
			if err := store.CreateOperation(ctx, op); !errors.Is(err, domain.ErrAlreadyExists) {
				t.Errorf("Expected ErrAlreadyExists, got %v", err)
			}

			got, err := store.GetOperation(ctx, "op-1")
			if err != nil {
				t.Fatalf("GetOperation failed: %v", err)
			}
			if got.Status != domain.StatusPending || len(got.Addresses) != 2 || got.CompletedAt != nil {
				t.Errorf("Unexpected record: %+v", got)
			}

			done := time.Now().UTC().Truncate(time.Second)
			got.Status = domain.StatusSuccess
			got.Attempts = 2
			got.CompletedAt = &done
			if err := store.UpdateOperation(ctx, got); err != nil {
				t.Fatalf("UpdateOperation failed: %v", err)
			}

			got, err = store.GetOperation(ctx, "op-1")
			if err != nil {
				t.Fatalf("GetOperation failed: %v", err)
			}
			if got.Status != domain.StatusSuccess || got.Attempts != 2 {
				t.Errorf("Update not persisted: %+v", got)
			}
			if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
				t.Errorf("Expected completed_at %v, got %v", done, got.CompletedAt)
			}
			if got.Addresses[0] != "10.0.0.1/32" {
				t.Errorf("Addresses not round-tripped: %v", got.Addresses)
			}
		})
	}
}

func TestGetOperation_NotFound(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.GetOperation(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
			err := store.UpdateOperation(context.Background(), record("missing", "office", time.Now()))
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Expected ErrNotFound on update, got %v", err)
			}
		})
	}
}

func TestListOperations_NewestFirstAndFiltered(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				ipset := "office"
				if i%2 == 1 {
					ipset = "partners"
				}
				op := record(fmt.Sprintf("op-%d", i), ipset, base.Add(time.Duration(i)*time.Minute))
				if err := store.CreateOperation(ctx, op); err != nil {
					t.Fatalf("CreateOperation failed: %v", err)
				}
			}

			all, err := store.ListOperations(ctx, domain.OperationFilter{})
			if err != nil {
				t.Fatalf("ListOperations failed: %v", err)
			}
			if len(all) != 5 || all[0].ID != "op-4" || all[4].ID != "op-0" {
				t.Errorf("Unexpected order: %v", ids(all))
			}

			office, err := store.ListOperations(ctx, domain.OperationFilter{IPSetName: "office"})
			if err != nil {
				t.Fatalf("ListOperations failed: %v", err)
			}
			if got := ids(office); fmt.Sprint(got) != "[op-4 op-2 op-0]" {
				t.Errorf("Unexpected filtered list: %v", got)
			}

			page, err := store.ListOperations(ctx, domain.OperationFilter{Limit: 2, Offset: 1})
			if err != nil {
				t.Fatalf("ListOperations failed: %v", err)
			}
			if got := ids(page); fmt.Sprint(got) != "[op-3 op-2]" {
				t.Errorf("Unexpected page: %v", got)
			}

			past, err := store.ListOperations(ctx, domain.OperationFilter{Offset: 10})
			if err != nil {
				t.Fatalf("ListOperations failed: %v", err)
			}
			if len(past) != 0 {
				t.Errorf("Expected empty page, got %v", ids(past))
			}
		})
	}
}

func ids(ops []*domain.OperationRecord) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}
