package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store and runs pending migrations. driver is
// "sqlite3" or "postgres".
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type operationRow struct {
	ID            string     `db:"id"`
	IPSetName     string     `db:"ipset_name"`
	Operation     string     `db:"operation"`
	AddressesJSON string     `db:"addresses_json"`
	Status        string     `db:"status"`
	Attempts      int        `db:"attempts"`
	Error         string     `db:"error"`
	CreatedAt     time.Time  `db:"created_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

func (r *operationRow) toDomain() (*domain.OperationRecord, error) {
	op := &domain.OperationRecord{
		ID:          r.ID,
		IPSetName:   r.IPSetName,
		Operation:   domain.Operation(r.Operation),
		Status:      r.Status,
		Attempts:    r.Attempts,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
	if err := json.Unmarshal([]byte(r.AddressesJSON), &op.Addresses); err != nil {
		return nil, fmt.Errorf("decoding addresses of operation %s: %w", r.ID, err)
	}
	return op, nil
}

const operationColumns = `id, ipset_name, operation, addresses_json, status, attempts, error, created_at, completed_at`

func (s *Store) CreateOperation(ctx context.Context, op *domain.OperationRecord) error {
	addressesJSON, err := json.Marshal(op.Addresses)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO operations (`+operationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		op.ID, op.IPSetName, string(op.Operation), string(addressesJSON), op.Status,
		op.Attempts, op.Error, op.CreatedAt, op.CompletedAt)
	return wrapUniqueError(err)
}

func (s *Store) GetOperation(ctx context.Context, id string) (*domain.OperationRecord, error) {
	var row operationRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+operationColumns+` FROM operations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (s *Store) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*domain.OperationRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	var rows []operationRow
	var err error
	if filter.IPSetName != "" {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT `+operationColumns+` FROM operations WHERE ipset_name = $1
			 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
			filter.IPSetName, limit, filter.Offset)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT `+operationColumns+` FROM operations
			 ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
			limit, filter.Offset)
	}
	if err != nil {
		return nil, err
	}

	ops := make([]*domain.OperationRecord, 0, len(rows))
	for i := range rows {
		op, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (s *Store) UpdateOperation(ctx context.Context, op *domain.OperationRecord) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE operations SET status = $1, attempts = $2, error = $3, completed_at = $4 WHERE id = $5`,
		op.Status, op.Attempts, op.Error, op.CompletedAt, op.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
