package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Error kinds returned (wrapped) by store and lifecycle operations.
// Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrReferenceNotFound   = errors.New("referenced entity not found")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrGenerationExhausted = errors.New("identifier generation exhausted")
	ErrTimeout             = errors.New("operation timed out")
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every store function
// can run on its own or as part of a larger transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// now is the clock used for audit timestamps.
var now = func() time.Time { return time.Now().UTC() }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
