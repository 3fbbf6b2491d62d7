package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "fleetops/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner runs fn inside a unit of work. Stores called with the context passed
// to fn join the same transaction.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// Postgres runs units of work in a database/sql transaction.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB, timeout time.Duration) *Postgres {
	return &Postgres{db: db, timeout: timeout}
}

func (t *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	// Nested calls join the outer transaction.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Passthrough is the in-memory Runner: stores commit each write themselves and
// callers rely on the per-driver lock for isolation.
type Passthrough struct{}

func (Passthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}
