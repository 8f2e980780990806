// Package tx carries an open SQL transaction through a context so that
// several Postgres stores can join the same unit of work. In-memory stores
// join the equivalent unit through an undo log.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DBTX is the subset of *sql.DB and *sql.Tx the stores use.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

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

// Executor returns the transaction in ctx, or db when none is open.
func Executor(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Run opens a transaction, exposes it through the returned context, and
// commits when fn succeeds. A transaction already present in ctx is reused
// and left for the outer caller to commit.
func Run(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	sqlTx, err := db.BeginTx(ctx, nil)
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

type undoKey struct{}

type undoLog struct {
	mu  sync.Mutex
	fns []func()
}

// WithUndo opens an undo log for an in-memory unit of work. The returned
// rollback runs every registered undo in reverse order, once.
func WithUndo(ctx context.Context) (context.Context, func()) {
	log := &undoLog{}
	rollback := func() {
		log.mu.Lock()
		fns := log.fns
		log.fns = nil
		log.mu.Unlock()
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
	return context.WithValue(ctx, undoKey{}, log), rollback
}

// OnRollback registers fn with the undo log in ctx. It is a no-op outside
// an in-memory unit of work.
func OnRollback(ctx context.Context, fn func()) {
	log, ok := ctx.Value(undoKey{}).(*undoLog)
	if !ok {
		return
	}
	log.mu.Lock()
	log.fns = append(log.fns, fn)
	log.mu.Unlock()
}
