package store

import (
	"context"
	"database/sql"
	"time"

	dErrors "qualify/pkg/domain-errors"
	txcontext "qualify/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx runs record mutations in a database transaction carried by
// the context. Row serialisation comes from FindForUpdate.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return txcontext.Run(ctx, t.db, fn)
}
