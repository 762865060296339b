package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const DBTxKey contextKey = "db_tx"

// ErrNoDatabase is returned by WithTx when the context carries neither a
// transaction, a request-scoped connection, nor a pool.
var ErrNoDatabase = errors.New("no database connection in context")

// TxFromContext retrieves the active transaction from context, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction on whatever the context carries: an existing
// transaction (nested as a savepoint), the request-scoped connection, or a
// pool installed by WithPool. It returns a derived context with the
// transaction installed, so repository calls made through that context run
// inside it. The caller owns Commit and Rollback.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	var (
		tx  pgx.Tx
		err error
	)
	switch {
	case TxFromContext(ctx) != nil:
		tx, err = TxFromContext(ctx).Begin(ctx)
	case ConnFromContext(ctx) != nil:
		tx, err = ConnFromContext(ctx).Begin(ctx)
	case PoolFromContext(ctx) != nil:
		tx, err = PoolFromContext(ctx).Begin(ctx)
	default:
		return ctx, nil, ErrNoDatabase
	}
	if err != nil {
		return ctx, nil, err
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// RunInTx executes fn inside a transaction and commits when fn returns nil.
// Any error from fn rolls the transaction back and is returned unchanged, so
// a write and its derived updates commit or fail together. When the context
// has no database at all (in-memory repositories under test), fn runs
// directly and the repositories provide their own atomicity.
func RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, tx, err := WithTx(ctx)
	if err != nil {
		if errors.Is(err, ErrNoDatabase) {
			return fn(ctx)
		}
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(txCtx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
