package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/retry"
	"github.com/code-payments/auction-house-server/pkg/retry/backoff"
)

const (
	maxTxAttempts = 5
	txBaseBackoff = 10 * time.Millisecond
	txMaxBackoff  = 250 * time.Millisecond
)

// ExecuteInTx runs fn inside a transaction at the given isolation level,
// committing when fn succeeds and rolling back otherwise. Transactions that
// Postgres aborts with a serialization failure are rerun from the start.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted
	}

	_, err := retry.Retry(
		func() error {
			return executeOnce(ctx, db, isolation, fn)
		},
		retry.Limit(maxTxAttempts),
		func(_ uint, err error) bool {
			return IsSerializationFailure(err) && ctx.Err() == nil
		},
		retry.BackoffWithJitter(backoff.BinaryExponential(txBaseBackoff), txMaxBackoff, 0.2),
	)
	return err
}

func executeOnce(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// Rollback releases the connection back to the pool
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rollbackErr)
		}
		return err
	}

	return tx.Commit()
}
