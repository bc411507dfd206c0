package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/retry"
	"github.com/rippl-labs/rippl-server/pkg/retry/backoff"
)

const maxSerializationAttempts = 3

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")
)

type txContextKey struct{}

// txState is the transaction shared through the context by ExecuteTxWithinCtx
type txState struct {
	tx        *sqlx.Tx
	isolation sql.IsolationLevel
}

func withTxState(ctx context.Context, state *txState) context.Context {
	return context.WithValue(ctx, txContextKey{}, state)
}

func normalizeIsolation(isolation sql.IsolationLevel) sql.IsolationLevel {
	if isolation == sql.LevelDefault {
		return sql.LevelReadCommitted
	}
	return isolation
}

// ExecuteTxWithinCtx runs fn in a new transaction carried by the context, so
// every store call made with it joins the transaction. The transaction commits
// when fn succeeds and rolls back otherwise. Serialization failures rerun fn in
// a fresh transaction.
func ExecuteTxWithinCtx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*txState); ok {
		return ErrAlreadyInTx
	}

	isolation = normalizeIsolation(isolation)
	_, err := retry.Retry(
		func() error {
			tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
			if err != nil {
				return err
			}

			return finishTx(tx, fn(withTxState(ctx, &txState{tx: tx, isolation: isolation})))
		},
		retry.RetriableErrors(errSerializationFailure),
		retry.Limit(maxSerializationAttempts),
		retry.Context(ctx),
		retry.Backoff(backoff.BinaryExponential(10*time.Millisecond), 100*time.Millisecond),
	)
	return unwrapSerializationFailure(err)
}

// ExecuteInTx runs fn in the transaction carried by ctx when there is one, and
// in a new transaction owned by this call otherwise.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	isolation = normalizeIsolation(isolation)

	tx, err := getTxFromCtx(ctx, isolation)
	switch {
	case err == nil:
		return fn(tx)
	case err != ErrNotInTx:
		return err
	}

	tx, err = db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}
	return unwrapSerializationFailure(finishTx(tx, fn(tx)))
}

// finishTx commits tx when fnErr is nil and rolls it back otherwise. A rollback
// always runs on failure so the connection is released.
func finishTx(tx *sqlx.Tx, fnErr error) error {
	if fnErr != nil {
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("failed to rollback transaction: %w", err)
		}
		return markSerializationFailure(fnErr)
	}
	return markSerializationFailure(tx.Commit())
}

func getTxFromCtx(ctx context.Context, desiredIsolation sql.IsolationLevel) (*sqlx.Tx, error) {
	raw := ctx.Value(txContextKey{})
	if raw == nil {
		return nil, ErrNotInTx
	}

	state, ok := raw.(*txState)
	if !ok {
		return nil, errors.New("invalid type for tx")
	}
	if state.isolation < desiredIsolation {
		return nil, errors.New("current tx doesn't meet isolation level requirements")
	}
	return state.tx, nil
}
