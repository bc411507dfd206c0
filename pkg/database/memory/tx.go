package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type journalContextKey struct{}

var (
	ErrAlreadyInTx = errors.New("already executing in existing memory tx")
)

// journal records undo operations for every in-memory write made within a tx
type journal struct {
	mu   sync.Mutex
	undo []func()
}

// ExecuteTxWithinCtx is the in-memory equivalent of pg.ExecuteTxWithinCtx. Stores
// that register undo operations via OnRollback have their writes reverted, in
// reverse order, when fn returns an error.
//
// Writes are applied in place, so reads outside the tx observe them before
// it completes. Callers needing read isolation must serialize against the
// writer themselves.
func ExecuteTxWithinCtx(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(journalContextKey{}) != nil {
		return ErrAlreadyInTx
	}

	j := &journal{}
	err := fn(context.WithValue(ctx, journalContextKey{}, j))
	if err != nil {
		j.rollback()
		return err
	}
	return nil
}

// OnRollback registers an undo operation against the tx in ctx, if there is one.
// Undo operations are executed without any store locks held, so they must
// acquire whatever locks they need.
func OnRollback(ctx context.Context, undo func()) {
	j, ok := ctx.Value(journalContextKey{}).(*journal)
	if !ok {
		return
	}

	j.mu.Lock()
	j.undo = append(j.undo, undo)
	j.mu.Unlock()
}

// InTx reports whether ctx carries an in-memory tx
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(journalContextKey{}).(*journal)
	return ok
}

func (j *journal) rollback() {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}
