package transaction

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrAlreadyExists = errors.New("transaction already exists")
)

type Store interface {
	// Put saves an executed transaction
	//
	// Returns ErrAlreadyExists if the signature has already been recorded.
	Put(ctx context.Context, record *Record) error

	// Get gets a transaction by its signature
	//
	// Returns ErrNotFound if no record is found.
	Get(ctx context.Context, signature string) (*Record, error)

	// GetLatestSlot gets the highest slot of any recorded transaction, or zero
	// when nothing has been recorded yet
	GetLatestSlot(ctx context.Context) (uint64, error)

	// CountByState counts all transactions in a provided confirmation state
	CountByState(ctx context.Context, state ConfirmationState) (uint64, error)
}
