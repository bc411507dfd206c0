package event

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
)

var (
	ErrNotFound      = errors.New("event record not found")
	ErrAlreadyExists = errors.New("event record already exists")
)

type Store interface {
	// Put creates an event record
	//
	// Returns ErrAlreadyExists if a record already exists for the event ID, or
	// for the (signature, index) pair.
	Put(ctx context.Context, record *Record) error

	// Update updates the delivery state of an event record
	//
	// Returns ErrNotFound if no record exists.
	Update(ctx context.Context, record *Record) error

	// Get finds the event record for a given event ID
	//
	// Returns ErrNotFound if no record is found.
	Get(ctx context.Context, eventId string) (*Record, error)

	// GetAllBySignature gets all events emitted by a transaction, in emission order
	//
	// Returns ErrNotFound if no records are found.
	GetAllBySignature(ctx context.Context, signature string) ([]*Record, error)

	// GetAll gets all events using a paged API
	//
	// Returns ErrNotFound if no records are found.
	GetAll(ctx context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByState counts all event records in a provided state
	CountByState(ctx context.Context, state State) (uint64, error)

	// GetAllPendingReadyToSend gets all event records in the pending state
	// that have an attempt scheduled to be sent.
	//
	// Returns ErrNotFound if no record is found.
	//
	// Note: No traditional pagination since it's expected the next attempt
	//       timestamp is updated or the state transitions to a terminal value.
	GetAllPendingReadyToSend(ctx context.Context, limit uint64) ([]*Record, error)
}
