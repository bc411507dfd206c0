package balance

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("balance not found")
	ErrStaleVersion = errors.New("balance version is stale")
)

type Store interface {
	// Save creates or updates a balance. A record with version zero is created,
	// and ErrStaleVersion is returned if one already exists. Otherwise, the
	// record version must match the stored version. The version is advanced on
	// success.
	Save(ctx context.Context, record *Record) error

	// Get gets the balance for an address
	//
	// Returns ErrNotFound if no record is found.
	Get(ctx context.Context, address string) (*Record, error)

	// GetTotalLamports sums the lamports held across all addresses
	GetTotalLamports(ctx context.Context) (uint64, error)
}
