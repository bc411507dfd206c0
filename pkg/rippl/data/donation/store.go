package donation

import (
	"context"
	"errors"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
)

var (
	ErrNotFound      = errors.New("donation not found")
	ErrAlreadyExists = errors.New("donation already exists")
)

// Store persists donation receipts, which are never modified once written
type Store interface {
	// Put creates a new donation record. ErrAlreadyExists is returned if a
	// donation exists at the address, or for the campaign and sequence number.
	Put(ctx context.Context, record *Record) error

	// GetByAddress gets a donation by its account address
	//
	// Returns ErrNotFound if no record is found.
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetAllByCampaign gets a page of donations made to a campaign
	//
	// Returns ErrNotFound if no records are found.
	GetAllByCampaign(ctx context.Context, campaign string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetAllByDonor gets a page of donations made by a donor
	//
	// Returns ErrNotFound if no records are found.
	GetAllByDonor(ctx context.Context, donor string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByCampaign counts the donations made to a campaign
	CountByCampaign(ctx context.Context, campaign string) (uint64, error)

	// GetTotalAmountByCampaign sums the amount of all donations made to a campaign
	GetTotalAmountByCampaign(ctx context.Context, campaign string) (uint64, error)
}
