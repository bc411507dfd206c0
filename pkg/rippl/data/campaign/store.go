package campaign

import (
	"context"
	"errors"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
)

var (
	ErrNotFound      = errors.New("campaign not found")
	ErrAlreadyExists = errors.New("campaign already exists")
	ErrStaleVersion  = errors.New("campaign version is stale")
)

type Store interface {
	// Put creates a new campaign record. ErrAlreadyExists is returned if a
	// campaign exists at the address.
	Put(ctx context.Context, record *Record) error

	// Update updates the mutable fields of a campaign record. The record version
	// must match the stored version, otherwise ErrStaleVersion is returned.
	Update(ctx context.Context, record *Record) error

	// GetByAddress gets a campaign by its account address
	//
	// Returns ErrNotFound if no record is found.
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByVault gets a campaign by its vault address
	//
	// Returns ErrNotFound if no record is found.
	GetByVault(ctx context.Context, vault string) (*Record, error)

	// GetAllByAuthority gets a page of campaigns created by an authority
	//
	// Returns ErrNotFound if no records are found.
	GetAllByAuthority(ctx context.Context, authority string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetAllByStatus gets a page of campaigns in a status
	//
	// Returns ErrNotFound if no records are found.
	GetAllByStatus(ctx context.Context, status Status, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetAllByCategory gets a page of campaigns in a category
	//
	// Returns ErrNotFound if no records are found.
	GetAllByCategory(ctx context.Context, category Category, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetAllActiveEndedBefore gets active campaigns whose end date is strictly
	// before the provided unix timestamp, ordered by end date.
	//
	// Returns ErrNotFound if no records are found.
	GetAllActiveEndedBefore(ctx context.Context, unixTs int64, limit uint64) ([]*Record, error)

	// CountByStatus counts the campaigns in a status
	CountByStatus(ctx context.Context, status Status) (uint64, error)
}
