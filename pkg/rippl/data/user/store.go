package user

import (
	"context"
	"errors"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
	ErrStaleVersion  = errors.New("user version is stale")
)

type Store interface {
	// Put creates a new user record. ErrAlreadyExists is returned if a user
	// exists at the address or for the authority.
	Put(ctx context.Context, record *Record) error

	// Update updates a user record. The record version must match the stored
	// version, otherwise ErrStaleVersion is returned. The version is advanced
	// on success.
	Update(ctx context.Context, record *Record) error

	// GetByAddress gets a user by its account address
	//
	// Returns ErrNotFound if no record is found.
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByAuthority gets a user by its owning authority
	//
	// Returns ErrNotFound if no record is found.
	GetByAuthority(ctx context.Context, authority string) (*Record, error)

	// GetAll gets a page of all users
	//
	// Returns ErrNotFound if no records are found.
	GetAll(ctx context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)
}
