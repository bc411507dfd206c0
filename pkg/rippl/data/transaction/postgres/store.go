package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed transaction.Store
func New(db *sql.DB) transaction.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements transaction.Store.Put
func (s *store) Put(ctx context.Context, record *transaction.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbPut(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

// Get implements transaction.Store.Get
func (s *store) Get(ctx context.Context, signature string) (*transaction.Record, error) {
	model, err := dbGet(ctx, s.db, signature)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetLatestSlot implements transaction.Store.GetLatestSlot
func (s *store) GetLatestSlot(ctx context.Context) (uint64, error) {
	return dbGetLatestSlot(ctx, s.db)
}

// CountByState implements transaction.Store.CountByState
func (s *store) CountByState(ctx context.Context, state transaction.ConfirmationState) (uint64, error) {
	return dbCountByState(ctx, s.db, state)
}
