package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed balance.Store
func New(db *sql.DB) balance.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements balance.Store.Save
func (s *store) Save(ctx context.Context, record *balance.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

// Get implements balance.Store.Get
func (s *store) Get(ctx context.Context, address string) (*balance.Record, error) {
	model, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetTotalLamports implements balance.Store.GetTotalLamports
func (s *store) GetTotalLamports(ctx context.Context) (uint64, error) {
	return dbGetTotalLamports(ctx, s.db)
}
