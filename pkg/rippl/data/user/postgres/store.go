package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed user.Store
func New(db *sql.DB) user.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements user.Store.Put
func (s *store) Put(ctx context.Context, record *user.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbPut(ctx, s.db)
	if err != nil {
		return err
	}

	res, err := fromModel(obj)
	if err != nil {
		return err
	}
	res.CopyTo(record)

	return nil
}

// Update implements user.Store.Update
func (s *store) Update(ctx context.Context, record *user.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbUpdate(ctx, s.db)
	if err != nil {
		return err
	}

	res, err := fromModel(obj)
	if err != nil {
		return err
	}
	res.CopyTo(record)

	return nil
}

// GetByAddress implements user.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*user.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(model)
}

// GetByAuthority implements user.Store.GetByAuthority
func (s *store) GetByAuthority(ctx context.Context, authority string) (*user.Record, error) {
	model, err := dbGetByAuthority(ctx, s.db, authority)
	if err != nil {
		return nil, err
	}
	return fromModel(model)
}

// GetAll implements user.Store.GetAll
func (s *store) GetAll(ctx context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*user.Record, error) {
	models, err := dbGetAll(ctx, s.db, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	var res []*user.Record
	for _, model := range models {
		record, err := fromModel(model)
		if err != nil {
			return nil, err
		}
		res = append(res, record)
	}
	return res, nil
}
