package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed event.Store
func New(db *sql.DB) event.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements event.Store.Put
func (s *store) Put(ctx context.Context, record *event.Record) error {
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

// Update implements event.Store.Update
func (s *store) Update(ctx context.Context, record *event.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbUpdate(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

// Get implements event.Store.Get
func (s *store) Get(ctx context.Context, eventId string) (*event.Record, error) {
	model, err := dbGetByEventId(ctx, s.db, eventId)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetAllBySignature implements event.Store.GetAllBySignature
func (s *store) GetAllBySignature(ctx context.Context, signature string) ([]*event.Record, error) {
	models, err := dbGetAllBySignature(ctx, s.db, signature)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// GetAll implements event.Store.GetAll
func (s *store) GetAll(ctx context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*event.Record, error) {
	models, err := dbGetAll(ctx, s.db, cursor, limit, direction)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// CountByState implements event.Store.CountByState
func (s *store) CountByState(ctx context.Context, state event.State) (uint64, error) {
	return dbCountByState(ctx, s.db, state)
}

// GetAllPendingReadyToSend implements event.Store.GetAllPendingReadyToSend
func (s *store) GetAllPendingReadyToSend(ctx context.Context, limit uint64) ([]*event.Record, error) {
	models, err := dbGetAllPendingReadyToSend(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func fromModels(models []*model) []*event.Record {
	res := make([]*event.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res
}
