package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed campaign.Store
func New(db *sql.DB) campaign.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements campaign.Store.Put
func (s *store) Put(ctx context.Context, record *campaign.Record) error {
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

// Update implements campaign.Store.Update
func (s *store) Update(ctx context.Context, record *campaign.Record) error {
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

// GetByAddress implements campaign.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*campaign.Record, error) {
	model, err := dbGetBy(ctx, s.db, "address", address)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetByVault implements campaign.Store.GetByVault
func (s *store) GetByVault(ctx context.Context, vault string) (*campaign.Record, error) {
	model, err := dbGetBy(ctx, s.db, "vault", vault)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetAllByAuthority implements campaign.Store.GetAllByAuthority
func (s *store) GetAllByAuthority(ctx context.Context, authority string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*campaign.Record, error) {
	models, err := dbGetAllBy(ctx, s.db, "authority", authority, cursor, limit, direction)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// GetAllByStatus implements campaign.Store.GetAllByStatus
func (s *store) GetAllByStatus(ctx context.Context, status campaign.Status, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*campaign.Record, error) {
	models, err := dbGetAllBy(ctx, s.db, "status", status, cursor, limit, direction)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// GetAllByCategory implements campaign.Store.GetAllByCategory
func (s *store) GetAllByCategory(ctx context.Context, category campaign.Category, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*campaign.Record, error) {
	models, err := dbGetAllBy(ctx, s.db, "category", category, cursor, limit, direction)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// GetAllActiveEndedBefore implements campaign.Store.GetAllActiveEndedBefore
func (s *store) GetAllActiveEndedBefore(ctx context.Context, unixTs int64, limit uint64) ([]*campaign.Record, error) {
	models, err := dbGetAllActiveEndedBefore(ctx, s.db, unixTs, limit)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// CountByStatus implements campaign.Store.CountByStatus
func (s *store) CountByStatus(ctx context.Context, status campaign.Status) (uint64, error) {
	return dbCountByStatus(ctx, s.db, status)
}

func fromModels(models []*model) []*campaign.Record {
	var res []*campaign.Record
	for _, model := range models {
		res = append(res, fromModel(model))
	}
	return res
}
