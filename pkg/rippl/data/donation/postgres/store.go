package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed donation.Store
func New(db *sql.DB) donation.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements donation.Store.Put
func (s *store) Put(ctx context.Context, record *donation.Record) error {
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

// GetByAddress implements donation.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*donation.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetAllByCampaign implements donation.Store.GetAllByCampaign
func (s *store) GetAllByCampaign(ctx context.Context, campaign string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*donation.Record, error) {
	models, err := dbGetAllBy(ctx, s.db, "campaign", campaign, cursor, limit, direction)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// GetAllByDonor implements donation.Store.GetAllByDonor
func (s *store) GetAllByDonor(ctx context.Context, donor string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*donation.Record, error) {
	models, err := dbGetAllBy(ctx, s.db, "donor", donor, cursor, limit, direction)
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// CountByCampaign implements donation.Store.CountByCampaign
func (s *store) CountByCampaign(ctx context.Context, campaign string) (uint64, error) {
	return dbCountByCampaign(ctx, s.db, campaign)
}

// GetTotalAmountByCampaign implements donation.Store.GetTotalAmountByCampaign
func (s *store) GetTotalAmountByCampaign(ctx context.Context, campaign string) (uint64, error) {
	return dbGetTotalAmountByCampaign(ctx, s.db, campaign)
}

func fromModels(models []*model) []*donation.Record {
	var res []*donation.Record
	for _, model := range models {
		res = append(res, fromModel(model))
	}
	return res
}
