package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
)

const (
	tableName = "rippl__core_balance"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address  string `db:"address"`
	Lamports uint64 `db:"lamports"`

	Version uint64 `db:"version"`
	Slot    uint64 `db:"slot"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *balance.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address:  obj.Address,
		Lamports: obj.Lamports,

		Version: obj.Version,
		Slot:    obj.Slot,

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *balance.Record {
	return &balance.Record{
		Id: uint64(obj.Id.Int64),

		Address:  obj.Address,
		Lamports: obj.Lamports,

		Version: obj.Version,
		Slot:    obj.Slot,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		m.LastUpdatedAt = time.Now()

		if m.Version == 0 {
			query := `INSERT INTO ` + tableName + `
				(address, lamports, version, slot, last_updated_at)
				VALUES ($1, $2, 1, $3, $4)

				ON CONFLICT (address)
				DO NOTHING

				RETURNING id, address, lamports, version, slot, last_updated_at`

			err := tx.QueryRowxContext(
				ctx,
				query,
				m.Address,
				m.Lamports,
				m.Slot,
				m.LastUpdatedAt.UTC(),
			).StructScan(m)
			return pgutil.CheckNoRows(err, balance.ErrStaleVersion)
		}

		query := `UPDATE ` + tableName + `
			SET lamports = $3, slot = $4, last_updated_at = $5, version = version + 1
			WHERE address = $1 AND version = $2
			RETURNING id, address, lamports, version, slot, last_updated_at`

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Version,
			m.Lamports,
			m.Slot,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
		return pgutil.CheckNoRows(err, balance.ErrStaleVersion)
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	var res model
	query := `SELECT id, address, lamports, version, slot, last_updated_at FROM ` + tableName + `
		WHERE address = $1
	`

	err := db.GetContext(ctx, &res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, balance.ErrNotFound)
	}
	return &res, nil
}

func dbGetTotalLamports(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64
	query := `SELECT COALESCE(SUM(lamports), 0)::BIGINT FROM ` + tableName

	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}
	return res, nil
}
