package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	q "github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
)

const (
	tableName = "rippl__core_campaign"

	allColumns = `id, address, bump, vault, vault_bump, authority, title, description, category, organization_name, image_url, is_urgent, target_amount, raised_amount, donors_count, start_date, end_date, status, version, slot, created_at, last_updated_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address   string `db:"address"`
	Bump      uint8  `db:"bump"`
	Vault     string `db:"vault"`
	VaultBump uint8  `db:"vault_bump"`
	Authority string `db:"authority"`

	Title            string `db:"title"`
	Description      string `db:"description"`
	Category         uint8  `db:"category"`
	OrganizationName string `db:"organization_name"`
	ImageUrl         string `db:"image_url"`
	IsUrgent         bool   `db:"is_urgent"`

	TargetAmount uint64 `db:"target_amount"`
	RaisedAmount uint64 `db:"raised_amount"`
	DonorsCount  uint32 `db:"donors_count"`

	StartDate int64 `db:"start_date"`
	EndDate   int64 `db:"end_date"`
	Status    uint8 `db:"status"`

	Version uint64 `db:"version"`
	Slot    uint64 `db:"slot"`

	CreatedAt     time.Time `db:"created_at"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *campaign.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Id: sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},

		Address:   obj.Address,
		Bump:      obj.Bump,
		Vault:     obj.Vault,
		VaultBump: obj.VaultBump,
		Authority: obj.Authority,

		Title:            obj.Title,
		Description:      obj.Description,
		Category:         uint8(obj.Category),
		OrganizationName: obj.OrganizationName,
		ImageUrl:         obj.ImageUrl,
		IsUrgent:         obj.IsUrgent,

		TargetAmount: obj.TargetAmount,
		RaisedAmount: obj.RaisedAmount,
		DonorsCount:  obj.DonorsCount,

		StartDate: obj.StartDate,
		EndDate:   obj.EndDate,
		Status:    uint8(obj.Status),

		Version: obj.Version,
		Slot:    obj.Slot,

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *campaign.Record {
	return &campaign.Record{
		Id: uint64(obj.Id.Int64),

		Address:   obj.Address,
		Bump:      obj.Bump,
		Vault:     obj.Vault,
		VaultBump: obj.VaultBump,
		Authority: obj.Authority,

		Title:            obj.Title,
		Description:      obj.Description,
		Category:         campaign.Category(obj.Category),
		OrganizationName: obj.OrganizationName,
		ImageUrl:         obj.ImageUrl,
		IsUrgent:         obj.IsUrgent,

		TargetAmount: obj.TargetAmount,
		RaisedAmount: obj.RaisedAmount,
		DonorsCount:  obj.DonorsCount,

		StartDate: obj.StartDate,
		EndDate:   obj.EndDate,
		Status:    campaign.Status(obj.Status),

		Version: obj.Version,
		Slot:    obj.Slot,

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, bump, vault, vault_bump, authority, title, description, category, organization_name, image_url, is_urgent, target_amount, raised_amount, donors_count, start_date, end_date, status, version, slot, created_at, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19, $20)
			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		m.LastUpdatedAt = time.Now()

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Bump,
			m.Vault,
			m.VaultBump,
			m.Authority,
			m.Title,
			m.Description,
			m.Category,
			m.OrganizationName,
			m.ImageUrl,
			m.IsUrgent,
			m.TargetAmount,
			m.RaisedAmount,
			m.DonorsCount,
			m.StartDate,
			m.EndDate,
			m.Status,
			m.Slot,
			m.CreatedAt.UTC(),
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
	})
	return pgutil.CheckUniqueViolation(err, campaign.ErrAlreadyExists)
}

func (m *model) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + tableName + `
			SET description = $3, image_url = $4, is_urgent = $5, raised_amount = $6, donors_count = $7, end_date = $8, status = $9, slot = $10, last_updated_at = $11, version = version + 1
			WHERE address = $1 AND version = $2
			RETURNING ` + allColumns

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Version,
			m.Description,
			m.ImageUrl,
			m.IsUrgent,
			m.RaisedAmount,
			m.DonorsCount,
			m.EndDate,
			m.Status,
			m.Slot,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
		if !pgutil.IsNoRows(err) {
			return err
		}

		var count uint64
		err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+tableName+` WHERE address = $1`, m.Address)
		if err != nil {
			return err
		}
		if count == 0 {
			return campaign.ErrNotFound
		}
		return campaign.ErrStaleVersion
	})
}

func dbGetBy(ctx context.Context, db *sqlx.DB, column, value string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE ` + column + ` = $1
	`

	err := db.GetContext(ctx, &res, query, value)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, campaign.ErrNotFound)
	}
	return &res, nil
}

func dbGetAllBy(ctx context.Context, db *sqlx.DB, column string, value interface{}, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE (` + column + ` = $1)
	`

	opts := []interface{}{value}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, campaign.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, campaign.ErrNotFound
	}
	return res, nil
}

func dbGetAllActiveEndedBefore(ctx context.Context, db *sqlx.DB, unixTs int64, limit uint64) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE status = $1 AND end_date < $2
		ORDER BY end_date ASC, id ASC
		LIMIT $3
	`

	err := db.SelectContext(ctx, &res, query, campaign.StatusActive, unixTs, limit)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, campaign.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, campaign.ErrNotFound
	}
	return res, nil
}

func dbCountByStatus(ctx context.Context, db *sqlx.DB, status campaign.Status) (uint64, error) {
	var res uint64
	query := `SELECT COUNT(*) FROM ` + tableName + `
		WHERE status = $1
	`

	err := db.GetContext(ctx, &res, query, status)
	if err != nil {
		return 0, err
	}
	return res, nil
}
