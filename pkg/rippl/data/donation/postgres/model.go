package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	q "github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
)

const (
	tableName = "rippl__core_donation"

	allColumns = `id, address, bump, donor, campaign, sequence, amount, timestamp, status, payment_method, transaction_hash, impact_description, slot, created_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address  string `db:"address"`
	Bump     uint8  `db:"bump"`
	Donor    string `db:"donor"`
	Campaign string `db:"campaign"`
	Sequence uint32 `db:"sequence"`

	Amount            uint64 `db:"amount"`
	Timestamp         int64  `db:"timestamp"`
	Status            uint8  `db:"status"`
	PaymentMethod     uint8  `db:"payment_method"`
	TransactionHash   string `db:"transaction_hash"`
	ImpactDescription string `db:"impact_description"`

	Slot      uint64    `db:"slot"`
	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *donation.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address:  obj.Address,
		Bump:     obj.Bump,
		Donor:    obj.Donor,
		Campaign: obj.Campaign,
		Sequence: obj.Sequence,

		Amount:            obj.Amount,
		Timestamp:         obj.Timestamp,
		Status:            uint8(obj.Status),
		PaymentMethod:     uint8(obj.PaymentMethod),
		TransactionHash:   obj.TransactionHash,
		ImpactDescription: obj.ImpactDescription,

		Slot:      obj.Slot,
		CreatedAt: obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) *donation.Record {
	return &donation.Record{
		Id: uint64(obj.Id.Int64),

		Address:  obj.Address,
		Bump:     obj.Bump,
		Donor:    obj.Donor,
		Campaign: obj.Campaign,
		Sequence: obj.Sequence,

		Amount:            obj.Amount,
		Timestamp:         obj.Timestamp,
		Status:            donation.Status(obj.Status),
		PaymentMethod:     donation.PaymentMethod(obj.PaymentMethod),
		TransactionHash:   obj.TransactionHash,
		ImpactDescription: obj.ImpactDescription,

		Slot:      obj.Slot,
		CreatedAt: obj.CreatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, bump, donor, campaign, sequence, amount, timestamp, status, payment_method, transaction_hash, impact_description, slot, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Bump,
			m.Donor,
			m.Campaign,
			m.Sequence,
			m.Amount,
			m.Timestamp,
			m.Status,
			m.PaymentMethod,
			m.TransactionHash,
			m.ImpactDescription,
			m.Slot,
			m.CreatedAt.UTC(),
		).StructScan(m)
	})
	return pgutil.CheckUniqueViolation(err, donation.ErrAlreadyExists)
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE address = $1
	`

	err := db.GetContext(ctx, &res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, donation.ErrNotFound)
	}
	return &res, nil
}

func dbGetAllBy(ctx context.Context, db *sqlx.DB, column, value string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE (` + column + ` = $1)
	`

	opts := []interface{}{value}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, donation.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, donation.ErrNotFound
	}
	return res, nil
}

func dbCountByCampaign(ctx context.Context, db *sqlx.DB, campaign string) (uint64, error) {
	var res uint64
	query := `SELECT COUNT(*) FROM ` + tableName + `
		WHERE campaign = $1
	`

	err := db.GetContext(ctx, &res, query, campaign)
	if err != nil {
		return 0, err
	}
	return res, nil
}

func dbGetTotalAmountByCampaign(ctx context.Context, db *sqlx.DB, campaign string) (uint64, error) {
	var res uint64
	query := `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM ` + tableName + `
		WHERE campaign = $1
	`

	err := db.GetContext(ctx, &res, query, campaign)
	if err != nil {
		return 0, err
	}
	return res, nil
}
