package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
)

const (
	tableName  = "rippl__core_transaction"
	allColumns = `id, signature, slot, block_time, fee_payer, fee, data, confirmation_state, error, created_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Signature string    `db:"signature"`
	Slot      uint64    `db:"slot"`
	BlockTime time.Time `db:"block_time"`

	FeePayer string `db:"fee_payer"`
	Fee      uint64 `db:"fee"`

	Data []byte `db:"data"`

	ConfirmationState uint8          `db:"confirmation_state"`
	Error             sql.NullString `db:"error"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *transaction.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Signature: obj.Signature,
		Slot:      obj.Slot,
		BlockTime: obj.BlockTime,

		FeePayer: obj.FeePayer,
		Fee:      obj.Fee,

		Data: obj.Data,

		ConfirmationState: uint8(obj.ConfirmationState),
		Error: sql.NullString{
			Valid:  len(obj.Error) > 0,
			String: string(obj.Error),
		},

		CreatedAt: obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) *transaction.Record {
	var txnErr []byte
	if obj.Error.Valid {
		txnErr = []byte(obj.Error.String)
	}

	return &transaction.Record{
		Id: uint64(obj.Id.Int64),

		Signature: obj.Signature,
		Slot:      obj.Slot,
		BlockTime: obj.BlockTime,

		FeePayer: obj.FeePayer,
		Fee:      obj.Fee,

		Data: obj.Data,

		ConfirmationState: transaction.ConfirmationState(obj.ConfirmationState),
		Error:             txnErr,

		CreatedAt: obj.CreatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(signature, slot, block_time, fee_payer, fee, data, confirmation_state, error, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Signature,
			m.Slot,
			m.BlockTime.UTC(),
			m.FeePayer,
			m.Fee,
			m.Data,
			m.ConfirmationState,
			m.Error,
			m.CreatedAt.UTC(),
		).StructScan(m)
	})
	return pgutil.CheckUniqueViolation(err, transaction.ErrAlreadyExists)
}

func dbGet(ctx context.Context, db *sqlx.DB, signature string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE signature = $1
	`

	err := db.GetContext(ctx, &res, query, signature)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, transaction.ErrNotFound)
	}
	return &res, nil
}

func dbGetLatestSlot(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64
	query := `SELECT COALESCE(MAX(slot), 0) FROM ` + tableName

	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}
	return res, nil
}

func dbCountByState(ctx context.Context, db *sqlx.DB, state transaction.ConfirmationState) (uint64, error) {
	var res uint64
	query := `SELECT COUNT(*) FROM ` + tableName + `
		WHERE confirmation_state = $1
	`

	err := db.GetContext(ctx, &res, query, state)
	if err != nil {
		return 0, err
	}
	return res, nil
}
