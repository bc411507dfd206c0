package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	q "github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/pointer"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

const (
	tableName  = "rippl__core_event"
	allColumns = `id, event_id, event_type, signature, event_index, slot, payload, attempts, state, created_at, next_attempt_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	EventId   string `db:"event_id"`
	Type      uint8  `db:"event_type"`
	Signature string `db:"signature"`
	Index     uint8  `db:"event_index"`
	Slot      uint64 `db:"slot"`

	Payload []byte `db:"payload"`

	Attempts uint8 `db:"attempts"`
	State    uint8 `db:"state"`

	CreatedAt     time.Time    `db:"created_at"`
	NextAttemptAt sql.NullTime `db:"next_attempt_at"`
}

func toModel(obj *event.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		EventId:   obj.EventId,
		Type:      uint8(obj.Type),
		Signature: obj.Signature,
		Index:     obj.Index,
		Slot:      obj.Slot,

		Payload: obj.Payload,

		Attempts: obj.Attempts,
		State:    uint8(obj.State),

		CreatedAt: obj.CreatedAt,
		NextAttemptAt: sql.NullTime{
			Valid: obj.NextAttemptAt != nil,
			Time:  pointer.ValueOr(obj.NextAttemptAt, time.Time{}),
		},
	}, nil
}

func fromModel(obj *model) *event.Record {
	return &event.Record{
		Id: uint64(obj.Id.Int64),

		EventId:   obj.EventId,
		Type:      event.Type(obj.Type),
		Signature: obj.Signature,
		Index:     obj.Index,
		Slot:      obj.Slot,

		Payload: obj.Payload,

		Attempts: obj.Attempts,
		State:    event.State(obj.State),

		CreatedAt:     obj.CreatedAt,
		NextAttemptAt: pointer.IfValid(obj.NextAttemptAt.Valid, obj.NextAttemptAt.Time),
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(event_id, event_type, signature, event_index, slot, payload, attempts, state, created_at, next_attempt_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		return tx.QueryRowxContext(
			ctx,
			query,
			m.EventId,
			m.Type,
			m.Signature,
			m.Index,
			m.Slot,
			m.Payload,
			m.Attempts,
			m.State,
			m.CreatedAt,
			m.NextAttemptAt,
		).StructScan(m)
	})
	return pgutil.CheckUniqueViolation(err, event.ErrAlreadyExists)
}

func (m *model) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + tableName + `
			SET attempts = $2, state = $3, next_attempt_at = $4
			WHERE event_id = $1
			RETURNING ` + allColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.EventId,
			m.Attempts,
			m.State,
			m.NextAttemptAt,
		).StructScan(m)
	})
	return pgutil.CheckNoRows(err, event.ErrNotFound)
}

func dbGetByEventId(ctx context.Context, db *sqlx.DB, eventId string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE event_id = $1
	`

	err := db.GetContext(ctx, &res, query, eventId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, event.ErrNotFound)
	}
	return &res, nil
}

func dbGetAllBySignature(ctx context.Context, db *sqlx.DB, signature string) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE signature = $1
		ORDER BY event_index ASC
	`

	err := db.SelectContext(ctx, &res, query, signature)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, event.ErrNotFound)
	} else if len(res) == 0 {
		return nil, event.ErrNotFound
	}
	return res, nil
}

func dbGetAll(ctx context.Context, db *sqlx.DB, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE (TRUE)
	`

	opts := []interface{}{}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, event.ErrNotFound)
	} else if len(res) == 0 {
		return nil, event.ErrNotFound
	}
	return res, nil
}

func dbCountByState(ctx context.Context, db *sqlx.DB, state event.State) (uint64, error) {
	var res uint64
	query := `SELECT COUNT(*) FROM ` + tableName + `
		WHERE state = $1
	`

	err := db.GetContext(ctx, &res, query, state)
	if err != nil {
		return 0, err
	}
	return res, nil
}

func dbGetAllPendingReadyToSend(ctx context.Context, db *sqlx.DB, limit uint64) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE state = $1 AND next_attempt_at <= $2
		ORDER BY id ASC
		LIMIT $3
	`

	err := db.SelectContext(
		ctx,
		&res,
		query,
		event.StatePending,
		time.Now(),
		limit,
	)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, event.ErrNotFound)
	} else if len(res) == 0 {
		return nil, event.ErrNotFound
	}
	return res, nil
}
