package pg

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRecordNotFound = errors.New("record not found")

func TestCheckNoRows(t *testing.T) {
	assert.Equal(t, errRecordNotFound, CheckNoRows(sql.ErrNoRows, errRecordNotFound))
	assert.Equal(t, errRecordNotFound, CheckNoRows(errors.Wrap(sql.ErrNoRows, "select"), errRecordNotFound))

	other := errors.New("connection reset")
	assert.Equal(t, other, CheckNoRows(other, errRecordNotFound))
	assert.NoError(t, CheckNoRows(nil, errRecordNotFound))
}

func TestCheckUniqueViolation(t *testing.T) {
	errExists := errors.New("already exists")

	violation := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.True(t, IsUniqueViolation(errors.Wrap(violation, "insert")))
	assert.Equal(t, errExists, CheckUniqueViolation(violation, errExists))

	other := &pgconn.PgError{Code: pgerrcode.CheckViolation}
	assert.False(t, IsUniqueViolation(other))
	assert.Equal(t, other, CheckUniqueViolation(other, errExists))
	assert.False(t, IsUniqueViolation(nil))
}

func TestSerializationFailure(t *testing.T) {
	cause := &pgconn.PgError{Code: pgerrcode.SerializationFailure}

	marked := markSerializationFailure(cause)
	assert.True(t, errors.Is(marked, errSerializationFailure))
	assert.Equal(t, cause, unwrapSerializationFailure(marked))

	other := errors.New("deadlock")
	assert.Equal(t, other, markSerializationFailure(other))
	assert.Equal(t, other, unwrapSerializationFailure(other))
}

func TestGetTxFromCtx(t *testing.T) {
	_, err := getTxFromCtx(context.Background(), sql.LevelReadCommitted)
	assert.Equal(t, ErrNotInTx, err)

	ctx := withTxState(context.Background(), &txState{isolation: sql.LevelReadCommitted})

	_, err = getTxFromCtx(ctx, sql.LevelReadCommitted)
	require.NoError(t, err)

	_, err = getTxFromCtx(ctx, sql.LevelSerializable)
	assert.Error(t, err)

	err = ExecuteTxWithinCtx(ctx, nil, sql.LevelDefault, func(context.Context) error { return nil })
	assert.Equal(t, ErrAlreadyInTx, err)
}
