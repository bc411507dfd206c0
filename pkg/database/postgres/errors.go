package pg

import (
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
)

var errSerializationFailure = errors.New("serialization failure")

// serializationFailure tags a postgres serialization failure so retry
// strategies can match it with errors.Is
type serializationFailure struct {
	cause error
}

func (e *serializationFailure) Error() string        { return e.cause.Error() }
func (e *serializationFailure) Unwrap() error        { return e.cause }
func (e *serializationFailure) Is(target error) bool { return target == errSerializationFailure }

func markSerializationFailure(err error) error {
	if hasCode(err, pgerrcode.SerializationFailure) {
		return &serializationFailure{cause: err}
	}
	return err
}

func unwrapSerializationFailure(err error) error {
	var tagged *serializationFailure
	if errors.As(err, &tagged) {
		return tagged.cause
	}
	return err
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return err != nil && errors.As(err, &pgErr) && pgErr.Code == code
}

// CheckNoRows maps sql.ErrNoRows to outErr
func CheckNoRows(inErr, outErr error) error {
	if IsNoRows(inErr) {
		return outErr
	}
	return inErr
}

func IsNoRows(err error) bool {
	return err != nil && errors.Is(err, sql.ErrNoRows)
}

// CheckUniqueViolation maps unique constraint violations to outErr
func CheckUniqueViolation(inErr, outErr error) error {
	if IsUniqueViolation(inErr) {
		return outErr
	}
	return inErr
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}
