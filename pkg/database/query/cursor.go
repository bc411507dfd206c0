package query

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const cursorSize = 8

// Cursor is an opaque page position, encoding the id of the last record seen
type Cursor []byte

var ErrInvalidCursor = errors.New("invalid cursor")

// ToCursor encodes a record id as a cursor
func ToCursor(id uint64) Cursor {
	c := make(Cursor, cursorSize)
	binary.BigEndian.PutUint64(c, id)
	return c
}

// ParseCursor decodes a base58 cursor previously produced by ToBase58
func ParseCursor(encoded string) (Cursor, error) {
	decoded, err := base58.Decode(encoded)
	if err != nil || len(decoded) != cursorSize {
		return nil, ErrInvalidCursor
	}
	return decoded, nil
}

// ToUint64 returns the record id the cursor points at. Empty cursors point
// before the first record.
func (c Cursor) ToUint64() uint64 {
	if len(c) != cursorSize {
		return 0
	}
	return binary.BigEndian.Uint64(c)
}

func (c Cursor) ToBase58() string {
	return base58.Encode(c)
}
