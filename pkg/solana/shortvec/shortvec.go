// Package shortvec implements the compact-u16 length prefix used by the
// Solana wire format. Each byte carries seven bits, least significant first,
// with the high bit set on every byte but the last.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedSize = 3

// EncodeLen writes length to w, returning the number of bytes written
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("length %d outside [0, %d]", length, math.MaxUint16)
	}

	var encoded [maxEncodedSize]byte
	size := 0
	for {
		encoded[size] = byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			size++
			break
		}
		encoded[size] |= 0x80
		size++
	}

	return w.Write(encoded[:size])
}

// DecodeLen reads a length written by EncodeLen. Overlong and non-canonical
// encodings are rejected.
func DecodeLen(r io.Reader) (int, error) {
	var length int
	var b [1]byte
	for size := 0; size < maxEncodedSize; size++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			if size > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}

		if size > 0 && b[0] == 0 {
			return 0, errors.New("non-canonical length encoding")
		}

		length |= int(b[0]&0x7f) << (7 * size)
		if b[0]&0x80 == 0 {
			if length > math.MaxUint16 {
				return 0, errors.Errorf("length %d exceeds %d", length, math.MaxUint16)
			}
			return length, nil
		}
	}

	return 0, errors.Errorf("length encoding exceeds %d bytes", maxEncodedSize)
}
