package shortvec

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	for length := 0; length <= math.MaxUint16; length++ {
		var buf bytes.Buffer
		n, err := EncodeLen(&buf, length)
		require.NoError(t, err)
		require.Equal(t, buf.Len(), n)

		decoded, err := DecodeLen(&buf)
		require.NoError(t, err)
		require.Equal(t, length, decoded)
		require.Zero(t, buf.Len())
	}
}

func TestKnownEncodings(t *testing.T) {
	for _, tc := range []struct {
		length  int
		encoded []byte
	}{
		{0x0, []byte{0x00}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0xff, []byte{0xff, 0x01}},
		{0x100, []byte{0x80, 0x02}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
		{0xffff, []byte{0xff, 0xff, 0x03}},
	} {
		var buf bytes.Buffer
		_, err := EncodeLen(&buf, tc.length)
		require.NoError(t, err)
		assert.Equal(t, tc.encoded, buf.Bytes())
	}
}

func TestEncodeLen_OutOfRange(t *testing.T) {
	_, err := EncodeLen(&bytes.Buffer{}, math.MaxUint16+1)
	assert.Error(t, err)

	_, err = EncodeLen(&bytes.Buffer{}, -1)
	assert.Error(t, err)
}

func TestDecodeLen_Invalid(t *testing.T) {
	for _, encoded := range [][]byte{
		{0x80, 0x00},             // non-canonical zero
		{0x80, 0x80, 0x80, 0x01}, // too long
		{0xff, 0xff, 0x04},       // exceeds u16
	} {
		_, err := DecodeLen(bytes.NewReader(encoded))
		assert.Error(t, err, "%x", encoded)
	}

	_, err := DecodeLen(bytes.NewReader([]byte{0x80}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	_, err = DecodeLen(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
}
