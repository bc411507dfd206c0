package binary

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorsh_RoundTrip(t *testing.T) {
	key, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	title := "Clean Water"
	endDate := int64(-1)
	status := uint8(2)
	urgent := true

	e := NewEncoder(0)
	e.WriteKey(key)
	e.WriteString(title)
	e.WriteUint64(1_000_000_000)
	e.WriteUint32(7)
	e.WriteInt64(-12345)
	e.WriteBool(true)
	e.WriteOptionalString(nil)
	e.WriteOptionalString(&title)
	e.WriteOptionalInt64(&endDate)
	e.WriteOptionalUint8(&status)
	e.WriteOptionalBool(&urgent)

	d := NewDecoder(e.Bytes())

	actualKey, err := d.ReadKey()
	require.NoError(t, err)
	assert.EqualValues(t, key, actualKey)

	actualTitle, err := d.ReadString()
	require.NoError(t, err)
	assert.Equal(t, title, actualTitle)

	u64, err := d.ReadUint64()
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000, u64)

	u32, err := d.ReadUint32()
	require.NoError(t, err)
	assert.EqualValues(t, 7, u32)

	i64, err := d.ReadInt64()
	require.NoError(t, err)
	assert.EqualValues(t, -12345, i64)

	b, err := d.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	optString, err := d.ReadOptionalString()
	require.NoError(t, err)
	assert.Nil(t, optString)

	optString, err = d.ReadOptionalString()
	require.NoError(t, err)
	require.NotNil(t, optString)
	assert.Equal(t, title, *optString)

	optInt64, err := d.ReadOptionalInt64()
	require.NoError(t, err)
	require.NotNil(t, optInt64)
	assert.Equal(t, endDate, *optInt64)

	optUint8, err := d.ReadOptionalUint8()
	require.NoError(t, err)
	require.NotNil(t, optUint8)
	assert.Equal(t, status, *optUint8)

	optBool, err := d.ReadOptionalBool()
	require.NoError(t, err)
	require.NotNil(t, optBool)
	assert.True(t, *optBool)

	assert.NoError(t, d.Finish())
}

func TestBorsh_AdversarialInput(t *testing.T) {
	_, err := NewDecoder(nil).ReadUint64()
	assert.Equal(t, ErrUnexpectedEOF, err)

	_, err = NewDecoder([]byte{0xff, 0xff, 0xff, 0xff, 'a'}).ReadString()
	assert.Equal(t, ErrStringTooLarge, err)

	_, err = NewDecoder([]byte{2, 0, 0, 0, 0xff, 0xfe}).ReadString()
	assert.Equal(t, ErrInvalidUTF8Data, err)

	_, err = NewDecoder([]byte{2}).ReadBool()
	assert.Equal(t, ErrInvalidBool, err)

	_, err = NewDecoder([]byte{3, 0}).ReadOptionalBool()
	assert.Equal(t, ErrInvalidOption, err)

	d := NewDecoder([]byte{1, 2})
	_, err = d.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, ErrTrailingData, d.Finish())
}
