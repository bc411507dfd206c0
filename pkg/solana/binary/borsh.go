package binary

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	ErrUnexpectedEOF   = errors.New("unexpected end of data")
	ErrInvalidOption   = errors.New("invalid option tag")
	ErrInvalidBool     = errors.New("invalid bool value")
	ErrTrailingData    = errors.New("trailing data after decode")
	ErrStringTooLarge  = errors.New("string length exceeds remaining data")
	ErrInvalidUTF8Data = errors.New("string is not valid utf-8")
)

// Encoder writes values using the Borsh layout Anchor programs use for
// instruction arguments and account data.
type Encoder struct {
	buf []byte
}

func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) WriteRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.WriteUint8(1)
	} else {
		e.WriteUint8(0)
	}
}

func (e *Encoder) WriteUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) WriteUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) WriteInt64(v int64) {
	e.WriteUint64(uint64(v))
}

func (e *Encoder) WriteKey(key ed25519.PublicKey) {
	var padded [ed25519.PublicKeySize]byte
	copy(padded[:], key)
	e.buf = append(e.buf, padded[:]...)
}

// WriteString writes a u32 length prefixed string
func (e *Encoder) WriteString(v string) {
	e.WriteUint32(uint32(len(v)))
	e.buf = append(e.buf, v...)
}

func (e *Encoder) WriteOptionalString(v *string) {
	if v == nil {
		e.WriteUint8(0)
		return
	}
	e.WriteUint8(1)
	e.WriteString(*v)
}

func (e *Encoder) WriteOptionalInt64(v *int64) {
	if v == nil {
		e.WriteUint8(0)
		return
	}
	e.WriteUint8(1)
	e.WriteInt64(*v)
}

func (e *Encoder) WriteOptionalUint8(v *uint8) {
	if v == nil {
		e.WriteUint8(0)
		return
	}
	e.WriteUint8(1)
	e.WriteUint8(*v)
}

func (e *Encoder) WriteOptionalBool(v *bool) {
	if v == nil {
		e.WriteUint8(0)
		return
	}
	e.WriteUint8(1)
	e.WriteBool(*v)
}

// Decoder reads Borsh encoded values. Every read is bounds checked, so it's
// safe to use against untrusted input.
type Decoder struct {
	data   []byte
	offset int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func (d *Decoder) Remaining() int {
	return len(d.data) - d.offset
}

// Finish returns ErrTrailingData if any bytes remain unread
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return ErrTrailingData
	}
	return nil
}

func (d *Decoder) ReadRaw(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}
	res := make([]byte, n)
	copy(res, d.data[d.offset:d.offset+n])
	d.offset += n
	return res, nil
}

func (d *Decoder) ReadUint8() (uint8, error) {
	if d.Remaining() < 1 {
		return 0, ErrUnexpectedEOF
	}
	var v uint8
	GetUint8(d.data[d.offset:], &v, &d.offset)
	return v, nil
}

func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadUint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

func (d *Decoder) ReadUint32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, ErrUnexpectedEOF
	}
	var v uint32
	GetUint32(d.data[d.offset:], &v, &d.offset)
	return v, nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, ErrUnexpectedEOF
	}
	var v uint64
	GetUint64(d.data[d.offset:], &v, &d.offset)
	return v, nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

func (d *Decoder) ReadKey() (ed25519.PublicKey, error) {
	if d.Remaining() < ed25519.PublicKeySize {
		return nil, ErrUnexpectedEOF
	}
	var v ed25519.PublicKey
	GetKey32(d.data[d.offset:], &v, &d.offset)
	return v, nil
}

func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUint32()
	if err != nil {
		return "", err
	}
	if uint64(length) > uint64(d.Remaining()) || length > math.MaxInt32 {
		return "", ErrStringTooLarge
	}
	raw, err := d.ReadRaw(int(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8Data
	}
	return string(raw), nil
}

func (d *Decoder) readOptionTag() (bool, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidOption
	}
}

func (d *Decoder) ReadOptionalString() (*string, error) {
	present, err := d.readOptionTag()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *Decoder) ReadOptionalInt64() (*int64, error) {
	present, err := d.readOptionTag()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.ReadInt64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *Decoder) ReadOptionalUint8() (*uint8, error) {
	present, err := d.readOptionTag()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *Decoder) ReadOptionalBool() (*bool, error) {
	present, err := d.readOptionTag()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
