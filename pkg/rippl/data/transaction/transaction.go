package transaction

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type ConfirmationState uint8

const (
	ConfirmationUnknown ConfirmationState = iota
	ConfirmationFinalized
	ConfirmationFailed
)

// Record is a transaction that has been executed, successfully or not. Only
// transactions that paid a fee are recorded.
type Record struct {
	Id uint64

	Signature string
	Slot      uint64
	BlockTime time.Time

	FeePayer string
	Fee      uint64

	// Data is the raw wire encoded transaction
	Data []byte

	ConfirmationState ConfirmationState

	// Error is the JSON encoding of the transaction error, set when the
	// transaction failed
	Error []byte

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	if r.Slot == 0 {
		return errors.New("slot is required")
	}

	if len(r.FeePayer) == 0 {
		return errors.New("fee payer is required")
	}

	if len(r.Data) == 0 {
		return errors.New("data is required")
	}

	switch r.ConfirmationState {
	case ConfirmationFinalized:
		if len(r.Error) > 0 {
			return errors.New("finalized transaction cannot have an error")
		}
	case ConfirmationFailed:
		if !json.Valid(r.Error) {
			return errors.New("failed transaction requires a json error")
		}
	default:
		return errors.New("invalid confirmation state")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Signature: r.Signature,
		Slot:      r.Slot,
		BlockTime: r.BlockTime,

		FeePayer: r.FeePayer,
		Fee:      r.Fee,

		Data: cloneBytes(r.Data),

		ConfirmationState: r.ConfirmationState,
		Error:             cloneBytes(r.Error),

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Signature = r.Signature
	dst.Slot = r.Slot
	dst.BlockTime = r.BlockTime

	dst.FeePayer = r.FeePayer
	dst.Fee = r.Fee

	dst.Data = cloneBytes(r.Data)

	dst.ConfirmationState = r.ConfirmationState
	dst.Error = cloneBytes(r.Error)

	dst.CreatedAt = r.CreatedAt
}

func (s ConfirmationState) String() string {
	switch s {
	case ConfirmationFinalized:
		return "finalized"
	case ConfirmationFailed:
		return "failed"
	}
	return "unknown"
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	res := make([]byte, len(b))
	copy(res, b)
	return res
}
