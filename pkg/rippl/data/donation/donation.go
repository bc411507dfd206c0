package donation

import (
	"time"

	"github.com/pkg/errors"
)

type Status uint8

// Values are the on-chain enum tags, so order matters
const (
	StatusPending Status = iota
	StatusCompleted
	StatusAllocated
	StatusSpent
)

type PaymentMethod uint8

// Values are the on-chain enum tags, so order matters
const (
	PaymentMethodCryptoWallet PaymentMethod = iota
	PaymentMethodCard
)

// Record is an immutable receipt for a single donation
type Record struct {
	Id uint64

	Address  string
	Bump     uint8
	Donor    string
	Campaign string
	Sequence uint32

	Amount            uint64
	Timestamp         int64
	Status            Status
	PaymentMethod     PaymentMethod
	TransactionHash   string
	ImpactDescription string

	Slot      uint64
	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Donor) == 0 {
		return errors.New("donor is required")
	}

	if len(r.Campaign) == 0 {
		return errors.New("campaign is required")
	}

	if r.Amount == 0 {
		return errors.New("amount is required")
	}

	if !r.Status.IsValid() {
		return errors.New("invalid status")
	}

	if !r.PaymentMethod.IsValid() {
		return errors.New("invalid payment method")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Address:  r.Address,
		Bump:     r.Bump,
		Donor:    r.Donor,
		Campaign: r.Campaign,
		Sequence: r.Sequence,

		Amount:            r.Amount,
		Timestamp:         r.Timestamp,
		Status:            r.Status,
		PaymentMethod:     r.PaymentMethod,
		TransactionHash:   r.TransactionHash,
		ImpactDescription: r.ImpactDescription,

		Slot:      r.Slot,
		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Bump = r.Bump
	dst.Donor = r.Donor
	dst.Campaign = r.Campaign
	dst.Sequence = r.Sequence

	dst.Amount = r.Amount
	dst.Timestamp = r.Timestamp
	dst.Status = r.Status
	dst.PaymentMethod = r.PaymentMethod
	dst.TransactionHash = r.TransactionHash
	dst.ImpactDescription = r.ImpactDescription

	dst.Slot = r.Slot
	dst.CreatedAt = r.CreatedAt
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusAllocated, StatusSpent:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusAllocated:
		return "allocated"
	case StatusSpent:
		return "spent"
	}
	return "unknown"
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCryptoWallet, PaymentMethodCard:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	switch m {
	case PaymentMethodCryptoWallet:
		return "crypto_wallet"
	case PaymentMethodCard:
		return "card"
	}
	return "unknown"
}
