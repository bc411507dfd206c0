package event

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/pointer"
)

type State uint8

const (
	StateUnknown   State = iota // Recorded, but no relay is configured to deliver it
	StatePending                // Actively sending to the subscriber
	StateDelivered              // Subscriber acknowledged the event
	StateFailed                 // Subscriber failed to accept the event after sufficient retries
)

type Type uint8

const (
	TypeUnknown Type = iota
	TypeCampaignCreated
	TypeDonationReceived
	TypeCampaignUpdated
	TypeFundsWithdrawn
	TypeBadgeAwarded
	TypeUserInitialized
	TypeProfileUpdated
)

// Record is an event emitted by a committed transaction. Events double as an
// outbox for the relay worker.
type Record struct {
	Id uint64

	EventId   string
	Type      Type
	Signature string
	Index     uint8
	Slot      uint64

	// Payload is the JSON encoding of the event
	Payload []byte

	Attempts uint8
	State    State

	CreatedAt     time.Time
	NextAttemptAt *time.Time
}

func (r *Record) Validate() error {
	if len(r.EventId) == 0 {
		return errors.New("event id is required")
	}

	if r.Type == TypeUnknown || r.Type > TypeProfileUpdated {
		return errors.New("type is required")
	}

	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	if !json.Valid(r.Payload) {
		return errors.New("payload must be valid json")
	}

	switch r.State {
	case StatePending:
		if r.NextAttemptAt == nil || r.NextAttemptAt.IsZero() {
			return errors.New("next attempt timestamp is required")
		}
	default:
		if r.NextAttemptAt != nil {
			return errors.New("next attempt timestamp cannot be set")
		}
	}

	return nil
}

func (r *Record) Clone() Record {
	payload := make([]byte, len(r.Payload))
	copy(payload, r.Payload)

	return Record{
		Id: r.Id,

		EventId:   r.EventId,
		Type:      r.Type,
		Signature: r.Signature,
		Index:     r.Index,
		Slot:      r.Slot,

		Payload: payload,

		Attempts: r.Attempts,
		State:    r.State,

		CreatedAt:     r.CreatedAt,
		NextAttemptAt: pointer.Copy(r.NextAttemptAt),
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.EventId = r.EventId
	dst.Type = r.Type
	dst.Signature = r.Signature
	dst.Index = r.Index
	dst.Slot = r.Slot

	dst.Payload = make([]byte, len(r.Payload))
	copy(dst.Payload, r.Payload)

	dst.Attempts = r.Attempts
	dst.State = r.State

	dst.CreatedAt = r.CreatedAt
	dst.NextAttemptAt = pointer.Copy(r.NextAttemptAt)
}

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StatePending:
		return "pending"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (t Type) String() string {
	switch t {
	case TypeCampaignCreated:
		return "CampaignCreated"
	case TypeDonationReceived:
		return "DonationReceived"
	case TypeCampaignUpdated:
		return "CampaignUpdated"
	case TypeFundsWithdrawn:
		return "FundsWithdrawn"
	case TypeBadgeAwarded:
		return "BadgeAwarded"
	case TypeUserInitialized:
		return "UserInitialized"
	case TypeProfileUpdated:
		return "ProfileUpdated"
	}
	return "Unknown"
}
