package program

import (
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

// Event is a structured notification emitted by a successful instruction.
// Events are JSON encoded into the event outbox.
type Event interface {
	Type() event.Type
}

type CampaignCreatedEvent struct {
	Campaign     string `json:"campaign"`
	Authority    string `json:"authority"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	TargetAmount uint64 `json:"targetAmount"`
}

type DonationReceivedEvent struct {
	Donation      string `json:"donation"`
	Campaign      string `json:"campaign"`
	Donor         string `json:"donor"`
	Amount        uint64 `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
}

type CampaignUpdatedEvent struct {
	Campaign  string  `json:"campaign"`
	Authority string  `json:"authority"`
	NewStatus *string `json:"newStatus"`
}

type FundsWithdrawnEvent struct {
	Campaign  string `json:"campaign"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type BadgeAwardedEvent struct {
	User      string `json:"user"`
	BadgeType string `json:"badgeType"`
	Timestamp int64  `json:"timestamp"`
}

type UserInitializedEvent struct {
	User      string `json:"user"`
	Authority string `json:"authority"`
	Name      string `json:"name"`
}

type ProfileUpdatedEvent struct {
	User      string `json:"user"`
	Authority string `json:"authority"`
}

func (e *CampaignCreatedEvent) Type() event.Type  { return event.TypeCampaignCreated }
func (e *DonationReceivedEvent) Type() event.Type { return event.TypeDonationReceived }
func (e *CampaignUpdatedEvent) Type() event.Type  { return event.TypeCampaignUpdated }
func (e *FundsWithdrawnEvent) Type() event.Type   { return event.TypeFundsWithdrawn }
func (e *BadgeAwardedEvent) Type() event.Type     { return event.TypeBadgeAwarded }
func (e *UserInitializedEvent) Type() event.Type  { return event.TypeUserInitialized }
func (e *ProfileUpdatedEvent) Type() event.Type   { return event.TypeProfileUpdated }
