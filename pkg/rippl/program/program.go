package program

import (
	"crypto/ed25519"
	"errors"

	"github.com/mr-tron/base58"

	"github.com/rippl-labs/rippl-server/pkg/solana/system"
)

var (
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("BHhjYYFgpQjUDx4RL7ge923gZeJ3vyQScHBwYDCFSkd7")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID = ed25519.PublicKey(system.ProgramKey[:])
)

const (
	MaxTitleLength             = 100
	MaxDescriptionLength       = 1000
	MaxOrganizationNameLength  = 100
	MaxImageUrlLength          = 200
	MaxNameLength              = 50
	MaxEmailLength             = 100
	MaxTransactionHashLength   = 100
	MaxImpactDescriptionLength = 500
	MaxBadgeDescriptionLength  = 200
	MaxBadges                  = 5
)

const (
	MinCampaignDuration = 24 * 60 * 60      // 1 day
	MaxCampaignDuration = 90 * 24 * 60 * 60 // 90 days
	MinCampaignTarget   = 100_000_000       // 0.1 SOL
	MinDonationAmount   = 1_000_000         // 0.001 SOL
)

const (
	BronzeThreshold                = 1_000_000_000  // 1 SOL
	SilverThreshold                = 5_000_000_000  // 5 SOL
	GoldThreshold                  = 10_000_000_000 // 10 SOL
	ChampionThreshold              = 50_000_000_000 // 50 SOL
	SustainedSupporterMinDonations = 10
)

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

// pad zero fills account data out to its allocated size
func pad(data []byte, size int) ([]byte, error) {
	if len(data) > size {
		return nil, errors.New("account data exceeds allocated size")
	}
	padded := make([]byte, size)
	copy(padded, data)
	return padded, nil
}
