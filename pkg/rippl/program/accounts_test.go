package program

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
)

func TestAccountSizes(t *testing.T) {
	assert.Equal(t, 2556, UserAccountSize)
	assert.Equal(t, 1496, CampaignAccountSize)
	assert.Equal(t, 699, DonationAccountSize)
}

func TestDiscriminators(t *testing.T) {
	for name, actual := range map[string][]byte{
		"account:User":           UserAccountDiscriminator,
		"account:Campaign":       CampaignAccountDiscriminator,
		"account:Donation":       DonationAccountDiscriminator,
		"global:initialize":      InitializeInstructionDiscriminator,
		"global:create_campaign": CreateCampaignInstructionDiscriminator,
		"global:donate":          DonateInstructionDiscriminator,
		"global:update_campaign": UpdateCampaignInstructionDiscriminator,
		"global:withdraw_funds":  WithdrawFundsInstructionDiscriminator,
		"global:update_profile":  UpdateProfileInstructionDiscriminator,
	} {
		expected := sha256.Sum256([]byte(name))
		assert.Equal(t, expected[:8], actual, name)
	}
}

func TestUserAccount_RoundTrip(t *testing.T) {
	authority := newKey(t)

	record := &user.Record{
		Bump:               254,
		Authority:          authority,
		Name:               "Alice",
		WalletAddress:      authority,
		Email:              "alice@example.com",
		AvatarUrl:          "https://example.com/alice.png",
		TotalDonations:     6 * sol,
		CampaignsSupported: 4,
		ImpactMetrics: user.ImpactMetrics{
			MealsProvided: 12,
			TreesPlanted:  3,
		},
		Badges: []*user.Badge{
			{Type: user.BadgeTypeBronze, Description: "Bronze", ImageUrl: "/badges/bronze.png", DateEarned: 100},
			{Type: user.BadgeTypeSilver, Description: "Silver", ImageUrl: "/badges/silver.png", DateEarned: 200},
		},
		Rank: 7,
	}

	data, err := MarshalUserAccount(record)
	require.NoError(t, err)
	assert.Len(t, data, UserAccountSize)

	decoded, err := UnmarshalUserAccount(data)
	require.NoError(t, err)
	assert.Equal(t, record.Authority, decoded.Authority)
	assert.Equal(t, record.Name, decoded.Name)
	assert.Equal(t, record.WalletAddress, decoded.WalletAddress)
	assert.Equal(t, record.Email, decoded.Email)
	assert.Equal(t, record.AvatarUrl, decoded.AvatarUrl)
	assert.Equal(t, record.TotalDonations, decoded.TotalDonations)
	assert.Equal(t, record.CampaignsSupported, decoded.CampaignsSupported)
	assert.Equal(t, record.ImpactMetrics, decoded.ImpactMetrics)
	assert.Equal(t, record.Badges, decoded.Badges)
	assert.Equal(t, record.Rank, decoded.Rank)
	assert.Equal(t, record.Bump, decoded.Bump)

	record.Badges = make([]*user.Badge, MaxBadges+1)
	_, err = MarshalUserAccount(record)
	assert.Error(t, err)
}

func TestCampaignAccount_RoundTrip(t *testing.T) {
	record := &campaign.Record{
		Bump:             253,
		Authority:        newKey(t),
		Title:            "Clean Water",
		Description:      "Wells for rural communities",
		Category:         campaign.CategoryWaterSanitation,
		OrganizationName: "Water For All",
		ImageUrl:         "https://example.com/water.png",
		IsUrgent:         true,
		TargetAmount:     10 * sol,
		RaisedAmount:     sol,
		DonorsCount:      1,
		StartDate:        time.Now().Unix(),
		EndDate:          time.Now().Add(24 * time.Hour).Unix(),
		Status:           campaign.StatusInProgress,
	}

	data, err := MarshalCampaignAccount(record)
	require.NoError(t, err)
	assert.Len(t, data, CampaignAccountSize)

	decoded, err := UnmarshalCampaignAccount(data)
	require.NoError(t, err)
	assert.Equal(t, record.Authority, decoded.Authority)
	assert.Equal(t, record.Title, decoded.Title)
	assert.Equal(t, record.Description, decoded.Description)
	assert.Equal(t, record.Category, decoded.Category)
	assert.Equal(t, record.OrganizationName, decoded.OrganizationName)
	assert.Equal(t, record.ImageUrl, decoded.ImageUrl)
	assert.Equal(t, record.IsUrgent, decoded.IsUrgent)
	assert.Equal(t, record.TargetAmount, decoded.TargetAmount)
	assert.Equal(t, record.RaisedAmount, decoded.RaisedAmount)
	assert.Equal(t, record.DonorsCount, decoded.DonorsCount)
	assert.Equal(t, record.StartDate, decoded.StartDate)
	assert.Equal(t, record.EndDate, decoded.EndDate)
	assert.Equal(t, record.Status, decoded.Status)
	assert.Equal(t, record.Bump, decoded.Bump)
}

func TestDonationAccount_RoundTrip(t *testing.T) {
	record := &donation.Record{
		Bump:              252,
		Donor:             newKey(t),
		Campaign:          newKey(t),
		Amount:            sol,
		Timestamp:         time.Now().Unix(),
		Status:            donation.StatusCompleted,
		PaymentMethod:     donation.PaymentMethodCard,
		TransactionHash:   "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		ImpactDescription: "Funded one well",
	}

	data, err := MarshalDonationAccount(record)
	require.NoError(t, err)
	assert.Len(t, data, DonationAccountSize)

	decoded, err := UnmarshalDonationAccount(data)
	require.NoError(t, err)
	assert.Equal(t, record.Donor, decoded.Donor)
	assert.Equal(t, record.Campaign, decoded.Campaign)
	assert.Equal(t, record.Amount, decoded.Amount)
	assert.Equal(t, record.Timestamp, decoded.Timestamp)
	assert.Equal(t, record.Status, decoded.Status)
	assert.Equal(t, record.PaymentMethod, decoded.PaymentMethod)
	assert.Equal(t, record.TransactionHash, decoded.TransactionHash)
	assert.Equal(t, record.ImpactDescription, decoded.ImpactDescription)
	assert.Equal(t, record.Bump, decoded.Bump)
}

func TestUnmarshalAccount_InvalidData(t *testing.T) {
	_, err := UnmarshalUserAccount(make([]byte, UserAccountSize-1))
	assert.Equal(t, ErrInvalidAccountData, err)

	_, err = UnmarshalUserAccount(make([]byte, UserAccountSize))
	assert.Equal(t, ErrInvalidAccountData, err)

	record := &donation.Record{
		Donor:    newKey(t),
		Campaign: newKey(t),
		Amount:   sol,
	}
	data, err := MarshalDonationAccount(record)
	require.NoError(t, err)

	_, err = UnmarshalCampaignAccount(append(data, make([]byte, CampaignAccountSize)...))
	assert.Equal(t, ErrInvalidAccountData, err)

	// Unknown payment method tag
	data[8+32+32+8+8+1] = 0xff
	_, err = UnmarshalDonationAccount(data)
	assert.Equal(t, ErrInvalidAccountData, err)
}

func newKey(t *testing.T) string {
	return base58.Encode(public(newTestEnv(t).newWallet(0)))
}
