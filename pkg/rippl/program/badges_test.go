package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
)

func TestAwardBadges(t *testing.T) {
	profile := &user.Record{TotalDonations: BronzeThreshold - 1}

	awarded, err := awardBadges(profile, 100)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	profile.TotalDonations = SilverThreshold
	awarded, err = awardBadges(profile, 200)
	require.NoError(t, err)
	require.Len(t, awarded, 2)
	assert.Equal(t, user.BadgeTypeBronze, awarded[0].Type)
	assert.Equal(t, user.BadgeTypeSilver, awarded[1].Type)
	assert.EqualValues(t, 200, awarded[1].DateEarned)
	assert.Equal(t, "/badges/silver.png", awarded[1].ImageUrl)

	awarded, err = awardBadges(profile, 300)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	profile.TotalDonations = ChampionThreshold
	profile.CampaignsSupported = SustainedSupporterMinDonations
	awarded, err = awardBadges(profile, 400)
	require.NoError(t, err)
	require.Len(t, awarded, 3)
	assert.Equal(t, user.BadgeTypeGold, awarded[0].Type)
	assert.Equal(t, user.BadgeTypeChampionOfChange, awarded[1].Type)
	assert.Equal(t, user.BadgeTypeSustainedSupporter, awarded[2].Type)

	require.Len(t, profile.Badges, MaxBadges)
	assert.NoError(t, (&user.Record{
		Address:       "address",
		Authority:     "authority",
		WalletAddress: "wallet",
		Name:          "Dana",
		Badges:        profile.Badges,
	}).Validate())
}

func TestAwardBadges_MaxBadgesReached(t *testing.T) {
	profile := &user.Record{
		TotalDonations: BronzeThreshold,
	}
	for i := 0; i < MaxBadges; i++ {
		profile.Badges = append(profile.Badges, &user.Badge{Type: user.BadgeTypeSustainedSupporter})
	}

	awarded, err := awardBadges(profile, 100)
	assert.Equal(t, ErrMaxBadgesReached, err)
	assert.Nil(t, awarded)
	assert.Len(t, profile.Badges, MaxBadges)
}
