package program

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/solana"
)

func TestGetAddresses_Deterministic(t *testing.T) {
	env := newTestEnv(t)
	authority := public(env.newWallet(0))
	donor := public(env.newWallet(0))

	user1, bump1, err := GetUserAddress(&GetUserAddressArgs{Authority: authority})
	require.NoError(t, err)
	user2, bump2, err := GetUserAddress(&GetUserAddressArgs{Authority: authority})
	require.NoError(t, err)
	assert.Equal(t, user1, user2)
	assert.Equal(t, bump1, bump2)

	expected, expectedBump, err := solana.FindProgramAddressAndBump(PROGRAM_ID, UserPrefix, authority)
	require.NoError(t, err)
	assert.Equal(t, expected, user1)
	assert.Equal(t, expectedBump, bump1)

	campaignAddress, _, err := GetCampaignAddress(&GetCampaignAddressArgs{Title: "Clean Water", Authority: authority})
	require.NoError(t, err)
	vault, _, err := GetCampaignVaultAddress(&GetCampaignVaultAddressArgs{Title: "Clean Water", Authority: authority})
	require.NoError(t, err)
	other, _, err := GetCampaignAddress(&GetCampaignAddressArgs{Title: "Clean Water", Authority: donor})
	require.NoError(t, err)

	first, _, err := GetDonationAddress(&GetDonationAddressArgs{Campaign: campaignAddress, Donor: donor, Sequence: FormatDonationSequence(0)})
	require.NoError(t, err)
	second, _, err := GetDonationAddress(&GetDonationAddressArgs{Campaign: campaignAddress, Donor: donor, Sequence: FormatDonationSequence(1)})
	require.NoError(t, err)

	all := [][]byte{user1, campaignAddress, vault, other, first, second}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			assert.False(t, bytes.Equal(all[i], all[j]), "addresses %d and %d collide", i, j)
		}
	}
}

func TestGetCampaignAddress_TitleSeedLimit(t *testing.T) {
	authority := public(newTestEnv(t).newWallet(0))

	_, _, err := GetCampaignAddress(&GetCampaignAddressArgs{Title: strings.Repeat("t", 32), Authority: authority})
	assert.NoError(t, err)

	_, _, err = GetCampaignAddress(&GetCampaignAddressArgs{Title: strings.Repeat("t", 33), Authority: authority})
	assert.Equal(t, solana.ErrMaxSeedLengthExceeded, err)
	assert.Equal(t, ErrBuiltinMaxSeedLengthExceeded, derivationError(err))
}

func TestFormatDonationSequence(t *testing.T) {
	assert.Equal(t, "0", FormatDonationSequence(0))
	assert.Equal(t, "42", FormatDonationSequence(42))
	assert.Equal(t, "4294967295", FormatDonationSequence(^uint32(0)))
}
