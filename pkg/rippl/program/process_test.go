package program

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/pointer"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/solana/system"
)

func TestProcess_UnknownInstruction(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, ErrInstructionMissing, Process(&Context{}, []byte{1, 2, 3}, nil))
	assert.Equal(t, ErrInstructionFallbackNotFound, Process(&Context{}, make([]byte, 8), nil))

	authority := env.newWallet(sol)
	instruction := NewInitializeInstruction(
		&InitializeInstructionAccounts{Authority: public(authority), User: public(authority)},
		&InitializeInstructionArgs{Name: "Alice"},
	)
	instruction.Data = append(instruction.Data, 0xff)
	assert.Equal(t, ErrInstructionDidNotDeserialize, env.execute(instruction))

	assert.Equal(t, "initialize", InstructionName(instruction.Data))
	assert.Equal(t, "unknown", InstructionName(nil))
}

func TestInitialize_HappyPath(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(sol)
	address := env.initializeUser(alice, "Alice")

	info := env.account(address)
	require.NotNil(t, info.User)
	assert.Equal(t, address, info.Key)
	assert.Equal(t, toAddress(public(alice)), info.User.Authority)
	assert.Equal(t, toAddress(public(alice)), info.User.WalletAddress)
	assert.Equal(t, "Alice", info.User.Name)
	assert.Empty(t, info.User.Email)
	assert.Empty(t, info.User.Badges)
	assert.EqualValues(t, 0, info.User.TotalDonations)
	assert.EqualValues(t, 0, info.User.CampaignsSupported)
	assert.NoError(t, info.User.Validate())

	rent := system.RentExemptMinimum(uint64(UserAccountSize))
	assert.Equal(t, rent, info.Lamports)
	assert.Equal(t, sol-rent, env.account(public(alice)).Lamports)

	require.Len(t, env.events, 1)
	initialized, ok := env.events[0].(*UserInitializedEvent)
	require.True(t, ok)
	assert.Equal(t, info.Address(), initialized.User)
	assert.Equal(t, "Alice", initialized.Name)
}

func TestInitialize_Failures(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(sol)
	env.initializeUser(alice, "Alice")
	before := env.user(alice).Clone()

	userAddress, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(alice)})
	require.NoError(t, err)

	initialize := func(authority ed25519.PrivateKey, address ed25519.PublicKey, name string) error {
		return env.execute(NewInitializeInstruction(
			&InitializeInstructionAccounts{Authority: public(authority), User: address},
			&InitializeInstructionArgs{Name: name},
		))
	}

	assert.Equal(t, ErrAccountAlreadyInUse, initialize(alice, userAddress, "Alice Again"))
	assert.Equal(t, before, env.user(alice).Clone())

	bob := env.newWallet(sol)
	assert.Equal(t, ErrConstraintSeeds, initialize(bob, userAddress, "Bob"))

	bobAddress, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(bob)})
	require.NoError(t, err)
	assert.Equal(t, ErrNameRequired, initialize(bob, bobAddress, ""))
	assert.Equal(t, ErrNameTooLong, initialize(bob, bobAddress, strings.Repeat("b", MaxNameLength+1)))
	assert.Nil(t, env.account(bobAddress).User)
	assert.EqualValues(t, 0, env.account(bobAddress).Lamports)

	poor := env.newWallet(1)
	poorAddress, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(poor)})
	require.NoError(t, err)
	assert.Equal(t, ErrSystemInsufficientFunds, initialize(poor, poorAddress, "Poor"))
	assert.EqualValues(t, 1, env.account(public(poor)).Lamports)

	instruction := NewInitializeInstruction(
		&InitializeInstructionAccounts{Authority: public(bob), User: bobAddress},
		&InitializeInstructionArgs{Name: "Bob"},
	)
	instruction.Accounts[0].IsSigner = false
	assert.Equal(t, ErrAccountNotSigner, env.execute(instruction))

	instruction.Accounts[0].IsSigner = true
	instruction.Accounts[1].IsWritable = false
	assert.Equal(t, ErrConstraintMut, env.execute(instruction))

	instruction.Accounts[1].IsWritable = true
	instruction.Accounts = instruction.Accounts[:2]
	assert.Equal(t, ErrAccountNotEnoughKeys, env.execute(instruction))

	assert.Len(t, env.events, 1)
}

func TestCreateCampaign_HappyPath(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")

	info := env.account(campaignAddress)
	require.NotNil(t, info.Campaign)
	record := info.Campaign
	assert.NoError(t, record.Validate())
	assert.Equal(t, "Clean Water", record.Title)
	assert.Equal(t, toAddress(public(alice)), record.Authority)
	assert.Equal(t, campaign.CategoryWaterSanitation, record.Category)
	assert.Equal(t, campaign.StatusActive, record.Status)
	assert.EqualValues(t, sol, record.TargetAmount)
	assert.EqualValues(t, 0, record.RaisedAmount)
	assert.EqualValues(t, 0, record.DonorsCount)
	assert.True(t, record.IsUrgent)

	vault, vaultBump, err := GetCampaignVaultAddress(&GetCampaignVaultAddressArgs{Title: "Clean Water", Authority: public(alice)})
	require.NoError(t, err)
	assert.Equal(t, toAddress(vault), record.Vault)
	assert.Equal(t, vaultBump, record.VaultBump)

	assert.Equal(t, system.RentExemptMinimum(uint64(CampaignAccountSize)), info.Lamports)

	created, ok := env.events[len(env.events)-1].(*CampaignCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, info.Address(), created.Campaign)
	assert.Equal(t, "Clean Water", created.Title)
	assert.Equal(t, "water_sanitation", created.Category)
	assert.EqualValues(t, sol, created.TargetAmount)
}

func TestCreateCampaign_DurationBoundaries(t *testing.T) {
	for _, tc := range []struct {
		duration int64
		expected error
	}{
		{MinCampaignDuration - 1, ErrCampaignDurationTooShort},
		{MinCampaignDuration, nil},
		{MaxCampaignDuration, nil},
		{MaxCampaignDuration + 1, ErrCampaignDurationTooLong},
	} {
		env := newTestEnv(t)

		alice := env.newWallet(10 * sol)
		env.initializeUser(alice, "Alice")

		args := env.defaultCampaignArgs("Clean Water")
		args.EndDate = args.StartDate + tc.duration
		instruction := env.createCampaignInstruction(alice, args)

		err := env.execute(instruction)
		assert.Equal(t, tc.expected, err, "duration %d", tc.duration)
		if tc.expected != nil {
			assert.Nil(t, env.account(instruction.Accounts[2].PublicKey).Campaign)
			assert.EqualValues(t, 0, env.account(instruction.Accounts[2].PublicKey).Lamports)
		} else {
			assert.NotNil(t, env.account(instruction.Accounts[2].PublicKey).Campaign)
		}
	}
}

func TestCreateCampaign_Failures(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	bob := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")

	args := env.defaultCampaignArgs("Clean Water")
	args.TargetAmount = MinCampaignTarget - 1
	assert.Equal(t, ErrTargetAmountTooLow, env.execute(env.createCampaignInstruction(alice, args)))

	args = env.defaultCampaignArgs("Clean Water")
	args.TargetAmount = MinCampaignTarget
	assert.NoError(t, env.execute(env.createCampaignInstruction(alice, args)))

	assert.Equal(t, ErrAccountAlreadyInUse, env.execute(env.createCampaignInstruction(alice, env.defaultCampaignArgs("Clean Water"))))

	args = env.defaultCampaignArgs("School Books")
	args.Description = strings.Repeat("d", MaxDescriptionLength+1)
	assert.Equal(t, ErrDescriptionTooLong, env.execute(env.createCampaignInstruction(alice, args)))

	args = env.defaultCampaignArgs("School Books")
	args.OrganizationName = strings.Repeat("o", MaxOrganizationNameLength+1)
	assert.Equal(t, ErrOrganizationNameTooLong, env.execute(env.createCampaignInstruction(alice, args)))

	args = env.defaultCampaignArgs("School Books")
	args.ImageUrl = strings.Repeat("i", MaxImageUrlLength+1)
	assert.Equal(t, ErrImageUrlTooLong, env.execute(env.createCampaignInstruction(alice, args)))

	assert.Equal(t, ErrTitleRequired, env.execute(env.createCampaignInstruction(alice, env.defaultCampaignArgs(""))))

	instruction := env.createCampaignInstruction(alice, env.defaultCampaignArgs("School Books"))
	longTitle := env.defaultCampaignArgs(strings.Repeat("t", 33))
	instruction.Data = NewCreateCampaignInstruction(&CreateCampaignInstructionAccounts{
		Authority: instruction.Accounts[0].PublicKey,
		User:      instruction.Accounts[1].PublicKey,
		Campaign:  instruction.Accounts[2].PublicKey,
	}, longTitle).Data
	assert.Equal(t, ErrBuiltinMaxSeedLengthExceeded, env.execute(instruction))

	// No user account for bob
	assert.Equal(t, ErrAccountNotInitialized, env.execute(env.createCampaignInstruction(bob, env.defaultCampaignArgs("Food Bank"))))
}

func TestDonate_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")

	donor := env.newWallet(5 * sol)
	env.initializeUser(donor, "Dana")
	donorBalance := env.account(public(donor)).Lamports

	instruction := env.donateInstruction(donor, campaignAddress, sol, FormatDonationSequence(0))
	env.events = nil
	require.NoError(t, env.execute(instruction))

	target := env.account(campaignAddress).Campaign
	assert.EqualValues(t, sol, target.RaisedAmount)
	assert.EqualValues(t, 1, target.DonorsCount)

	profile := env.user(donor)
	assert.EqualValues(t, sol, profile.TotalDonations)
	assert.EqualValues(t, 1, profile.CampaignsSupported)
	require.Len(t, profile.Badges, 1)
	assert.Equal(t, user.BadgeTypeBronze, profile.Badges[0].Type)
	assert.Equal(t, env.now, profile.Badges[0].DateEarned)
	assert.NoError(t, profile.Validate())

	donationInfo := env.account(instruction.Accounts[3].PublicKey)
	require.NotNil(t, donationInfo.Donation)
	record := donationInfo.Donation
	assert.NoError(t, record.Validate())
	assert.EqualValues(t, sol, record.Amount)
	assert.Equal(t, donation.StatusCompleted, record.Status)
	assert.Equal(t, donation.PaymentMethodCryptoWallet, record.PaymentMethod)
	assert.Equal(t, toAddress(public(donor)), record.Donor)
	assert.Equal(t, toAddress(campaignAddress), record.Campaign)
	assert.EqualValues(t, 0, record.Sequence)
	assert.Equal(t, env.now, record.Timestamp)

	donationRent := system.RentExemptMinimum(uint64(DonationAccountSize))
	assert.Equal(t, donationRent, donationInfo.Lamports)
	assert.EqualValues(t, sol, env.vault(campaignAddress).Lamports)
	assert.Equal(t, donorBalance-sol-donationRent, env.account(public(donor)).Lamports)

	require.Len(t, env.events, 2)
	received, ok := env.events[0].(*DonationReceivedEvent)
	require.True(t, ok)
	assert.EqualValues(t, sol, received.Amount)
	assert.Equal(t, "crypto_wallet", received.PaymentMethod)
	awarded, ok := env.events[1].(*BadgeAwardedEvent)
	require.True(t, ok)
	assert.Equal(t, "bronze", awarded.BadgeType)
	assert.Equal(t, profile.Address, awarded.User)
}

func TestDonate_Monotonic(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")

	donor := env.newWallet(100 * sol)
	env.initializeUser(donor, "Dana")

	amounts := []uint64{MinDonationAmount, 3 * MinDonationAmount, sol / 2, 7 * MinDonationAmount}

	var total uint64
	for i, amount := range amounts {
		require.NoError(t, env.donate(donor, campaignAddress, amount))
		total += amount

		target := env.account(campaignAddress).Campaign
		assert.Equal(t, total, target.RaisedAmount)
		assert.EqualValues(t, i+1, target.DonorsCount)
		assert.Equal(t, total, env.user(donor).TotalDonations)
		assert.EqualValues(t, i+1, env.user(donor).CampaignsSupported)
		assert.Equal(t, total, env.vault(campaignAddress).Lamports)
	}
	assert.Empty(t, env.user(donor).Badges)
}

func TestDonate_Failures(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")

	donor := env.newWallet(2 * sol)
	env.initializeUser(donor, "Dana")

	snapshot := func() (campaign.Record, user.Record, uint64) {
		return env.account(campaignAddress).Campaign.Clone(), env.user(donor).Clone(), env.account(public(donor)).Lamports
	}
	campaignBefore, userBefore, balanceBefore := snapshot()
	assertUnchanged := func() {
		campaignAfter, userAfter, balanceAfter := snapshot()
		assert.Equal(t, campaignBefore, campaignAfter)
		assert.Equal(t, userBefore, userAfter)
		assert.Equal(t, balanceBefore, balanceAfter)
	}

	assert.Equal(t, ErrDonationTooLow, env.donate(donor, campaignAddress, MinDonationAmount-1))
	assertUnchanged()

	assert.Equal(t, ErrInvalidDonationSequence, env.execute(env.donateInstruction(donor, campaignAddress, sol, FormatDonationSequence(1))))
	assertUnchanged()

	assert.Equal(t, ErrSystemInsufficientFunds, env.donate(donor, campaignAddress, 3*sol))
	assertUnchanged()

	stranger := env.newWallet(2 * sol)
	assert.Equal(t, ErrAccountNotInitialized, env.donate(stranger, campaignAddress, sol))

	env.now = env.account(campaignAddress).Campaign.EndDate
	require.NoError(t, env.donate(donor, campaignAddress, MinDonationAmount))

	env.now++
	assert.Equal(t, ErrCampaignEnded, env.donate(donor, campaignAddress, MinDonationAmount))
	env.now--

	require.NoError(t, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		Status: statusPtr(campaign.StatusInProgress),
	}))
	assert.Equal(t, ErrCampaignNotActive, env.donate(donor, campaignAddress, MinDonationAmount))
}

func TestDonate_MultipleTiersAwardedAscending(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")

	donor := env.newWallet(100 * sol)
	env.initializeUser(donor, "Dana")

	require.NoError(t, env.donate(donor, campaignAddress, 10*sol))

	badges := env.user(donor).Badges
	require.Len(t, badges, 3)
	assert.Equal(t, user.BadgeTypeBronze, badges[0].Type)
	assert.Equal(t, user.BadgeTypeSilver, badges[1].Type)
	assert.Equal(t, user.BadgeTypeGold, badges[2].Type)

	// Crossing a held threshold again awards nothing
	env.events = nil
	require.NoError(t, env.donate(donor, campaignAddress, sol))
	assert.Len(t, env.user(donor).Badges, 3)
	require.Len(t, env.events, 1)
	assert.IsType(t, &DonationReceivedEvent{}, env.events[0])
}

func TestDonate_SustainedSupporter(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")

	donor := env.newWallet(sol)
	env.initializeUser(donor, "Dana")

	for i := 0; i < SustainedSupporterMinDonations-1; i++ {
		require.NoError(t, env.donate(donor, campaignAddress, MinDonationAmount))
	}
	assert.Empty(t, env.user(donor).Badges)

	require.NoError(t, env.donate(donor, campaignAddress, MinDonationAmount))
	badges := env.user(donor).Badges
	require.Len(t, badges, 1)
	assert.Equal(t, user.BadgeTypeSustainedSupporter, badges[0].Type)
}

func TestUpdateCampaign_StatusTransitions(t *testing.T) {
	for _, tc := range []struct {
		path     []campaign.Status
		expected error
	}{
		{[]campaign.Status{campaign.StatusInProgress}, nil},
		{[]campaign.Status{campaign.StatusInProgress, campaign.StatusCompleted}, nil},
		{[]campaign.Status{campaign.StatusCompleted}, ErrInvalidStatusTransition},
		{[]campaign.Status{campaign.StatusActive}, ErrInvalidStatusTransition},
		{[]campaign.Status{campaign.StatusExpired}, ErrInvalidStatusTransition},
		{[]campaign.Status{campaign.StatusInProgress, campaign.StatusActive}, ErrInvalidStatusTransition},
		{[]campaign.Status{campaign.StatusInProgress, campaign.StatusCompleted, campaign.StatusInProgress}, ErrInvalidStatusTransition},
	} {
		env := newTestEnv(t)

		alice := env.newWallet(10 * sol)
		env.initializeUser(alice, "Alice")
		campaignAddress := env.createCampaign(alice, "Clean Water")

		var err error
		for _, status := range tc.path {
			err = env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{Status: statusPtr(status)})
			if err != nil {
				break
			}
		}
		assert.Equal(t, tc.expected, err, "path %v", tc.path)

		if tc.expected == nil {
			assert.Equal(t, tc.path[len(tc.path)-1], env.account(campaignAddress).Campaign.Status)
		}
	}
}

func TestUpdateCampaign_FieldsAndAuthority(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")
	before := env.account(campaignAddress).Campaign.Clone()

	// A failing field rejects every other change in the same call
	err := env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		Description: pointer.To("Updated"),
		Status:      statusPtr(campaign.StatusCompleted),
	})
	assert.Equal(t, ErrInvalidStatusTransition, err)
	assert.Equal(t, before, env.account(campaignAddress).Campaign.Clone())

	assert.Equal(t, ErrCampaignDurationTooShort, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		EndDate: pointer.To(env.now),
	}))
	assert.Equal(t, ErrCampaignDurationTooLong, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		EndDate: pointer.To(before.StartDate + MaxCampaignDuration + 1),
	}))

	bob := env.newWallet(sol)
	assert.Equal(t, ErrConstraintSeeds, env.updateCampaign(bob, campaignAddress, &UpdateCampaignInstructionArgs{
		Description: pointer.To("Hijacked"),
	}))

	env.events = nil
	require.NoError(t, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		Description: pointer.To("Updated"),
		ImageUrl:    pointer.To("https://example.com/updated.png"),
		EndDate:     pointer.To(before.StartDate + MaxCampaignDuration),
		IsUrgent:    pointer.To(false),
	}))

	after := env.account(campaignAddress).Campaign
	assert.Equal(t, "Updated", after.Description)
	assert.Equal(t, "https://example.com/updated.png", after.ImageUrl)
	assert.Equal(t, before.StartDate+MaxCampaignDuration, after.EndDate)
	assert.False(t, after.IsUrgent)
	assert.Equal(t, campaign.StatusActive, after.Status)
	assert.Equal(t, before.Title, after.Title)

	require.Len(t, env.events, 1)
	updated, ok := env.events[0].(*CampaignUpdatedEvent)
	require.True(t, ok)
	assert.Nil(t, updated.NewStatus)
}

func TestWithdrawFunds(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")

	donor := env.newWallet(10 * sol)
	env.initializeUser(donor, "Dana")
	require.NoError(t, env.donate(donor, campaignAddress, 2*sol))

	recipient := env.newWallet(0)
	withdraw := func(authority ed25519.PrivateKey, amount uint64) error {
		vault, err := toKey(env.account(campaignAddress).Campaign.Vault)
		require.NoError(t, err)
		return env.execute(NewWithdrawFundsInstruction(
			&WithdrawFundsInstructionAccounts{
				Authority: public(authority),
				Campaign:  campaignAddress,
				Vault:     vault,
				Recipient: public(recipient),
			},
			&WithdrawFundsInstructionArgs{Amount: amount},
		))
	}

	assert.Equal(t, ErrCampaignNotActive, withdraw(alice, sol))

	require.NoError(t, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{Status: statusPtr(campaign.StatusInProgress)}))
	assert.Equal(t, ErrCampaignNotActive, withdraw(alice, sol))

	require.NoError(t, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{Status: statusPtr(campaign.StatusCompleted)}))

	assert.Equal(t, ErrConstraintSeeds, withdraw(donor, sol))

	balance := env.vault(campaignAddress).Lamports
	assert.Equal(t, ErrInsufficientFunds, withdraw(alice, balance+1))
	assert.Equal(t, balance, env.vault(campaignAddress).Lamports)

	env.events = nil
	require.NoError(t, withdraw(alice, balance))
	assert.EqualValues(t, 0, env.vault(campaignAddress).Lamports)
	assert.Equal(t, balance, env.account(public(recipient)).Lamports)

	require.Len(t, env.events, 1)
	withdrawn, ok := env.events[0].(*FundsWithdrawnEvent)
	require.True(t, ok)
	assert.Equal(t, balance, withdrawn.Amount)
	assert.Equal(t, toAddress(public(recipient)), withdrawn.Recipient)

	// Raised amount is a historical total and isn't reduced by withdrawals
	assert.EqualValues(t, 2*sol, env.account(campaignAddress).Campaign.RaisedAmount)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(sol)
	userAddress := env.initializeUser(alice, "Alice")

	update := func(authority ed25519.PrivateKey, args *UpdateProfileInstructionArgs) error {
		return env.execute(NewUpdateProfileInstruction(
			&UpdateProfileInstructionAccounts{Authority: public(authority), User: userAddress},
			args,
		))
	}

	assert.Equal(t, ErrInvalidEmailFormat, update(alice, &UpdateProfileInstructionArgs{
		Name:  pointer.To("Alicia"),
		Email: pointer.To("not-an-email"),
	}))
	assert.Equal(t, "Alice", env.user(alice).Name)

	assert.Equal(t, ErrNameRequired, update(alice, &UpdateProfileInstructionArgs{Name: pointer.To("")}))

	bob := env.newWallet(sol)
	assert.Equal(t, ErrConstraintSeeds, update(bob, &UpdateProfileInstructionArgs{Name: pointer.To("Bob")}))

	require.NoError(t, update(alice, &UpdateProfileInstructionArgs{
		Email:     pointer.To("alice@example.com"),
		AvatarUrl: pointer.To("https://example.com/alice.png"),
	}))
	profile := env.user(alice)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, "https://example.com/alice.png", profile.AvatarUrl)
	assert.IsType(t, &ProfileUpdatedEvent{}, env.events[len(env.events)-1])
}

func TestExpireCampaign(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")
	info := env.account(campaignAddress)

	ctx := &Context{Slot: env.slot, UnixTimestamp: info.Campaign.EndDate}
	assert.Equal(t, ErrInvalidStatusTransition, ExpireCampaign(ctx, info))
	assert.Equal(t, campaign.StatusActive, info.Campaign.Status)

	ctx.UnixTimestamp++
	require.NoError(t, ExpireCampaign(ctx, info))
	assert.Equal(t, campaign.StatusExpired, info.Campaign.Status)

	require.Len(t, ctx.Events(), 1)
	updated, ok := ctx.Events()[0].(*CampaignUpdatedEvent)
	require.True(t, ok)
	require.NotNil(t, updated.NewStatus)
	assert.Equal(t, "expired", *updated.NewStatus)

	assert.Equal(t, ErrInvalidStatusTransition, ExpireCampaign(ctx, info))
	assert.Equal(t, ErrInvalidStatusTransition, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		Status: statusPtr(campaign.StatusInProgress),
	}))

	assert.Equal(t, ErrAccountNotInitialized, ExpireCampaign(ctx, &AccountInfo{Key: public(alice)}))
}

func TestToInstructionError(t *testing.T) {
	converted, ok := ToInstructionError(ErrDonationTooLow)
	require.True(t, ok)
	assert.EqualValues(t, 6009, converted)

	converted, ok = ToInstructionError(ErrBuiltinArithmeticOverflow)
	require.True(t, ok)
	assert.Equal(t, ErrBuiltinArithmeticOverflow, converted)

	_, ok = ToInstructionError(ErrInvalidAccountData)
	assert.False(t, ok)

	registered, ok := GetProgramError(6018)
	require.True(t, ok)
	assert.Equal(t, ErrMaxBadgesReached, registered)
}

func statusPtr(status campaign.Status) *campaign.Status {
	return &status
}

func TestInitialize_PrefundedAddress(t *testing.T) {
	env := newTestEnv(t)
	rent := system.RentExemptMinimum(uint64(UserAccountSize))

	for _, tc := range []struct {
		name      string
		prefunded uint64
		charged   uint64
	}{
		{name: "partial", prefunded: 1, charged: rent - 1},
		{name: "exact", prefunded: rent, charged: 0},
		{name: "excess", prefunded: rent + sol, charged: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			alice := env.newWallet(sol)
			userAddress, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(alice)})
			require.NoError(t, err)
			env.account(userAddress).Lamports = tc.prefunded

			require.NoError(t, env.execute(NewInitializeInstruction(
				&InitializeInstructionAccounts{Authority: public(alice), User: userAddress},
				&InitializeInstructionArgs{Name: "Alice"},
			)))

			info := env.account(userAddress)
			require.NotNil(t, info.User)
			assert.Equal(t, "Alice", info.User.Name)
			assert.Equal(t, tc.prefunded+tc.charged, info.Lamports)
			assert.Equal(t, sol-tc.charged, env.account(public(alice)).Lamports)
		})
	}
}

func TestUpdateCampaign_AfterEndDate(t *testing.T) {
	env := newTestEnv(t)

	alice := env.newWallet(10 * sol)
	env.initializeUser(alice, "Alice")
	campaignAddress := env.createCampaign(alice, "Clean Water")
	donor := env.newWallet(sol)
	env.initializeUser(donor, "Dana")

	env.now = env.account(campaignAddress).Campaign.EndDate + 1
	assert.Equal(t, ErrCampaignEnded, env.donate(donor, campaignAddress, MinDonationAmount))

	// The authority can still close out an ended campaign
	require.NoError(t, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{Status: statusPtr(campaign.StatusInProgress)}))
	require.NoError(t, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		Description: pointer.To("Wells delivered"),
		Status:      statusPtr(campaign.StatusCompleted),
	}))
	target := env.account(campaignAddress).Campaign
	assert.Equal(t, campaign.StatusCompleted, target.Status)
	assert.Equal(t, "Wells delivered", target.Description)

	// but can't reopen it by moving the end date into the past
	assert.Equal(t, ErrCampaignDurationTooShort, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		EndDate: pointer.To(env.now - 1),
	}))
	assert.Equal(t, ErrInvalidStatusTransition, env.updateCampaign(alice, campaignAddress, &UpdateCampaignInstructionArgs{
		Status: statusPtr(campaign.StatusInProgress),
	}))
}
