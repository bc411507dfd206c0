package runtime

import (
	"context"
	"crypto/ed25519"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/pointer"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/rippl/program"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/system"
	"github.com/rippl-labs/rippl-server/pkg/testutil"
)

const sol = 1_000_000_000

type testEnv struct {
	t         *testing.T
	ctx       context.Context
	data      data.DatabaseData
	processor *Processor
	now       time.Time
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	db := data.NewTestDatabaseProvider()

	processor, err := NewProcessor(db, withManualTestOverrides(overrides))
	require.NoError(t, err)

	env := &testEnv{
		t:         t,
		ctx:       context.Background(),
		data:      db,
		processor: processor,
		now:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	processor.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) newWallet(lamports uint64) ed25519.PrivateKey {
	signer, err := testutil.NewRandomAccount(e.t).ToSigner()
	require.NoError(e.t, err)
	if lamports > 0 {
		testutil.FundAccount(e.t, e.data, signer.Public().(ed25519.PublicKey), lamports)
	}
	return signer
}

func (e *testEnv) submit(signers []ed25519.PrivateKey, instructions ...solana.Instruction) (*Result, []byte) {
	txn := testutil.SignTransaction(e.t, signers, instructions...)
	raw := txn.Marshal()

	result, err := e.processor.Process(e.ctx, raw)
	require.NoError(e.t, err)
	return result, raw
}

func (e *testEnv) mustSubmit(signers []ed25519.PrivateKey, instructions ...solana.Instruction) *Result {
	result, _ := e.submit(signers, instructions...)
	require.Nil(e.t, result.Err, "unexpected transaction error: %v", result.Err)
	return result
}

func (e *testEnv) lamports(key ed25519.PublicKey) uint64 {
	record, err := e.data.GetBalance(e.ctx, base58.Encode(key))
	if err == balance.ErrNotFound {
		return 0
	}
	require.NoError(e.t, err)
	return record.Lamports
}

func (e *testEnv) userAddress(authority ed25519.PrivateKey) ed25519.PublicKey {
	address, _, err := program.GetUserAddress(&program.GetUserAddressArgs{Authority: public(authority)})
	require.NoError(e.t, err)
	return address
}

func (e *testEnv) initializeInstruction(authority ed25519.PrivateKey, name string) solana.Instruction {
	return program.NewInitializeInstruction(
		&program.InitializeInstructionAccounts{
			Authority: public(authority),
			User:      e.userAddress(authority),
		},
		&program.InitializeInstructionArgs{Name: name},
	)
}

func (e *testEnv) createCampaignInstruction(authority ed25519.PrivateKey, title string, duration time.Duration) solana.Instruction {
	campaignAddress, _, err := program.GetCampaignAddress(&program.GetCampaignAddressArgs{Title: title, Authority: public(authority)})
	require.NoError(e.t, err)

	return program.NewCreateCampaignInstruction(
		&program.CreateCampaignInstructionAccounts{
			Authority: public(authority),
			User:      e.userAddress(authority),
			Campaign:  campaignAddress,
		},
		&program.CreateCampaignInstructionArgs{
			Title:            title,
			Description:      "Wells for rural communities",
			Category:         campaign.CategoryWaterSanitation,
			OrganizationName: "Water For All",
			TargetAmount:     5 * sol,
			StartDate:        e.now.Unix(),
			EndDate:          e.now.Add(duration).Unix(),
			ImageUrl:         "https://example.com/water.png",
		},
	)
}

func (e *testEnv) campaignAddress(authority ed25519.PrivateKey, title string) ed25519.PublicKey {
	address, _, err := program.GetCampaignAddress(&program.GetCampaignAddressArgs{Title: title, Authority: public(authority)})
	require.NoError(e.t, err)
	return address
}

func (e *testEnv) campaign(address ed25519.PublicKey) *campaign.Record {
	record, err := e.data.GetCampaignByAddress(e.ctx, base58.Encode(address))
	require.NoError(e.t, err)
	return record
}

func (e *testEnv) donateInstruction(donor ed25519.PrivateKey, campaignAddress ed25519.PublicKey, amount uint64) solana.Instruction {
	target := e.campaign(campaignAddress)
	sequence := program.FormatDonationSequence(target.DonorsCount)

	donationAddress, _, err := program.GetDonationAddress(&program.GetDonationAddressArgs{
		Campaign: campaignAddress,
		Donor:    public(donor),
		Sequence: sequence,
	})
	require.NoError(e.t, err)
	vault, err := base58.Decode(target.Vault)
	require.NoError(e.t, err)

	return program.NewDonateInstruction(
		&program.DonateInstructionAccounts{
			Donor:    public(donor),
			User:     e.userAddress(donor),
			Campaign: campaignAddress,
			Donation: donationAddress,
			Vault:    vault,
		},
		&program.DonateInstructionArgs{
			Amount:        amount,
			PaymentMethod: donation.PaymentMethodCryptoWallet,
			CountInString: sequence,
		},
	)
}

func (e *testEnv) updateStatusInstruction(authority ed25519.PrivateKey, campaignAddress ed25519.PublicKey, status campaign.Status) solana.Instruction {
	return program.NewUpdateCampaignInstruction(
		&program.UpdateCampaignInstructionAccounts{
			Authority: public(authority),
			Campaign:  campaignAddress,
		},
		&program.UpdateCampaignInstructionArgs{Status: &status},
	)
}

func (e *testEnv) withdrawInstruction(authority ed25519.PrivateKey, campaignAddress, recipient ed25519.PublicKey, amount uint64) solana.Instruction {
	vault, err := base58.Decode(e.campaign(campaignAddress).Vault)
	require.NoError(e.t, err)

	return program.NewWithdrawFundsInstruction(
		&program.WithdrawFundsInstructionAccounts{
			Authority: public(authority),
			Campaign:  campaignAddress,
			Vault:     vault,
			Recipient: recipient,
		},
		&program.WithdrawFundsInstructionArgs{Amount: amount},
	)
}

func assertCustomError(t *testing.T, result *Result, index int, expected *program.ProgramError) {
	require.NotNil(t, result.Err)
	require.Equal(t, solana.TransactionErrorInstructionError, result.Err.ErrorKey())

	instructionErr := result.Err.InstructionError()
	require.NotNil(t, instructionErr)
	assert.Equal(t, index, instructionErr.Index)

	custom := instructionErr.CustomError()
	require.NotNil(t, custom, "expected custom error, got %v", instructionErr.Err)
	assert.EqualValues(t, expected.Code, *custom)
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}

func TestProcessor_CleanWaterEndToEnd(t *testing.T) {
	env := setup(t, &testOverrides{relayEnabled: true})

	alice := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 30*24*time.Hour),
	)

	campaignAddress := env.campaignAddress(alice, "Clean Water")
	target := env.campaign(campaignAddress)
	assert.Equal(t, campaign.StatusActive, target.Status)
	assert.EqualValues(t, 1, target.Version)

	donor := env.newWallet(5 * sol)
	env.mustSubmit([]ed25519.PrivateKey{donor}, env.initializeInstruction(donor, "Dana"))

	donorBefore := env.lamports(public(donor))
	result := env.mustSubmit([]ed25519.PrivateKey{donor}, env.donateInstruction(donor, campaignAddress, sol))
	assert.EqualValues(t, system.LamportsPerSignature, result.Fee)

	target = env.campaign(campaignAddress)
	assert.EqualValues(t, sol, target.RaisedAmount)
	assert.EqualValues(t, 1, target.DonorsCount)
	assert.EqualValues(t, 2, target.Version)
	assert.Equal(t, result.Slot, target.Slot)

	profile, err := env.data.GetUserByAuthority(env.ctx, base58.Encode(public(donor)))
	require.NoError(t, err)
	assert.EqualValues(t, sol, profile.TotalDonations)
	assert.EqualValues(t, 1, profile.CampaignsSupported)
	require.Len(t, profile.Badges, 1)
	assert.Equal(t, user.BadgeTypeBronze, profile.Badges[0].Type)

	donations, err := env.data.GetAllDonationsByCampaign(env.ctx, target.Address)
	require.NoError(t, err)
	require.Len(t, donations, 1)
	assert.EqualValues(t, sol, donations[0].Amount)
	assert.Equal(t, result.Signature, donations[0].TransactionHash)
	assert.Equal(t, donation.StatusCompleted, donations[0].Status)

	donationRent := system.RentExemptMinimum(uint64(program.DonationAccountSize))
	vault, err := base58.Decode(target.Vault)
	require.NoError(t, err)
	assert.EqualValues(t, sol, env.lamports(vault))
	assert.Equal(t, donorBefore-sol-donationRent-system.LamportsPerSignature, env.lamports(public(donor)))

	events, err := env.data.GetAllEventsBySignature(env.ctx, result.Signature)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, event.TypeDonationReceived, events[0].Type)
	assert.Equal(t, event.TypeBadgeAwarded, events[1].Type)
	assert.Equal(t, event.StatePending, events[0].State)
	assert.JSONEq(t, `{"user":"`+profile.Address+`","badgeType":"bronze","timestamp":`+strconv.FormatInt(env.now.Unix(), 10)+`}`, string(events[1].Payload))

	record, err := env.data.GetTransaction(env.ctx, result.Signature)
	require.NoError(t, err)
	assert.Equal(t, transaction.ConfirmationFinalized, record.ConfirmationState)
	assert.Equal(t, base58.Encode(public(donor)), record.FeePayer)
}

func TestProcessor_FailedTransactionOnlyChargesFee(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice"))
	before := env.lamports(public(alice))

	result, _ := env.submit([]ed25519.PrivateKey{alice},
		env.createCampaignInstruction(alice, "Clean Water", 86399*time.Second),
	)
	assertCustomError(t, result, 0, program.ErrCampaignDurationTooShort)
	assert.Empty(t, result.Events)

	_, err := env.data.GetCampaignByAddress(env.ctx, base58.Encode(env.campaignAddress(alice, "Clean Water")))
	assert.Equal(t, campaign.ErrNotFound, err)
	assert.Equal(t, before-system.LamportsPerSignature, env.lamports(public(alice)))

	record, err := env.data.GetTransaction(env.ctx, result.Signature)
	require.NoError(t, err)
	assert.Equal(t, transaction.ConfirmationFailed, record.ConfirmationState)
	assert.JSONEq(t, `{"InstructionError":[0,{"Custom":6004}]}`, string(record.Error))

	_, err = env.data.GetAllEventsBySignature(env.ctx, result.Signature)
	assert.Equal(t, event.ErrNotFound, err)
}

func TestProcessor_FailureRollsBackEarlierInstructions(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	result, _ := env.submit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 91*24*time.Hour),
	)
	assertCustomError(t, result, 1, program.ErrCampaignDurationTooLong)

	_, err := env.data.GetUserByAddress(env.ctx, base58.Encode(env.userAddress(alice)))
	assert.Equal(t, user.ErrNotFound, err)
	assert.EqualValues(t, 0, env.lamports(env.userAddress(alice)))
	assert.Equal(t, uint64(10*sol-system.LamportsPerSignature), env.lamports(public(alice)))
}

func TestProcessor_DuplicateInitialize(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(sol)
	env.mustSubmit([]ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice"))

	result, _ := env.submit([]ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice Again"))
	assertCustomError(t, result, 0, program.ErrAccountAlreadyInUse)

	profile, err := env.data.GetUserByAddress(env.ctx, base58.Encode(env.userAddress(alice)))
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
	assert.EqualValues(t, 1, profile.Version)
}

func TestProcessor_PrefundedAddressesCanBeCreated(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	userAddress := env.userAddress(alice)
	campaignAddress := env.campaignAddress(alice, "Clean Water")

	// Anyone can send lamports to a derived address before it's created
	squatter := env.newWallet(sol)
	env.mustSubmit([]ed25519.PrivateKey{squatter},
		system.Transfer(public(squatter), userAddress, 1),
		system.Transfer(public(squatter), campaignAddress, 1),
	)
	assert.EqualValues(t, 1, env.lamports(userAddress))
	assert.EqualValues(t, 1, env.lamports(campaignAddress))

	before := env.lamports(public(alice))
	env.mustSubmit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 30*24*time.Hour),
	)

	profile, err := env.data.GetUserByAddress(env.ctx, base58.Encode(userAddress))
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, campaign.StatusActive, env.campaign(campaignAddress).Status)

	userRent := system.RentExemptMinimum(uint64(program.UserAccountSize))
	campaignRent := system.RentExemptMinimum(uint64(program.CampaignAccountSize))
	assert.Equal(t, userRent, env.lamports(userAddress))
	assert.Equal(t, campaignRent, env.lamports(campaignAddress))
	assert.Equal(t, before-system.LamportsPerSignature-(userRent-1)-(campaignRent-1), env.lamports(public(alice)))

	// Data still can't be overwritten
	result, _ := env.submit([]ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice Again"))
	assertCustomError(t, result, 0, program.ErrAccountAlreadyInUse)
}

func TestProcessor_ConcurrentDonationsOnSameSequence(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 30*24*time.Hour),
	)
	campaignAddress := env.campaignAddress(alice, "Clean Water")

	const donorCount = 16
	const amount = sol / 2

	// Every transaction is built against a donor count of 0
	require.EqualValues(t, 0, env.campaign(campaignAddress).DonorsCount)
	raw := make([][]byte, donorCount)
	for i := range raw {
		donor := env.newWallet(sol)
		env.mustSubmit([]ed25519.PrivateKey{donor}, env.initializeInstruction(donor, "Donor"))

		instruction := env.donateInstruction(donor, campaignAddress, amount)
		raw[i] = testutil.SignTransaction(t, []ed25519.PrivateKey{donor}, instruction).Marshal()
	}

	results := make([]*Result, donorCount)
	errs := make([]error, donorCount)

	var wg sync.WaitGroup
	for i := range raw {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.processor.Process(env.ctx, raw[i])
		}(i)
	}
	wg.Wait()

	var succeeded int
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	target := env.campaign(campaignAddress)
	assert.EqualValues(t, 1, target.DonorsCount)
	assert.EqualValues(t, amount, target.RaisedAmount)

	vault, err := base58.Decode(target.Vault)
	require.NoError(t, err)
	assert.EqualValues(t, amount, env.lamports(vault))

	count, err := env.data.CountDonationsByCampaign(env.ctx, target.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestProcessor_MonotonicAcrossDonations(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 30*24*time.Hour),
	)
	campaignAddress := env.campaignAddress(alice, "Clean Water")

	donors := []ed25519.PrivateKey{env.newWallet(10 * sol), env.newWallet(10 * sol)}
	for _, donor := range donors {
		env.mustSubmit([]ed25519.PrivateKey{donor}, env.initializeInstruction(donor, "Donor"))
	}

	var raised uint64
	var lastSlot uint64
	for i := 0; i < 6; i++ {
		donor := donors[i%2]
		amount := uint64(i+1) * program.MinDonationAmount

		result := env.mustSubmit([]ed25519.PrivateKey{donor}, env.donateInstruction(donor, campaignAddress, amount))
		assert.Greater(t, result.Slot, lastSlot)
		lastSlot = result.Slot
		raised += amount

		target := env.campaign(campaignAddress)
		assert.Equal(t, raised, target.RaisedAmount)
		assert.EqualValues(t, i+1, target.DonorsCount)
	}

	count, err := env.data.CountDonationsByCampaign(env.ctx, base58.Encode(campaignAddress))
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	total, err := env.data.GetTotalDonationAmountByCampaign(env.ctx, base58.Encode(campaignAddress))
	require.NoError(t, err)
	assert.Equal(t, raised, total)

	// A donation built against a stale donor count no longer lines up
	stale := env.donateInstruction(donors[0], campaignAddress, program.MinDonationAmount)
	env.mustSubmit([]ed25519.PrivateKey{donors[1]}, env.donateInstruction(donors[1], campaignAddress, program.MinDonationAmount))
	result, _ := env.submit([]ed25519.PrivateKey{donors[0]}, stale)
	require.NotNil(t, result.Err)
	assertCustomError(t, result, 0, program.ErrInvalidDonationSequence)
}

func TestProcessor_StatusTransitionsAndWithdrawal(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 30*24*time.Hour),
	)
	campaignAddress := env.campaignAddress(alice, "Clean Water")

	donor := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{donor}, env.initializeInstruction(donor, "Dana"))
	env.mustSubmit([]ed25519.PrivateKey{donor}, env.donateInstruction(donor, campaignAddress, 2*sol))

	recipient := public(env.newWallet(0))

	result, _ := env.submit([]ed25519.PrivateKey{alice}, env.withdrawInstruction(alice, campaignAddress, recipient, sol))
	assertCustomError(t, result, 0, program.ErrCampaignNotActive)

	result, _ = env.submit([]ed25519.PrivateKey{alice}, env.updateStatusInstruction(alice, campaignAddress, campaign.StatusCompleted))
	assertCustomError(t, result, 0, program.ErrInvalidStatusTransition)

	env.mustSubmit([]ed25519.PrivateKey{alice}, env.updateStatusInstruction(alice, campaignAddress, campaign.StatusInProgress))
	env.mustSubmit([]ed25519.PrivateKey{alice}, env.updateStatusInstruction(alice, campaignAddress, campaign.StatusCompleted))
	assert.Equal(t, campaign.StatusCompleted, env.campaign(campaignAddress).Status)

	vault, err := base58.Decode(env.campaign(campaignAddress).Vault)
	require.NoError(t, err)
	vaultBalance := env.lamports(vault)
	require.EqualValues(t, 2*sol, vaultBalance)

	result, _ = env.submit([]ed25519.PrivateKey{alice}, env.withdrawInstruction(alice, campaignAddress, recipient, vaultBalance+1))
	assertCustomError(t, result, 0, program.ErrInsufficientFunds)
	assert.Equal(t, vaultBalance, env.lamports(vault))

	result, _ = env.submit([]ed25519.PrivateKey{donor}, env.withdrawInstruction(donor, campaignAddress, recipient, sol))
	require.NotNil(t, result.Err)
	assertCustomError(t, result, 0, program.ErrConstraintSeeds)

	result = env.mustSubmit([]ed25519.PrivateKey{alice}, env.withdrawInstruction(alice, campaignAddress, recipient, vaultBalance))
	assert.EqualValues(t, 0, env.lamports(vault))
	assert.Equal(t, vaultBalance, env.lamports(recipient))

	events, err := env.data.GetAllEventsBySignature(env.ctx, result.Signature)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeFundsWithdrawn, events[0].Type)
	assert.Equal(t, event.StateUnknown, events[0].State)
}

func TestProcessor_NoDuplicateBadges(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 30*24*time.Hour),
	)
	campaignAddress := env.campaignAddress(alice, "Clean Water")

	donor := env.newWallet(20 * sol)
	env.mustSubmit([]ed25519.PrivateKey{donor}, env.initializeInstruction(donor, "Dana"))
	for i := 0; i < 3; i++ {
		env.mustSubmit([]ed25519.PrivateKey{donor}, env.donateInstruction(donor, campaignAddress, 2*sol))
	}

	profile, err := env.data.GetUserByAddress(env.ctx, base58.Encode(env.userAddress(donor)))
	require.NoError(t, err)
	require.Len(t, profile.Badges, 2)
	assert.Equal(t, user.BadgeTypeBronze, profile.Badges[0].Type)
	assert.Equal(t, user.BadgeTypeSilver, profile.Badges[1].Type)
	assert.NoError(t, profile.Validate())
}

func TestProcessor_TransactionLevelErrors(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(sol)

	result, err := env.processor.Process(env.ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, solana.TransactionErrorSanitizeFailure, result.Err.ErrorKey())

	// Duplicate signature
	txn := testutil.SignTransaction(t, []ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice"))
	raw := txn.Marshal()
	result, err = env.processor.Process(env.ctx, raw)
	require.NoError(t, err)
	require.Nil(t, result.Err)
	result, err = env.processor.Process(env.ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, solana.TransactionErrorDuplicateSignature, result.Err.ErrorKey())

	// Signature over a different message
	txn = testutil.SignTransaction(t, []ed25519.PrivateKey{alice}, system.Transfer(public(alice), public(env.newWallet(0)), 1))
	txn.Message.Instructions[0].Data[4] = 2
	result, err = env.processor.Process(env.ctx, txn.Marshal())
	require.NoError(t, err)
	assert.Equal(t, solana.TransactionErrorSignatureFailure, result.Err.ErrorKey())

	// Unknown program
	unknown := solana.NewInstruction(public(env.newWallet(0)), []byte{1}, solana.NewAccountMeta(public(alice), true))
	result, _ = env.submit([]ed25519.PrivateKey{alice}, unknown)
	assert.Equal(t, solana.TransactionErrorProgramAccountNotFound, result.Err.ErrorKey())

	// Payer that was never funded
	stranger := env.newWallet(0)
	result, _ = env.submit([]ed25519.PrivateKey{stranger}, env.initializeInstruction(stranger, "Stranger"))
	assert.Equal(t, solana.TransactionErrorAccountNotFound, result.Err.ErrorKey())

	// Payer that can't cover the fee
	poor := env.newWallet(system.LamportsPerSignature - 1)
	txn = testutil.SignTransaction(t, []ed25519.PrivateKey{poor}, env.initializeInstruction(poor, "Poor"))
	result, err = env.processor.Process(env.ctx, txn.Marshal())
	require.NoError(t, err)
	assert.Equal(t, solana.TransactionErrorInsufficientFundsForFee, result.Err.ErrorKey())
	assert.EqualValues(t, system.LamportsPerSignature-1, env.lamports(public(poor)))

	// Rejected transactions are never recorded
	_, err = env.data.GetTransaction(env.ctx, base58.Encode(txn.Signature()))
	assert.Equal(t, transaction.ErrNotFound, err)
}

func TestProcessor_SystemTransfer(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(sol)
	bob := public(env.newWallet(0))

	env.mustSubmit([]ed25519.PrivateKey{alice}, system.Transfer(public(alice), bob, sol/2))
	assert.EqualValues(t, sol/2, env.lamports(bob))
	assert.EqualValues(t, sol/2-system.LamportsPerSignature, env.lamports(public(alice)))

	result, _ := env.submit([]ed25519.PrivateKey{alice}, system.Transfer(public(alice), bob, sol))
	assertCustomError(t, result, 0, program.ErrSystemInsufficientFunds)
	assert.EqualValues(t, sol/2, env.lamports(bob))

	// Lamports can't be moved out of program owned data
	env.mustSubmit([]ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice"))
	transfer := system.Transfer(env.userAddress(alice), bob, 1)
	transfer.Accounts[0].IsSigner = false
	result, _ = env.submit([]ed25519.PrivateKey{alice}, transfer)
	require.NotNil(t, result.Err)
	assert.Equal(t, solana.InstructionErrorMissingRequiredSignature, result.Err.InstructionError().ErrorKey())
}

func TestProcessor_Simulate(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(sol)
	txn := testutil.SignTransaction(t, []ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice"))

	result, err := env.processor.Simulate(env.ctx, txn.Marshal())
	require.NoError(t, err)
	require.Nil(t, result.Err)
	require.Len(t, result.Events, 1)
	assert.IsType(t, &program.UserInitializedEvent{}, result.Events[0])

	_, err = env.data.GetUserByAddress(env.ctx, base58.Encode(env.userAddress(alice)))
	assert.Equal(t, user.ErrNotFound, err)
	assert.EqualValues(t, sol, env.lamports(public(alice)))

	_, err = env.data.GetTransaction(env.ctx, result.Signature)
	assert.Equal(t, transaction.ErrNotFound, err)

	// The simulated transaction can still be submitted
	result, err = env.processor.Process(env.ctx, txn.Marshal())
	require.NoError(t, err)
	assert.Nil(t, result.Err)
}

func TestProcessor_ExpireCampaign(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(10 * sol)
	env.mustSubmit([]ed25519.PrivateKey{alice},
		env.initializeInstruction(alice, "Alice"),
		env.createCampaignInstruction(alice, "Clean Water", 24*time.Hour),
	)
	campaignAddress := env.campaignAddress(alice, "Clean Water")
	address := base58.Encode(campaignAddress)

	result, err := env.processor.ExpireCampaign(env.ctx, address)
	require.NoError(t, err)
	assertCustomError(t, result, 0, program.ErrInvalidStatusTransition)

	env.now = env.now.Add(24*time.Hour + time.Second)

	donor := env.newWallet(sol)
	env.mustSubmit([]ed25519.PrivateKey{donor}, env.initializeInstruction(donor, "Dana"))
	result, _ = env.submit([]ed25519.PrivateKey{donor}, env.donateInstruction(donor, campaignAddress, program.MinDonationAmount))
	assertCustomError(t, result, 0, program.ErrCampaignEnded)

	result, err = env.processor.ExpireCampaign(env.ctx, address)
	require.NoError(t, err)
	require.Nil(t, result.Err)
	assert.Equal(t, campaign.StatusExpired, env.campaign(campaignAddress).Status)

	events, err := env.data.GetAllEventsBySignature(env.ctx, result.Signature)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"campaign":"`+address+`","authority":"`+base58.Encode(public(alice))+`","newStatus":"expired"}`, string(events[0].Payload))

	_, err = env.processor.ExpireCampaign(env.ctx, base58.Encode(public(alice)))
	assert.Equal(t, campaign.ErrNotFound, err)
}

func TestProcessor_Airdrop(t *testing.T) {
	env := setup(t, &testOverrides{})
	recipient := base58.Encode(public(env.newWallet(0)))

	_, err := env.processor.Airdrop(env.ctx, recipient, sol)
	assert.Equal(t, ErrAirdropDisabled, err)

	env = setup(t, &testOverrides{airdropEnabled: true, maxAirdropLamports: 2 * sol})
	recipientKey := public(env.newWallet(0))
	recipient = base58.Encode(recipientKey)

	_, err = env.processor.Airdrop(env.ctx, recipient, 2*sol+1)
	assert.Equal(t, ErrAirdropLimitExceeded, err)

	_, err = env.processor.Airdrop(env.ctx, "invalid", sol)
	assert.Equal(t, ErrInvalidAirdropAddress, err)

	for i := 0; i < 2; i++ {
		result, err := env.processor.Airdrop(env.ctx, recipient, sol)
		require.NoError(t, err)
		require.Nil(t, result.Err)

		record, err := env.data.GetTransaction(env.ctx, result.Signature)
		require.NoError(t, err)
		assert.Equal(t, transaction.ConfirmationFinalized, record.ConfirmationState)
	}
	assert.EqualValues(t, 2*sol, env.lamports(recipientKey))

	slot, err := env.processor.CurrentSlot(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, slot)
}

func TestProcessor_UpdateProfile(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(sol)
	env.mustSubmit([]ed25519.PrivateKey{alice}, env.initializeInstruction(alice, "Alice"))

	env.mustSubmit([]ed25519.PrivateKey{alice}, program.NewUpdateProfileInstruction(
		&program.UpdateProfileInstructionAccounts{Authority: public(alice), User: env.userAddress(alice)},
		&program.UpdateProfileInstructionArgs{
			Name:  pointer.To("Alicia"),
			Email: pointer.To("alicia@example.com"),
		},
	))

	profile, err := env.data.GetUserByAddress(env.ctx, base58.Encode(env.userAddress(alice)))
	require.NoError(t, err)
	assert.Equal(t, "Alicia", profile.Name)
	assert.Equal(t, "alicia@example.com", profile.Email)
	assert.EqualValues(t, 2, profile.Version)
}

func TestProcessor_LockAccountsForRead(t *testing.T) {
	env := setup(t, &testOverrides{})

	alice := env.newWallet(sol)
	bob := public(env.newWallet(0))
	raw := testutil.SignTransaction(t, []ed25519.PrivateKey{alice}, system.Transfer(public(alice), bob, sol/2)).Marshal()

	// Readers share the lock
	unlock := env.processor.LockAccountsForRead(bob)
	env.processor.LockAccountsForRead(bob)()

	done := make(chan *Result, 1)
	go func() {
		result, err := env.processor.Process(env.ctx, raw)
		assert.NoError(t, err)
		done <- result
	}()

	select {
	case <-done:
		require.Fail(t, "transaction wrote to an account held by a reader")
	case <-time.After(100 * time.Millisecond):
	}
	assert.EqualValues(t, 0, env.lamports(bob))

	unlock()

	select {
	case result := <-done:
		require.NotNil(t, result)
		assert.Nil(t, result.Err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "transaction never resumed")
	}
	assert.EqualValues(t, sol/2, env.lamports(bob))
}
