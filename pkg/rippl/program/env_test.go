package program

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/solana"
)

const sol = 1_000_000_000

// testEnv executes instructions against an in-memory account set, discarding
// every change made by a failed instruction.
type testEnv struct {
	t        *testing.T
	now      int64
	slot     uint64
	accounts map[string]*AccountInfo
	events   []Event
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		t:        t,
		now:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Unix(),
		slot:     100,
		accounts: make(map[string]*AccountInfo),
	}
	env.account(SYSTEM_PROGRAM_ID).Executable = true
	env.account(PROGRAM_ID).Executable = true
	return env
}

func (e *testEnv) account(key ed25519.PublicKey) *AccountInfo {
	address := toAddress(key)
	info, ok := e.accounts[address]
	if !ok {
		info = &AccountInfo{Key: key}
		e.accounts[address] = info
	}
	return info
}

func (e *testEnv) newWallet(lamports uint64) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(e.t, err)
	e.account(priv.Public().(ed25519.PublicKey)).Lamports = lamports
	return priv
}

func (e *testEnv) execute(instruction solana.Instruction) error {
	infos := make([]*AccountInfo, len(instruction.Accounts))
	for i, meta := range instruction.Accounts {
		info := e.account(meta.PublicKey)
		info.IsSigner = meta.IsSigner
		info.IsWritable = meta.IsWritable
		infos[i] = info
	}

	snapshot := make(map[string]AccountInfo)
	for address, info := range e.accounts {
		snapshot[address] = cloneAccountInfo(info)
	}

	ctx := &Context{
		Signature:     "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		Slot:          e.slot,
		UnixTimestamp: e.now,
	}
	err := Process(ctx, instruction.Data, infos)
	if err != nil {
		for address, info := range snapshot {
			*e.accounts[address] = info
		}
		return err
	}

	e.slot++
	e.events = append(e.events, ctx.Events()...)
	return nil
}

func (e *testEnv) initializeUser(authority ed25519.PrivateKey, name string) ed25519.PublicKey {
	address, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(authority)})
	require.NoError(e.t, err)

	require.NoError(e.t, e.execute(NewInitializeInstruction(
		&InitializeInstructionAccounts{
			Authority: public(authority),
			User:      address,
		},
		&InitializeInstructionArgs{Name: name},
	)))
	return address
}

func (e *testEnv) createCampaignInstruction(authority ed25519.PrivateKey, args *CreateCampaignInstructionArgs) solana.Instruction {
	userAddress, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(authority)})
	require.NoError(e.t, err)
	campaignAddress, _, err := GetCampaignAddress(&GetCampaignAddressArgs{Title: args.Title, Authority: public(authority)})
	require.NoError(e.t, err)

	return NewCreateCampaignInstruction(
		&CreateCampaignInstructionAccounts{
			Authority: public(authority),
			User:      userAddress,
			Campaign:  campaignAddress,
		},
		args,
	)
}

func (e *testEnv) defaultCampaignArgs(title string) *CreateCampaignInstructionArgs {
	return &CreateCampaignInstructionArgs{
		Title:            title,
		Description:      "Wells for rural communities",
		Category:         campaign.CategoryWaterSanitation,
		OrganizationName: "Water For All",
		TargetAmount:     sol,
		StartDate:        e.now,
		EndDate:          e.now + 30*24*60*60,
		ImageUrl:         "https://example.com/water.png",
		IsUrgent:         true,
	}
}

func (e *testEnv) createCampaign(authority ed25519.PrivateKey, title string) ed25519.PublicKey {
	instruction := e.createCampaignInstruction(authority, e.defaultCampaignArgs(title))
	require.NoError(e.t, e.execute(instruction))
	return instruction.Accounts[2].PublicKey
}

func (e *testEnv) donateInstruction(donor ed25519.PrivateKey, campaignAddress ed25519.PublicKey, amount uint64, sequence string) solana.Instruction {
	target := e.account(campaignAddress).Campaign
	require.NotNil(e.t, target)

	authority, err := toKey(target.Authority)
	require.NoError(e.t, err)

	userAddress, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(donor)})
	require.NoError(e.t, err)
	donationAddress, _, err := GetDonationAddress(&GetDonationAddressArgs{
		Campaign: campaignAddress,
		Donor:    public(donor),
		Sequence: sequence,
	})
	require.NoError(e.t, err)
	vaultAddress, _, err := GetCampaignVaultAddress(&GetCampaignVaultAddressArgs{Title: target.Title, Authority: authority})
	require.NoError(e.t, err)

	return NewDonateInstruction(
		&DonateInstructionAccounts{
			Donor:    public(donor),
			User:     userAddress,
			Campaign: campaignAddress,
			Donation: donationAddress,
			Vault:    vaultAddress,
		},
		&DonateInstructionArgs{
			Amount:        amount,
			PaymentMethod: donation.PaymentMethodCryptoWallet,
			CountInString: sequence,
		},
	)
}

func (e *testEnv) donate(donor ed25519.PrivateKey, campaignAddress ed25519.PublicKey, amount uint64) error {
	sequence := FormatDonationSequence(e.account(campaignAddress).Campaign.DonorsCount)
	return e.execute(e.donateInstruction(donor, campaignAddress, amount, sequence))
}

func (e *testEnv) updateCampaign(authority ed25519.PrivateKey, campaignAddress ed25519.PublicKey, args *UpdateCampaignInstructionArgs) error {
	return e.execute(NewUpdateCampaignInstruction(
		&UpdateCampaignInstructionAccounts{
			Authority: public(authority),
			Campaign:  campaignAddress,
		},
		args,
	))
}

func (e *testEnv) vault(campaignAddress ed25519.PublicKey) *AccountInfo {
	vault, err := toKey(e.account(campaignAddress).Campaign.Vault)
	require.NoError(e.t, err)
	return e.account(vault)
}

func (e *testEnv) user(authority ed25519.PrivateKey) *user.Record {
	address, _, err := GetUserAddress(&GetUserAddressArgs{Authority: public(authority)})
	require.NoError(e.t, err)
	return e.account(address).User
}

func cloneAccountInfo(info *AccountInfo) AccountInfo {
	cloned := *info
	if info.User != nil {
		record := info.User.Clone()
		cloned.User = &record
	}
	if info.Campaign != nil {
		record := info.Campaign.Clone()
		cloned.Campaign = &record
	}
	if info.Donation != nil {
		record := info.Donation.Clone()
		cloned.Donation = &record
	}
	return cloned
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}
