package program

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/system"
)

// AccountInfo is the runtime view of an account referenced by an instruction.
// At most one of User, Campaign or Donation is set for program owned accounts.
// Accounts referenced more than once in a transaction share one AccountInfo.
type AccountInfo struct {
	Key        ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
	Executable bool
	Lamports   uint64

	User     *user.Record
	Campaign *campaign.Record
	Donation *donation.Record
}

func (a *AccountInfo) Address() string {
	return base58.Encode(a.Key)
}

// HasData reports whether the account holds program data
func (a *AccountInfo) HasData() bool {
	return a.User != nil || a.Campaign != nil || a.Donation != nil
}

// DataLen is the allocated size of the account's data
func (a *AccountInfo) DataLen() int {
	switch {
	case a.User != nil:
		return UserAccountSize
	case a.Campaign != nil:
		return CampaignAccountSize
	case a.Donation != nil:
		return DonationAccountSize
	}
	return 0
}

// Context carries the execution environment of a single transaction
type Context struct {
	Signature     string
	Slot          uint64
	UnixTimestamp int64

	events []Event
}

func (c *Context) emit(e Event) {
	c.events = append(c.events, e)
}

// Events returns every event emitted so far, in emission order
func (c *Context) Events() []Event {
	return c.events
}

// Process executes a single rippl instruction against accounts. The
// accounts are mutated in place. On error the caller must discard every
// change made to them.
func Process(ctx *Context, data []byte, accounts []*AccountInfo) error {
	if len(data) < 8 {
		return ErrInstructionMissing
	}

	discriminator, args := data[:8], data[8:]
	switch {
	case bytes.Equal(discriminator, InitializeInstructionDiscriminator):
		return processInitialize(ctx, args, accounts)
	case bytes.Equal(discriminator, CreateCampaignInstructionDiscriminator):
		return processCreateCampaign(ctx, args, accounts)
	case bytes.Equal(discriminator, DonateInstructionDiscriminator):
		return processDonate(ctx, args, accounts)
	case bytes.Equal(discriminator, UpdateCampaignInstructionDiscriminator):
		return processUpdateCampaign(ctx, args, accounts)
	case bytes.Equal(discriminator, WithdrawFundsInstructionDiscriminator):
		return processWithdrawFunds(ctx, args, accounts)
	case bytes.Equal(discriminator, UpdateProfileInstructionDiscriminator):
		return processUpdateProfile(ctx, args, accounts)
	}
	return ErrInstructionFallbackNotFound
}

// InstructionName returns the name of the instruction encoded in data
func InstructionName(data []byte) string {
	if len(data) < 8 {
		return "unknown"
	}

	discriminator := data[:8]
	switch {
	case bytes.Equal(discriminator, InitializeInstructionDiscriminator):
		return "initialize"
	case bytes.Equal(discriminator, CreateCampaignInstructionDiscriminator):
		return "create_campaign"
	case bytes.Equal(discriminator, DonateInstructionDiscriminator):
		return "donate"
	case bytes.Equal(discriminator, UpdateCampaignInstructionDiscriminator):
		return "update_campaign"
	case bytes.Equal(discriminator, WithdrawFundsInstructionDiscriminator):
		return "withdraw_funds"
	case bytes.Equal(discriminator, UpdateProfileInstructionDiscriminator):
		return "update_profile"
	}
	return "unknown"
}

func checkAccountCount(accounts []*AccountInfo, expected int) error {
	if len(accounts) < expected {
		return ErrAccountNotEnoughKeys
	}
	return nil
}

func checkSigner(account *AccountInfo) error {
	if !account.IsSigner {
		return ErrAccountNotSigner
	}
	return nil
}

func checkMut(accounts ...*AccountInfo) error {
	for _, account := range accounts {
		if !account.IsWritable {
			return ErrConstraintMut
		}
	}
	return nil
}

func checkSystemProgram(account *AccountInfo) error {
	if !bytes.Equal(account.Key, SYSTEM_PROGRAM_ID) {
		return ErrInvalidProgramId
	}
	return nil
}

func checkSeeds(account *AccountInfo, expected ed25519.PublicKey) error {
	if !bytes.Equal(account.Key, expected) {
		return ErrConstraintSeeds
	}
	return nil
}

// checkSystemAccount verifies account holds no program data
func checkSystemAccount(account *AccountInfo) error {
	if account.HasData() {
		return ErrAccountNotSystemOwned
	}
	return nil
}

func loadUser(account *AccountInfo) (*user.Record, error) {
	if !account.HasData() {
		return nil, ErrAccountNotInitialized
	}
	if account.User == nil {
		return nil, ErrAccountDiscriminatorMismatch
	}
	return account.User, nil
}

func loadCampaign(account *AccountInfo) (*campaign.Record, error) {
	if !account.HasData() {
		return nil, ErrAccountNotInitialized
	}
	if account.Campaign == nil {
		return nil, ErrAccountDiscriminatorMismatch
	}
	return account.Campaign, nil
}

// derivationError surfaces derivation failures as instruction errors rather
// than infrastructure failures
func derivationError(err error) error {
	if err == nil {
		return nil
	}
	if err == solana.ErrMaxSeedLengthExceeded {
		return ErrBuiltinMaxSeedLengthExceeded
	}
	return ErrBuiltinInvalidSeeds
}

// createAccount funds target up to the rent exempt minimum for space bytes,
// paid by payer. The caller attaches the data. A target that already holds
// lamports but no data is topped up rather than rejected, so a transfer to
// a derived address cannot block its creation.
func createAccount(payer, target *AccountInfo, space int) error {
	if target.HasData() {
		return ErrAccountAlreadyInUse
	}
	required := system.RentExemptMinimum(uint64(space))
	if target.Lamports >= required {
		return nil
	}
	return transfer(payer, target, required-target.Lamports)
}

func transfer(from, to *AccountInfo, lamports uint64) error {
	if from.Lamports < lamports {
		return ErrSystemInsufficientFunds
	}
	from.Lamports -= lamports

	if to.Lamports+lamports < to.Lamports {
		from.Lamports += lamports
		return ErrBuiltinArithmeticOverflow
	}
	to.Lamports += lamports

	return nil
}

func toAddress(key ed25519.PublicKey) string {
	return base58.Encode(key)
}

func toKey(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid address %s", address)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid address %s", address)
	}
	return decoded, nil
}

func addUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

func addUint32(a, b uint32) (uint32, bool) {
	sum := a + b
	return sum, sum >= a
}
