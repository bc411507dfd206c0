package program

import (
	"crypto/ed25519"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var InitializeInstructionDiscriminator = []byte{
	0xaf, 0xaf, 0x6d, 0x1f, 0x0d, 0x98, 0x9b, 0xed,
}

type InitializeInstructionArgs struct {
	Name string
}

type InitializeInstructionAccounts struct {
	Authority ed25519.PublicKey
	User      ed25519.PublicKey
}

func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) solana.Instruction {
	e := binary.NewEncoder(8 + 4 + len(args.Name))
	e.WriteRaw(InitializeInstructionDiscriminator)
	e.WriteString(args.Name)

	return solana.NewInstruction(
		PROGRAM_ID,
		e.Bytes(),
		solana.NewAccountMeta(accounts.Authority, true),
		solana.NewAccountMeta(accounts.User, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func (args *InitializeInstructionArgs) Unmarshal(data []byte) error {
	d := binary.NewDecoder(data)

	var err error
	if args.Name, err = d.ReadString(); err != nil {
		return err
	}
	return d.Finish()
}

func processInitialize(ctx *Context, data []byte, accounts []*AccountInfo) error {
	var args InitializeInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return ErrInstructionDidNotDeserialize
	}

	if err := checkAccountCount(accounts, 3); err != nil {
		return err
	}
	authorityInfo, userInfo, systemInfo := accounts[0], accounts[1], accounts[2]

	if err := checkSigner(authorityInfo); err != nil {
		return err
	}
	if err := checkMut(authorityInfo, userInfo); err != nil {
		return err
	}
	if err := checkSystemProgram(systemInfo); err != nil {
		return err
	}

	userAddress, userBump, err := GetUserAddress(&GetUserAddressArgs{
		Authority: authorityInfo.Key,
	})
	if err != nil {
		return derivationError(err)
	}
	if err := checkSeeds(userInfo, userAddress); err != nil {
		return err
	}

	if err := ValidateName(args.Name); err != nil {
		return err
	}

	if err := createAccount(authorityInfo, userInfo, UserAccountSize); err != nil {
		return err
	}

	now := time.Unix(ctx.UnixTimestamp, 0)
	userInfo.User = &user.Record{
		Address:       userInfo.Address(),
		Bump:          userBump,
		Authority:     authorityInfo.Address(),
		Name:          args.Name,
		WalletAddress: authorityInfo.Address(),
		Badges:        []*user.Badge{},
		Slot:          ctx.Slot,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	ctx.emit(&UserInitializedEvent{
		User:      userInfo.Address(),
		Authority: authorityInfo.Address(),
		Name:      args.Name,
	})

	return nil
}
