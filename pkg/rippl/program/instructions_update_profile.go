package program

import (
	"crypto/ed25519"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var UpdateProfileInstructionDiscriminator = []byte{
	0x62, 0x43, 0x63, 0xce, 0x56, 0x73, 0xaf, 0x01,
}

// UpdateProfileInstructionArgs carries the profile fields to change. Stats,
// badges and rank are never caller writable.
type UpdateProfileInstructionArgs struct {
	Name      *string
	Email     *string
	AvatarUrl *string
}

type UpdateProfileInstructionAccounts struct {
	Authority ed25519.PublicKey
	User      ed25519.PublicKey
}

func NewUpdateProfileInstruction(
	accounts *UpdateProfileInstructionAccounts,
	args *UpdateProfileInstructionArgs,
) solana.Instruction {
	e := binary.NewEncoder(8 + 128)
	e.WriteRaw(UpdateProfileInstructionDiscriminator)
	e.WriteOptionalString(args.Name)
	e.WriteOptionalString(args.Email)
	e.WriteOptionalString(args.AvatarUrl)

	return solana.NewInstruction(
		PROGRAM_ID,
		e.Bytes(),
		solana.NewAccountMeta(accounts.Authority, true),
		solana.NewAccountMeta(accounts.User, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func (args *UpdateProfileInstructionArgs) Unmarshal(data []byte) error {
	d := binary.NewDecoder(data)

	var err error
	if args.Name, err = d.ReadOptionalString(); err != nil {
		return err
	}
	if args.Email, err = d.ReadOptionalString(); err != nil {
		return err
	}
	if args.AvatarUrl, err = d.ReadOptionalString(); err != nil {
		return err
	}
	return d.Finish()
}

func processUpdateProfile(ctx *Context, data []byte, accounts []*AccountInfo) error {
	var args UpdateProfileInstructionArgs
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

	profile, err := loadUser(userInfo)
	if err != nil {
		return err
	}

	userAddress, _, err := GetUserAddress(&GetUserAddressArgs{
		Authority: authorityInfo.Key,
	})
	if err != nil {
		return derivationError(err)
	}
	if err := checkSeeds(userInfo, userAddress); err != nil {
		return err
	}
	if profile.Authority != authorityInfo.Address() {
		return ErrInvalidAuthority
	}

	if args.Name != nil {
		if err := ValidateName(*args.Name); err != nil {
			return err
		}
	}
	if args.Email != nil {
		if err := ValidateEmail(*args.Email); err != nil {
			return err
		}
	}
	if args.AvatarUrl != nil {
		if err := ValidateAvatarUrl(*args.AvatarUrl); err != nil {
			return err
		}
	}

	if args.Name != nil {
		profile.Name = *args.Name
	}
	if args.Email != nil {
		profile.Email = *args.Email
	}
	if args.AvatarUrl != nil {
		profile.AvatarUrl = *args.AvatarUrl
	}
	profile.Slot = ctx.Slot
	profile.LastUpdatedAt = time.Unix(ctx.UnixTimestamp, 0)

	ctx.emit(&ProfileUpdatedEvent{
		User:      userInfo.Address(),
		Authority: authorityInfo.Address(),
	})

	return nil
}
