package program

import (
	"crypto/ed25519"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var CreateCampaignInstructionDiscriminator = []byte{
	0x6f, 0x83, 0xbb, 0x62, 0xa0, 0xc1, 0x72, 0xf4,
}

type CreateCampaignInstructionArgs struct {
	Title            string
	Description      string
	Category         campaign.Category
	OrganizationName string
	TargetAmount     uint64
	StartDate        int64
	EndDate          int64
	ImageUrl         string
	IsUrgent         bool
}

type CreateCampaignInstructionAccounts struct {
	Authority ed25519.PublicKey
	User      ed25519.PublicKey
	Campaign  ed25519.PublicKey
}

func NewCreateCampaignInstruction(
	accounts *CreateCampaignInstructionAccounts,
	args *CreateCampaignInstructionArgs,
) solana.Instruction {
	e := binary.NewEncoder(8 + 512)
	e.WriteRaw(CreateCampaignInstructionDiscriminator)
	e.WriteString(args.Title)
	e.WriteString(args.Description)
	e.WriteUint8(uint8(args.Category))
	e.WriteString(args.OrganizationName)
	e.WriteUint64(args.TargetAmount)
	e.WriteInt64(args.StartDate)
	e.WriteInt64(args.EndDate)
	e.WriteString(args.ImageUrl)
	e.WriteBool(args.IsUrgent)

	return solana.NewInstruction(
		PROGRAM_ID,
		e.Bytes(),
		solana.NewAccountMeta(accounts.Authority, true),
		solana.NewAccountMeta(accounts.User, false),
		solana.NewAccountMeta(accounts.Campaign, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func (args *CreateCampaignInstructionArgs) Unmarshal(data []byte) error {
	d := binary.NewDecoder(data)

	var err error
	if args.Title, err = d.ReadString(); err != nil {
		return err
	}
	if args.Description, err = d.ReadString(); err != nil {
		return err
	}

	category, err := d.ReadUint8()
	if err != nil {
		return err
	}
	args.Category = campaign.Category(category)
	if !args.Category.IsValid() {
		return ErrInvalidInstructionData
	}

	if args.OrganizationName, err = d.ReadString(); err != nil {
		return err
	}
	if args.TargetAmount, err = d.ReadUint64(); err != nil {
		return err
	}
	if args.StartDate, err = d.ReadInt64(); err != nil {
		return err
	}
	if args.EndDate, err = d.ReadInt64(); err != nil {
		return err
	}
	if args.ImageUrl, err = d.ReadString(); err != nil {
		return err
	}
	if args.IsUrgent, err = d.ReadBool(); err != nil {
		return err
	}
	return d.Finish()
}

func processCreateCampaign(ctx *Context, data []byte, accounts []*AccountInfo) error {
	var args CreateCampaignInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return ErrInstructionDidNotDeserialize
	}

	if err := checkAccountCount(accounts, 4); err != nil {
		return err
	}
	authorityInfo, userInfo, campaignInfo, systemInfo := accounts[0], accounts[1], accounts[2], accounts[3]

	if err := checkSigner(authorityInfo); err != nil {
		return err
	}
	if err := checkMut(authorityInfo, userInfo, campaignInfo); err != nil {
		return err
	}
	if err := checkSystemProgram(systemInfo); err != nil {
		return err
	}

	// The title is a seed, so an oversized title fails here before any
	// business rule is evaluated
	campaignAddress, campaignBump, err := GetCampaignAddress(&GetCampaignAddressArgs{
		Title:     args.Title,
		Authority: authorityInfo.Key,
	})
	if err != nil {
		return derivationError(err)
	}
	vaultAddress, vaultBump, err := GetCampaignVaultAddress(&GetCampaignVaultAddressArgs{
		Title:     args.Title,
		Authority: authorityInfo.Key,
	})
	if err != nil {
		return derivationError(err)
	}

	if _, err := loadUser(userInfo); err != nil {
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
	if err := checkSeeds(campaignInfo, campaignAddress); err != nil {
		return err
	}

	for _, validate := range []func() error{
		func() error { return ValidateTitle(args.Title) },
		func() error { return ValidateDescription(args.Description) },
		func() error { return ValidateOrganizationName(args.OrganizationName) },
		func() error { return ValidateImageUrl(args.ImageUrl) },
		func() error { return ValidateDuration(args.StartDate, args.EndDate) },
		func() error { return ValidateTargetAmount(args.TargetAmount) },
	} {
		if err := validate(); err != nil {
			return err
		}
	}

	if err := createAccount(authorityInfo, campaignInfo, CampaignAccountSize); err != nil {
		return err
	}

	now := time.Unix(ctx.UnixTimestamp, 0)
	campaignInfo.Campaign = &campaign.Record{
		Address:   campaignInfo.Address(),
		Bump:      campaignBump,
		Vault:     toAddress(vaultAddress),
		VaultBump: vaultBump,
		Authority: authorityInfo.Address(),

		Title:            args.Title,
		Description:      args.Description,
		Category:         args.Category,
		OrganizationName: args.OrganizationName,
		ImageUrl:         args.ImageUrl,
		IsUrgent:         args.IsUrgent,

		TargetAmount: args.TargetAmount,

		StartDate: args.StartDate,
		EndDate:   args.EndDate,
		Status:    campaign.StatusActive,

		Slot:          ctx.Slot,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	ctx.emit(&CampaignCreatedEvent{
		Campaign:     campaignInfo.Address(),
		Authority:    authorityInfo.Address(),
		Title:        args.Title,
		Category:     args.Category.String(),
		TargetAmount: args.TargetAmount,
	})

	return nil
}
