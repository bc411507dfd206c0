package program

import (
	"crypto/ed25519"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var DonateInstructionDiscriminator = []byte{
	0x79, 0xba, 0xda, 0xd3, 0x49, 0x46, 0xc4, 0xb4,
}

type DonateInstructionArgs struct {
	Amount        uint64
	PaymentMethod donation.PaymentMethod
	CountInString string
}

type DonateInstructionAccounts struct {
	Donor    ed25519.PublicKey
	User     ed25519.PublicKey
	Campaign ed25519.PublicKey
	Donation ed25519.PublicKey
	Vault    ed25519.PublicKey
}

func NewDonateInstruction(
	accounts *DonateInstructionAccounts,
	args *DonateInstructionArgs,
) solana.Instruction {
	e := binary.NewEncoder(8 + 8 + 1 + 4 + len(args.CountInString))
	e.WriteRaw(DonateInstructionDiscriminator)
	e.WriteUint64(args.Amount)
	e.WriteUint8(uint8(args.PaymentMethod))
	e.WriteString(args.CountInString)

	return solana.NewInstruction(
		PROGRAM_ID,
		e.Bytes(),
		solana.NewAccountMeta(accounts.Donor, true),
		solana.NewAccountMeta(accounts.User, false),
		solana.NewAccountMeta(accounts.Campaign, false),
		solana.NewAccountMeta(accounts.Donation, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func (args *DonateInstructionArgs) Unmarshal(data []byte) error {
	d := binary.NewDecoder(data)

	var err error
	if args.Amount, err = d.ReadUint64(); err != nil {
		return err
	}

	paymentMethod, err := d.ReadUint8()
	if err != nil {
		return err
	}
	args.PaymentMethod = donation.PaymentMethod(paymentMethod)
	if !args.PaymentMethod.IsValid() {
		return ErrInvalidInstructionData
	}

	if args.CountInString, err = d.ReadString(); err != nil {
		return err
	}
	return d.Finish()
}

func processDonate(ctx *Context, data []byte, accounts []*AccountInfo) error {
	var args DonateInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return ErrInstructionDidNotDeserialize
	}

	if err := checkAccountCount(accounts, 6); err != nil {
		return err
	}
	donorInfo, userInfo, campaignInfo, donationInfo, vaultInfo, systemInfo := accounts[0], accounts[1], accounts[2], accounts[3], accounts[4], accounts[5]

	if err := checkSigner(donorInfo); err != nil {
		return err
	}
	if err := checkMut(donorInfo, userInfo, campaignInfo, donationInfo, vaultInfo); err != nil {
		return err
	}
	if err := checkSystemProgram(systemInfo); err != nil {
		return err
	}

	donor, err := loadUser(userInfo)
	if err != nil {
		return err
	}
	target, err := loadCampaign(campaignInfo)
	if err != nil {
		return err
	}

	if err := ValidateDonationAmount(args.Amount); err != nil {
		return err
	}
	if target.Status != campaign.StatusActive {
		return ErrCampaignNotActive
	}
	if ctx.UnixTimestamp > target.EndDate {
		return ErrCampaignEnded
	}

	// The sequence is a seed of the donation address, so it has to be pinned
	// to the campaign's current count or donors could pick their own slot
	sequence := FormatDonationSequence(target.DonorsCount)
	if args.CountInString != sequence {
		return ErrInvalidDonationSequence
	}

	userAddress, _, err := GetUserAddress(&GetUserAddressArgs{
		Authority: donorInfo.Key,
	})
	if err != nil {
		return derivationError(err)
	}
	if err := checkSeeds(userInfo, userAddress); err != nil {
		return err
	}

	campaignAuthority, err := toKey(target.Authority)
	if err != nil {
		return err
	}
	campaignAddress, _, err := GetCampaignAddress(&GetCampaignAddressArgs{
		Title:     target.Title,
		Authority: campaignAuthority,
	})
	if err != nil {
		return derivationError(err)
	}
	if err := checkSeeds(campaignInfo, campaignAddress); err != nil {
		return err
	}

	donationAddress, donationBump, err := GetDonationAddress(&GetDonationAddressArgs{
		Campaign: campaignInfo.Key,
		Donor:    donorInfo.Key,
		Sequence: args.CountInString,
	})
	if err != nil {
		return derivationError(err)
	}
	if err := checkSeeds(donationInfo, donationAddress); err != nil {
		return err
	}

	vaultAddress, _, err := GetCampaignVaultAddress(&GetCampaignVaultAddressArgs{
		Title:     target.Title,
		Authority: campaignAuthority,
	})
	if err != nil {
		return derivationError(err)
	}
	if err := checkSeeds(vaultInfo, vaultAddress); err != nil {
		return err
	}
	if err := checkSystemAccount(vaultInfo); err != nil {
		return err
	}

	if err := createAccount(donorInfo, donationInfo, DonationAccountSize); err != nil {
		return err
	}

	// Card payments are settled off-chain into the donor's wallet before the
	// donation is recorded, so both methods move lamports here
	if err := transfer(donorInfo, vaultInfo, args.Amount); err != nil {
		return err
	}

	record := &donation.Record{
		Address:  donationInfo.Address(),
		Bump:     donationBump,
		Donor:    donorInfo.Address(),
		Campaign: campaignInfo.Address(),
		Sequence: target.DonorsCount,

		Amount:          args.Amount,
		Timestamp:       ctx.UnixTimestamp,
		Status:          donation.StatusCompleted,
		PaymentMethod:   args.PaymentMethod,
		TransactionHash: ctx.Signature,

		Slot:      ctx.Slot,
		CreatedAt: time.Unix(ctx.UnixTimestamp, 0),
	}
	if err := ValidateTransactionHash(record.TransactionHash); err != nil {
		return err
	}
	if err := ValidateImpactDescription(record.ImpactDescription); err != nil {
		return err
	}

	raised, ok := addUint64(target.RaisedAmount, args.Amount)
	if !ok {
		return ErrBuiltinArithmeticOverflow
	}
	donorsCount, ok := addUint32(target.DonorsCount, 1)
	if !ok {
		return ErrBuiltinArithmeticOverflow
	}
	totalDonations, ok := addUint64(donor.TotalDonations, args.Amount)
	if !ok {
		return ErrBuiltinArithmeticOverflow
	}
	campaignsSupported, ok := addUint32(donor.CampaignsSupported, 1)
	if !ok {
		return ErrBuiltinArithmeticOverflow
	}

	donationInfo.Donation = record

	target.RaisedAmount = raised
	target.DonorsCount = donorsCount
	target.Slot = ctx.Slot

	donor.TotalDonations = totalDonations
	donor.CampaignsSupported = campaignsSupported
	donor.Slot = ctx.Slot

	awarded, err := awardBadges(donor, ctx.UnixTimestamp)
	if err != nil {
		return err
	}

	ctx.emit(&DonationReceivedEvent{
		Donation:      donationInfo.Address(),
		Campaign:      campaignInfo.Address(),
		Donor:         donorInfo.Address(),
		Amount:        args.Amount,
		PaymentMethod: args.PaymentMethod.String(),
	})
	for _, badge := range awarded {
		ctx.emit(&BadgeAwardedEvent{
			User:      userInfo.Address(),
			BadgeType: badge.Type.String(),
			Timestamp: badge.DateEarned,
		})
	}

	return nil
}
