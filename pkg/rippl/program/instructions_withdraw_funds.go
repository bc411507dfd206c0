package program

import (
	"crypto/ed25519"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var WithdrawFundsInstructionDiscriminator = []byte{
	0xf1, 0x24, 0x1d, 0x6f, 0xd0, 0x1f, 0x68, 0xd9,
}

type WithdrawFundsInstructionArgs struct {
	Amount uint64
}

type WithdrawFundsInstructionAccounts struct {
	Authority ed25519.PublicKey
	Campaign  ed25519.PublicKey
	Vault     ed25519.PublicKey
	Recipient ed25519.PublicKey
}

func NewWithdrawFundsInstruction(
	accounts *WithdrawFundsInstructionAccounts,
	args *WithdrawFundsInstructionArgs,
) solana.Instruction {
	e := binary.NewEncoder(8 + 8)
	e.WriteRaw(WithdrawFundsInstructionDiscriminator)
	e.WriteUint64(args.Amount)

	return solana.NewInstruction(
		PROGRAM_ID,
		e.Bytes(),
		solana.NewAccountMeta(accounts.Authority, true),
		solana.NewAccountMeta(accounts.Campaign, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Recipient, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func (args *WithdrawFundsInstructionArgs) Unmarshal(data []byte) error {
	d := binary.NewDecoder(data)

	var err error
	if args.Amount, err = d.ReadUint64(); err != nil {
		return err
	}
	return d.Finish()
}

func processWithdrawFunds(ctx *Context, data []byte, accounts []*AccountInfo) error {
	var args WithdrawFundsInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return ErrInstructionDidNotDeserialize
	}

	if err := checkAccountCount(accounts, 5); err != nil {
		return err
	}
	authorityInfo, campaignInfo, vaultInfo, recipientInfo, systemInfo := accounts[0], accounts[1], accounts[2], accounts[3], accounts[4]

	if err := checkSigner(authorityInfo); err != nil {
		return err
	}
	if err := checkMut(authorityInfo, campaignInfo, vaultInfo, recipientInfo); err != nil {
		return err
	}
	if err := checkSystemProgram(systemInfo); err != nil {
		return err
	}

	target, err := loadCampaign(campaignInfo)
	if err != nil {
		return err
	}

	campaignAddress, _, err := GetCampaignAddress(&GetCampaignAddressArgs{
		Title:     target.Title,
		Authority: authorityInfo.Key,
	})
	if err != nil {
		return derivationError(err)
	}
	if err := checkSeeds(campaignInfo, campaignAddress); err != nil {
		return err
	}

	campaignAuthority, err := toKey(target.Authority)
	if err != nil {
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

	if target.Authority != authorityInfo.Address() {
		return ErrInvalidAuthority
	}
	if target.Status != campaign.StatusCompleted {
		return ErrCampaignNotActive
	}
	if args.Amount > vaultInfo.Lamports {
		return ErrInsufficientFunds
	}

	if err := transfer(vaultInfo, recipientInfo, args.Amount); err != nil {
		return err
	}

	ctx.emit(&FundsWithdrawnEvent{
		Campaign:  campaignInfo.Address(),
		Recipient: recipientInfo.Address(),
		Amount:    args.Amount,
	})

	return nil
}
