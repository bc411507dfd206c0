package program

import (
	"bytes"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var (
	DonationAccountSize = (8 + // discriminator
		32 + // donor
		32 + // campaign
		8 + // amount
		8 + // timestamp
		1 + // status
		1 + // payment_method
		4 + MaxTransactionHashLength + // transaction_hash
		4 + MaxImpactDescriptionLength + // impact_description
		1) // bump
)

var DonationAccountDiscriminator = []byte{0xbd, 0xd2, 0x36, 0x4d, 0xd8, 0x55, 0x07, 0x44}

// MarshalDonationAccount encodes a donation into its on-chain account data
func MarshalDonationAccount(record *donation.Record) ([]byte, error) {
	donor, err := base58.Decode(record.Donor)
	if err != nil {
		return nil, errors.Wrap(err, "invalid donor")
	}
	campaignAddress, err := base58.Decode(record.Campaign)
	if err != nil {
		return nil, errors.Wrap(err, "invalid campaign")
	}

	e := binary.NewEncoder(DonationAccountSize)
	e.WriteRaw(DonationAccountDiscriminator)
	e.WriteKey(donor)
	e.WriteKey(campaignAddress)
	e.WriteUint64(record.Amount)
	e.WriteInt64(record.Timestamp)
	e.WriteUint8(uint8(record.Status))
	e.WriteUint8(uint8(record.PaymentMethod))
	e.WriteString(record.TransactionHash)
	e.WriteString(record.ImpactDescription)
	e.WriteUint8(record.Bump)

	return pad(e.Bytes(), DonationAccountSize)
}

// UnmarshalDonationAccount decodes on-chain account data into a donation. The
// address and sequence aren't part of the data and must be set by the caller.
func UnmarshalDonationAccount(data []byte) (*donation.Record, error) {
	if len(data) < DonationAccountSize {
		return nil, ErrInvalidAccountData
	}
	if !bytes.Equal(data[:8], DonationAccountDiscriminator) {
		return nil, ErrInvalidAccountData
	}

	var record donation.Record
	d := binary.NewDecoder(data[8:])

	donor, err := d.ReadKey()
	if err != nil {
		return nil, errors.Wrap(err, "error reading donor")
	}
	record.Donor = base58.Encode(donor)

	campaignAddress, err := d.ReadKey()
	if err != nil {
		return nil, errors.Wrap(err, "error reading campaign")
	}
	record.Campaign = base58.Encode(campaignAddress)

	if record.Amount, err = d.ReadUint64(); err != nil {
		return nil, errors.Wrap(err, "error reading amount")
	}
	if record.Timestamp, err = d.ReadInt64(); err != nil {
		return nil, errors.Wrap(err, "error reading timestamp")
	}

	status, err := d.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "error reading status")
	}
	record.Status = donation.Status(status)
	if !record.Status.IsValid() {
		return nil, ErrInvalidAccountData
	}

	paymentMethod, err := d.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "error reading payment method")
	}
	record.PaymentMethod = donation.PaymentMethod(paymentMethod)
	if !record.PaymentMethod.IsValid() {
		return nil, ErrInvalidAccountData
	}

	if record.TransactionHash, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading transaction hash")
	}
	if record.ImpactDescription, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading impact description")
	}
	if record.Bump, err = d.ReadUint8(); err != nil {
		return nil, errors.Wrap(err, "error reading bump")
	}

	return &record, nil
}
