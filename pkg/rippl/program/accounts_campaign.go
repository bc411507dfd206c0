package program

import (
	"bytes"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var (
	CampaignAccountSize = (8 + // discriminator
		32 + // authority
		4 + MaxTitleLength + // title
		4 + MaxDescriptionLength + // description
		1 + // category
		4 + MaxOrganizationNameLength + // organization_name
		8 + // target_amount
		8 + // raised_amount
		4 + // donors_count
		8 + // start_date
		8 + // end_date
		1 + // status
		4 + MaxImageUrlLength + // image_url
		1 + // is_urgent
		1) // bump
)

var CampaignAccountDiscriminator = []byte{0x32, 0x28, 0x31, 0x0b, 0x9d, 0xdc, 0xe5, 0xc0}

// MarshalCampaignAccount encodes a campaign into its on-chain account data
func MarshalCampaignAccount(record *campaign.Record) ([]byte, error) {
	authority, err := base58.Decode(record.Authority)
	if err != nil {
		return nil, errors.Wrap(err, "invalid authority")
	}

	e := binary.NewEncoder(CampaignAccountSize)
	e.WriteRaw(CampaignAccountDiscriminator)
	e.WriteKey(authority)
	e.WriteString(record.Title)
	e.WriteString(record.Description)
	e.WriteUint8(uint8(record.Category))
	e.WriteString(record.OrganizationName)
	e.WriteUint64(record.TargetAmount)
	e.WriteUint64(record.RaisedAmount)
	e.WriteUint32(record.DonorsCount)
	e.WriteInt64(record.StartDate)
	e.WriteInt64(record.EndDate)
	e.WriteUint8(uint8(record.Status))
	e.WriteString(record.ImageUrl)
	e.WriteBool(record.IsUrgent)
	e.WriteUint8(record.Bump)

	return pad(e.Bytes(), CampaignAccountSize)
}

// UnmarshalCampaignAccount decodes on-chain account data into a campaign. The
// address and vault aren't part of the data and must be set by the caller.
func UnmarshalCampaignAccount(data []byte) (*campaign.Record, error) {
	if len(data) < CampaignAccountSize {
		return nil, ErrInvalidAccountData
	}
	if !bytes.Equal(data[:8], CampaignAccountDiscriminator) {
		return nil, ErrInvalidAccountData
	}

	var record campaign.Record
	d := binary.NewDecoder(data[8:])

	authority, err := d.ReadKey()
	if err != nil {
		return nil, errors.Wrap(err, "error reading authority")
	}
	record.Authority = base58.Encode(authority)

	if record.Title, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading title")
	}
	if record.Description, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading description")
	}

	category, err := d.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "error reading category")
	}
	record.Category = campaign.Category(category)
	if !record.Category.IsValid() {
		return nil, ErrInvalidAccountData
	}

	if record.OrganizationName, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading organization name")
	}
	if record.TargetAmount, err = d.ReadUint64(); err != nil {
		return nil, errors.Wrap(err, "error reading target amount")
	}
	if record.RaisedAmount, err = d.ReadUint64(); err != nil {
		return nil, errors.Wrap(err, "error reading raised amount")
	}
	if record.DonorsCount, err = d.ReadUint32(); err != nil {
		return nil, errors.Wrap(err, "error reading donors count")
	}
	if record.StartDate, err = d.ReadInt64(); err != nil {
		return nil, errors.Wrap(err, "error reading start date")
	}
	if record.EndDate, err = d.ReadInt64(); err != nil {
		return nil, errors.Wrap(err, "error reading end date")
	}

	status, err := d.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "error reading status")
	}
	record.Status = campaign.Status(status)
	if !record.Status.IsValid() {
		return nil, ErrInvalidAccountData
	}

	if record.ImageUrl, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading image url")
	}
	if record.IsUrgent, err = d.ReadBool(); err != nil {
		return nil, errors.Wrap(err, "error reading is urgent")
	}
	if record.Bump, err = d.ReadUint8(); err != nil {
		return nil, errors.Wrap(err, "error reading bump")
	}

	return &record, nil
}
