package program

import (
	"bytes"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/solana/binary"
)

var (
	BadgeSize = (1 + // badge_type
		4 + MaxBadgeDescriptionLength + // description
		4 + MaxImageUrlLength + // image_url
		8) // date_earned

	UserAccountSize = (8 + // discriminator
		32 + // authority
		4 + MaxNameLength + // name
		32 + // wallet_address
		4 + MaxEmailLength + // email
		4 + MaxImageUrlLength + // avatar_url
		8 + // total_donations
		4 + // campaigns_supported
		4*4 + // impact_metrics
		4 + MaxBadges*BadgeSize + // badges
		4 + // rank
		1) // bump
)

var UserAccountDiscriminator = []byte{0x9f, 0x75, 0x5f, 0xe3, 0xef, 0x97, 0x3a, 0xec}

// MarshalUserAccount encodes a user into its on-chain account data
func MarshalUserAccount(record *user.Record) ([]byte, error) {
	authority, err := base58.Decode(record.Authority)
	if err != nil {
		return nil, errors.Wrap(err, "invalid authority")
	}
	wallet, err := base58.Decode(record.WalletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet address")
	}
	if len(record.Badges) > MaxBadges {
		return nil, errors.Errorf("too many badges: %d", len(record.Badges))
	}

	e := binary.NewEncoder(UserAccountSize)
	e.WriteRaw(UserAccountDiscriminator)
	e.WriteKey(authority)
	e.WriteString(record.Name)
	e.WriteKey(wallet)
	e.WriteString(record.Email)
	e.WriteString(record.AvatarUrl)
	e.WriteUint64(record.TotalDonations)
	e.WriteUint32(record.CampaignsSupported)
	e.WriteUint32(record.ImpactMetrics.MealsProvided)
	e.WriteUint32(record.ImpactMetrics.ChildrenEducated)
	e.WriteUint32(record.ImpactMetrics.FamiliesHoused)
	e.WriteUint32(record.ImpactMetrics.TreesPlanted)
	e.WriteUint32(uint32(len(record.Badges)))
	for _, badge := range record.Badges {
		e.WriteUint8(uint8(badge.Type))
		e.WriteString(badge.Description)
		e.WriteString(badge.ImageUrl)
		e.WriteInt64(badge.DateEarned)
	}
	e.WriteUint32(record.Rank)
	e.WriteUint8(record.Bump)

	return pad(e.Bytes(), UserAccountSize)
}

// UnmarshalUserAccount decodes on-chain account data into a user. The address
// isn't part of the data and must be set by the caller.
func UnmarshalUserAccount(data []byte) (*user.Record, error) {
	if len(data) < UserAccountSize {
		return nil, ErrInvalidAccountData
	}
	if !bytes.Equal(data[:8], UserAccountDiscriminator) {
		return nil, ErrInvalidAccountData
	}

	var record user.Record
	d := binary.NewDecoder(data[8:])

	authority, err := d.ReadKey()
	if err != nil {
		return nil, errors.Wrap(err, "error reading authority")
	}
	record.Authority = base58.Encode(authority)

	if record.Name, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading name")
	}

	wallet, err := d.ReadKey()
	if err != nil {
		return nil, errors.Wrap(err, "error reading wallet address")
	}
	record.WalletAddress = base58.Encode(wallet)

	if record.Email, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading email")
	}
	if record.AvatarUrl, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "error reading avatar url")
	}
	if record.TotalDonations, err = d.ReadUint64(); err != nil {
		return nil, errors.Wrap(err, "error reading total donations")
	}
	if record.CampaignsSupported, err = d.ReadUint32(); err != nil {
		return nil, errors.Wrap(err, "error reading campaigns supported")
	}
	for _, dst := range []*uint32{
		&record.ImpactMetrics.MealsProvided,
		&record.ImpactMetrics.ChildrenEducated,
		&record.ImpactMetrics.FamiliesHoused,
		&record.ImpactMetrics.TreesPlanted,
	} {
		if *dst, err = d.ReadUint32(); err != nil {
			return nil, errors.Wrap(err, "error reading impact metrics")
		}
	}

	numBadges, err := d.ReadUint32()
	if err != nil {
		return nil, errors.Wrap(err, "error reading badge count")
	}
	if numBadges > MaxBadges {
		return nil, ErrInvalidAccountData
	}
	for i := 0; i < int(numBadges); i++ {
		var badge user.Badge

		badgeType, err := d.ReadUint8()
		if err != nil {
			return nil, errors.Wrap(err, "error reading badge type")
		}
		badge.Type = user.BadgeType(badgeType)
		if !badge.Type.IsValid() {
			return nil, ErrInvalidAccountData
		}

		if badge.Description, err = d.ReadString(); err != nil {
			return nil, errors.Wrap(err, "error reading badge description")
		}
		if badge.ImageUrl, err = d.ReadString(); err != nil {
			return nil, errors.Wrap(err, "error reading badge image url")
		}
		if badge.DateEarned, err = d.ReadInt64(); err != nil {
			return nil, errors.Wrap(err, "error reading badge date")
		}

		record.Badges = append(record.Badges, &badge)
	}

	if record.Rank, err = d.ReadUint32(); err != nil {
		return nil, errors.Wrap(err, "error reading rank")
	}
	if record.Bump, err = d.ReadUint8(); err != nil {
		return nil, errors.Wrap(err, "error reading bump")
	}

	return &record, nil
}
