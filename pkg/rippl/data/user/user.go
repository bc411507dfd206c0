package user

import (
	"time"

	"github.com/pkg/errors"
)

type BadgeType uint8

// Values are the on-chain enum tags, so order matters
const (
	BadgeTypeGold BadgeType = iota
	BadgeTypeSilver
	BadgeTypeBronze
	BadgeTypeChampionOfChange
	BadgeTypeSustainedSupporter
)

type Badge struct {
	Type        BadgeType
	Description string
	ImageUrl    string
	DateEarned  int64
}

// ImpactMetrics are illustrative counters maintained off the donation flow
type ImpactMetrics struct {
	MealsProvided    uint32
	ChildrenEducated uint32
	FamiliesHoused   uint32
	TreesPlanted     uint32
}

type Record struct {
	Id uint64

	Address   string
	Bump      uint8
	Authority string

	Name          string
	WalletAddress string
	Email         string
	AvatarUrl     string

	TotalDonations     uint64
	CampaignsSupported uint32
	ImpactMetrics      ImpactMetrics
	Badges             []*Badge
	Rank               uint32

	Version uint64
	Slot    uint64

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

func (r *Record) HasBadge(badgeType BadgeType) bool {
	for _, badge := range r.Badges {
		if badge.Type == badgeType {
			return true
		}
	}
	return false
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Authority) == 0 {
		return errors.New("authority is required")
	}

	if len(r.WalletAddress) == 0 {
		return errors.New("wallet address is required")
	}

	if len(r.Name) == 0 {
		return errors.New("name is required")
	}

	seen := make(map[BadgeType]struct{})
	for i, badge := range r.Badges {
		if badge == nil {
			return errors.Errorf("badge %d is nil", i)
		}

		if !badge.Type.IsValid() {
			return errors.Errorf("badge %d has invalid type", i)
		}

		if _, ok := seen[badge.Type]; ok {
			return errors.Errorf("duplicate %s badge", badge.Type)
		}
		seen[badge.Type] = struct{}{}

		if i > 0 && badge.DateEarned < r.Badges[i-1].DateEarned {
			return errors.New("badges must be in chronological order")
		}
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Address:   r.Address,
		Bump:      r.Bump,
		Authority: r.Authority,

		Name:          r.Name,
		WalletAddress: r.WalletAddress,
		Email:         r.Email,
		AvatarUrl:     r.AvatarUrl,

		TotalDonations:     r.TotalDonations,
		CampaignsSupported: r.CampaignsSupported,
		ImpactMetrics:      r.ImpactMetrics,
		Badges:             cloneBadges(r.Badges),
		Rank:               r.Rank,

		Version: r.Version,
		Slot:    r.Slot,

		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Bump = r.Bump
	dst.Authority = r.Authority

	dst.Name = r.Name
	dst.WalletAddress = r.WalletAddress
	dst.Email = r.Email
	dst.AvatarUrl = r.AvatarUrl

	dst.TotalDonations = r.TotalDonations
	dst.CampaignsSupported = r.CampaignsSupported
	dst.ImpactMetrics = r.ImpactMetrics
	dst.Badges = cloneBadges(r.Badges)
	dst.Rank = r.Rank

	dst.Version = r.Version
	dst.Slot = r.Slot

	dst.CreatedAt = r.CreatedAt
	dst.LastUpdatedAt = r.LastUpdatedAt
}

func cloneBadges(badges []*Badge) []*Badge {
	if badges == nil {
		return nil
	}

	res := make([]*Badge, len(badges))
	for i, badge := range badges {
		cloned := *badge
		res[i] = &cloned
	}
	return res
}

func (t BadgeType) IsValid() bool {
	switch t {
	case BadgeTypeGold, BadgeTypeSilver, BadgeTypeBronze, BadgeTypeChampionOfChange, BadgeTypeSustainedSupporter:
		return true
	}
	return false
}

func (t BadgeType) String() string {
	switch t {
	case BadgeTypeGold:
		return "gold"
	case BadgeTypeSilver:
		return "silver"
	case BadgeTypeBronze:
		return "bronze"
	case BadgeTypeChampionOfChange:
		return "champion_of_change"
	case BadgeTypeSustainedSupporter:
		return "sustained_supporter"
	}
	return "unknown"
}
