package program

import (
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
)

type badgeTier struct {
	badgeType   user.BadgeType
	description string
	imageUrl    string
	qualifies   func(u *user.Record) bool
}

// Evaluated in ascending order, so a single donation crossing several
// thresholds appends every newly earned badge lowest first.
var badgeTiers = []badgeTier{
	{
		badgeType:   user.BadgeTypeBronze,
		description: "Bronze Badge - First milestone achieved",
		imageUrl:    "/badges/bronze.png",
		qualifies:   func(u *user.Record) bool { return u.TotalDonations >= BronzeThreshold },
	},
	{
		badgeType:   user.BadgeTypeSilver,
		description: "Silver Badge - Significant support provided",
		imageUrl:    "/badges/silver.png",
		qualifies:   func(u *user.Record) bool { return u.TotalDonations >= SilverThreshold },
	},
	{
		badgeType:   user.BadgeTypeGold,
		description: "Gold Badge - Major contribution milestone reached",
		imageUrl:    "/badges/gold.png",
		qualifies:   func(u *user.Record) bool { return u.TotalDonations >= GoldThreshold },
	},
	{
		badgeType:   user.BadgeTypeChampionOfChange,
		description: "Champion of Change - Awarded for exceptional generosity",
		imageUrl:    "/badges/champion.png",
		qualifies:   func(u *user.Record) bool { return u.TotalDonations >= ChampionThreshold },
	},
	{
		badgeType:   user.BadgeTypeSustainedSupporter,
		description: "Sustained Supporter - Consistent and dedicated support",
		imageUrl:    "/badges/sustained.png",
		qualifies:   func(u *user.Record) bool { return u.CampaignsSupported >= SustainedSupporterMinDonations },
	},
}

// awardBadges appends every badge the user newly qualifies for and returns
// them. MaxBadgesReached fails the whole award, leaving the user unchanged.
func awardBadges(u *user.Record, now int64) ([]*user.Badge, error) {
	var awarded []*user.Badge
	for _, tier := range badgeTiers {
		if !tier.qualifies(u) || u.HasBadge(tier.badgeType) {
			continue
		}

		if len(u.Badges)+len(awarded) >= MaxBadges {
			return nil, ErrMaxBadgesReached
		}

		awarded = append(awarded, &user.Badge{
			Type:        tier.badgeType,
			Description: tier.description,
			ImageUrl:    tier.imageUrl,
			DateEarned:  now,
		})
	}

	u.Badges = append(u.Badges, awarded...)
	return awarded, nil
}
