package program

import (
	"strings"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
)

// Lengths are byte lengths, matching how account space is allocated.

func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameRequired
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateEmail allows an empty email, which clears it
func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if len(email) > 0 && !isEmailFormat(email) {
		return ErrInvalidEmailFormat
	}
	return nil
}

func ValidateAvatarUrl(url string) error {
	if len(url) > MaxImageUrlLength {
		return ErrImageUrlTooLong
	}
	return nil
}

func ValidateTitle(title string) error {
	if len(title) == 0 {
		return ErrTitleRequired
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func ValidateOrganizationName(name string) error {
	if len(name) > MaxOrganizationNameLength {
		return ErrOrganizationNameTooLong
	}
	return nil
}

func ValidateImageUrl(url string) error {
	if len(url) > MaxImageUrlLength {
		return ErrImageUrlTooLong
	}
	return nil
}

func ValidateTransactionHash(hash string) error {
	if len(hash) > MaxTransactionHashLength {
		return ErrTransactionHashTooLong
	}
	return nil
}

func ValidateImpactDescription(description string) error {
	if len(description) > MaxImpactDescriptionLength {
		return ErrImpactDescriptionTooLong
	}
	return nil
}

// ValidateDuration checks endDate - startDate is within the allowed campaign
// duration, inclusive on both ends. A difference that overflows is treated as
// out of range in the direction of the overflow.
func ValidateDuration(startDate, endDate int64) error {
	duration := endDate - startDate
	overflowed := (endDate >= startDate) != (duration >= 0)
	if overflowed {
		if endDate > startDate {
			return ErrCampaignDurationTooLong
		}
		return ErrCampaignDurationTooShort
	}

	if duration < MinCampaignDuration {
		return ErrCampaignDurationTooShort
	}
	if duration > MaxCampaignDuration {
		return ErrCampaignDurationTooLong
	}
	return nil
}

func ValidateTargetAmount(amount uint64) error {
	if amount < MinCampaignTarget {
		return ErrTargetAmountTooLow
	}
	return nil
}

func ValidateDonationAmount(amount uint64) error {
	if amount < MinDonationAmount {
		return ErrDonationTooLow
	}
	return nil
}

// ValidateStatusTransition checks a requested status change against the
// campaign lifecycle. Expired is only ever set by the expiry hook.
func ValidateStatusTransition(from, to campaign.Status) error {
	switch from {
	case campaign.StatusActive:
		if to == campaign.StatusInProgress {
			return nil
		}
	case campaign.StatusInProgress:
		if to == campaign.StatusCompleted {
			return nil
		}
	case campaign.StatusCompleted, campaign.StatusExpired:
	}
	return ErrInvalidStatusTransition
}

// isEmailFormat accepts local@domain.tld with no whitespace
func isEmailFormat(email string) bool {
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	if len(local) == 0 || len(domain) == 0 {
		return false
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}

	return !strings.HasPrefix(domain, ".") && !strings.Contains(domain, "..")
}
