package campaign

import (
	"time"

	"github.com/pkg/errors"
)

type Category uint8

// Values are the on-chain enum tags, so order matters
const (
	CategoryHealthcare Category = iota
	CategoryEducation
	CategoryFoodSupply
	CategoryEmergencyRelief
	CategoryInfrastructure
	CategoryWaterSanitation
)

type Status uint8

// Values are the on-chain enum tags, so order matters
const (
	StatusActive Status = iota
	StatusInProgress
	StatusCompleted
	StatusExpired
)

type Record struct {
	Id uint64

	Address   string
	Bump      uint8
	Vault     string
	VaultBump uint8
	Authority string

	Title            string
	Description      string
	Category         Category
	OrganizationName string
	ImageUrl         string
	IsUrgent         bool

	TargetAmount uint64
	RaisedAmount uint64
	DonorsCount  uint32

	StartDate int64
	EndDate   int64
	Status    Status

	Version uint64
	Slot    uint64

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Vault) == 0 {
		return errors.New("vault is required")
	}

	if len(r.Authority) == 0 {
		return errors.New("authority is required")
	}

	if len(r.Title) == 0 {
		return errors.New("title is required")
	}

	if !r.Category.IsValid() {
		return errors.New("invalid category")
	}

	if !r.Status.IsValid() {
		return errors.New("invalid status")
	}

	if r.EndDate <= r.StartDate {
		return errors.New("end date must be after start date")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Address:   r.Address,
		Bump:      r.Bump,
		Vault:     r.Vault,
		VaultBump: r.VaultBump,
		Authority: r.Authority,

		Title:            r.Title,
		Description:      r.Description,
		Category:         r.Category,
		OrganizationName: r.OrganizationName,
		ImageUrl:         r.ImageUrl,
		IsUrgent:         r.IsUrgent,

		TargetAmount: r.TargetAmount,
		RaisedAmount: r.RaisedAmount,
		DonorsCount:  r.DonorsCount,

		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Status:    r.Status,

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
	dst.Vault = r.Vault
	dst.VaultBump = r.VaultBump
	dst.Authority = r.Authority

	dst.Title = r.Title
	dst.Description = r.Description
	dst.Category = r.Category
	dst.OrganizationName = r.OrganizationName
	dst.ImageUrl = r.ImageUrl
	dst.IsUrgent = r.IsUrgent

	dst.TargetAmount = r.TargetAmount
	dst.RaisedAmount = r.RaisedAmount
	dst.DonorsCount = r.DonorsCount

	dst.StartDate = r.StartDate
	dst.EndDate = r.EndDate
	dst.Status = r.Status

	dst.Version = r.Version
	dst.Slot = r.Slot

	dst.CreatedAt = r.CreatedAt
	dst.LastUpdatedAt = r.LastUpdatedAt
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryHealthcare, CategoryEducation, CategoryFoodSupply, CategoryEmergencyRelief, CategoryInfrastructure, CategoryWaterSanitation:
		return true
	}
	return false
}

func (c Category) String() string {
	switch c {
	case CategoryHealthcare:
		return "healthcare"
	case CategoryEducation:
		return "education"
	case CategoryFoodSupply:
		return "food_supply"
	case CategoryEmergencyRelief:
		return "emergency_relief"
	case CategoryInfrastructure:
		return "infrastructure"
	case CategoryWaterSanitation:
		return "water_sanitation"
	}
	return "unknown"
}

// ToCategory parses the string form of a Category
func ToCategory(value string) (Category, error) {
	for c := CategoryHealthcare; c <= CategoryWaterSanitation; c++ {
		if c.String() == value {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown category: %s", value)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInProgress, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

// ToStatus parses the string form of a Status
func ToStatus(value string) (Status, error) {
	for s := StatusActive; s <= StatusExpired; s++ {
		if s.String() == value {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown status: %s", value)
}
