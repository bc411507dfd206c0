package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	pgutil "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	q "github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
)

const (
	tableName = "rippl__core_user"

	allColumns = `id, address, bump, authority, name, wallet_address, email, avatar_url, total_donations, campaigns_supported, meals_provided, children_educated, families_housed, trees_planted, badges, user_rank, version, slot, created_at, last_updated_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address   string `db:"address"`
	Bump      uint8  `db:"bump"`
	Authority string `db:"authority"`

	Name          string `db:"name"`
	WalletAddress string `db:"wallet_address"`
	Email         string `db:"email"`
	AvatarUrl     string `db:"avatar_url"`

	TotalDonations     uint64 `db:"total_donations"`
	CampaignsSupported uint32 `db:"campaigns_supported"`
	MealsProvided      uint32 `db:"meals_provided"`
	ChildrenEducated   uint32 `db:"children_educated"`
	FamiliesHoused     uint32 `db:"families_housed"`
	TreesPlanted       uint32 `db:"trees_planted"`
	Badges             string `db:"badges"`
	Rank               uint32 `db:"user_rank"`

	Version uint64 `db:"version"`
	Slot    uint64 `db:"slot"`

	CreatedAt     time.Time `db:"created_at"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
}

type badgeModel struct {
	Type        uint8  `json:"type"`
	Description string `json:"description"`
	ImageUrl    string `json:"image_url"`
	DateEarned  int64  `json:"date_earned"`
}

func toModel(obj *user.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	badges := make([]badgeModel, len(obj.Badges))
	for i, badge := range obj.Badges {
		badges[i] = badgeModel{
			Type:        uint8(badge.Type),
			Description: badge.Description,
			ImageUrl:    badge.ImageUrl,
			DateEarned:  badge.DateEarned,
		}
	}
	encodedBadges, err := json.Marshal(badges)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding badges")
	}

	return &model{
		Id: sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},

		Address:   obj.Address,
		Bump:      obj.Bump,
		Authority: obj.Authority,

		Name:          obj.Name,
		WalletAddress: obj.WalletAddress,
		Email:         obj.Email,
		AvatarUrl:     obj.AvatarUrl,

		TotalDonations:     obj.TotalDonations,
		CampaignsSupported: obj.CampaignsSupported,
		MealsProvided:      obj.ImpactMetrics.MealsProvided,
		ChildrenEducated:   obj.ImpactMetrics.ChildrenEducated,
		FamiliesHoused:     obj.ImpactMetrics.FamiliesHoused,
		TreesPlanted:       obj.ImpactMetrics.TreesPlanted,
		Badges:             string(encodedBadges),
		Rank:               obj.Rank,

		Version: obj.Version,
		Slot:    obj.Slot,

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) (*user.Record, error) {
	var badges []badgeModel
	if err := json.Unmarshal([]byte(obj.Badges), &badges); err != nil {
		return nil, errors.Wrap(err, "error decoding badges")
	}

	var res []*user.Badge
	for _, badge := range badges {
		res = append(res, &user.Badge{
			Type:        user.BadgeType(badge.Type),
			Description: badge.Description,
			ImageUrl:    badge.ImageUrl,
			DateEarned:  badge.DateEarned,
		})
	}

	return &user.Record{
		Id: uint64(obj.Id.Int64),

		Address:   obj.Address,
		Bump:      obj.Bump,
		Authority: obj.Authority,

		Name:          obj.Name,
		WalletAddress: obj.WalletAddress,
		Email:         obj.Email,
		AvatarUrl:     obj.AvatarUrl,

		TotalDonations:     obj.TotalDonations,
		CampaignsSupported: obj.CampaignsSupported,
		ImpactMetrics: user.ImpactMetrics{
			MealsProvided:    obj.MealsProvided,
			ChildrenEducated: obj.ChildrenEducated,
			FamiliesHoused:   obj.FamiliesHoused,
			TreesPlanted:     obj.TreesPlanted,
		},
		Badges: res,
		Rank:   obj.Rank,

		Version: obj.Version,
		Slot:    obj.Slot,

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, bump, authority, name, wallet_address, email, avatar_url, total_donations, campaigns_supported, meals_provided, children_educated, families_housed, trees_planted, badges, user_rank, version, slot, created_at, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17, $18)
			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		m.LastUpdatedAt = time.Now()

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Bump,
			m.Authority,
			m.Name,
			m.WalletAddress,
			m.Email,
			m.AvatarUrl,
			m.TotalDonations,
			m.CampaignsSupported,
			m.MealsProvided,
			m.ChildrenEducated,
			m.FamiliesHoused,
			m.TreesPlanted,
			m.Badges,
			m.Rank,
			m.Slot,
			m.CreatedAt.UTC(),
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
	})
	return pgutil.CheckUniqueViolation(err, user.ErrAlreadyExists)
}

func (m *model) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + tableName + `
			SET name = $3, email = $4, avatar_url = $5, total_donations = $6, campaigns_supported = $7, meals_provided = $8, children_educated = $9, families_housed = $10, trees_planted = $11, badges = $12, user_rank = $13, slot = $14, last_updated_at = $15, version = version + 1
			WHERE address = $1 AND version = $2
			RETURNING ` + allColumns

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Version,
			m.Name,
			m.Email,
			m.AvatarUrl,
			m.TotalDonations,
			m.CampaignsSupported,
			m.MealsProvided,
			m.ChildrenEducated,
			m.FamiliesHoused,
			m.TreesPlanted,
			m.Badges,
			m.Rank,
			m.Slot,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
		if !pgutil.IsNoRows(err) {
			return err
		}

		var count uint64
		err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+tableName+` WHERE address = $1`, m.Address)
		if err != nil {
			return err
		}
		if count == 0 {
			return user.ErrNotFound
		}
		return user.ErrStaleVersion
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE address = $1
	`

	err := db.GetContext(ctx, &res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, user.ErrNotFound)
	}
	return &res, nil
}

func dbGetByAuthority(ctx context.Context, db *sqlx.DB, authority string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE authority = $1
	`

	err := db.GetContext(ctx, &res, query, authority)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, user.ErrNotFound)
	}
	return &res, nil
}

func dbGetAll(ctx context.Context, db *sqlx.DB, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE (TRUE)
	`

	opts := []interface{}{}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, user.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, user.ErrNotFound
	}
	return res, nil
}
