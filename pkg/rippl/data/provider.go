package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rippl-labs/rippl-server/pkg/database/memory"
	pg "github.com/rippl-labs/rippl-server/pkg/database/postgres"
	"github.com/rippl-labs/rippl-server/pkg/database/query"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"

	balance_memory_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/balance/memory"
	campaign_memory_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign/memory"
	donation_memory_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/donation/memory"
	event_memory_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/event/memory"
	transaction_memory_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction/memory"
	user_memory_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/user/memory"

	balance_postgres_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/balance/postgres"
	campaign_postgres_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign/postgres"
	donation_postgres_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/donation/postgres"
	event_postgres_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/event/postgres"
	transaction_postgres_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction/postgres"
	user_postgres_client "github.com/rippl-labs/rippl-server/pkg/rippl/data/user/postgres"
)

type DatabaseData interface {
	// User
	// --------------------------------------------------------------------------------
	CreateUser(ctx context.Context, record *user.Record) error
	UpdateUser(ctx context.Context, record *user.Record) error
	GetUserByAddress(ctx context.Context, address string) (*user.Record, error)
	GetUserByAuthority(ctx context.Context, authority string) (*user.Record, error)
	GetAllUsers(ctx context.Context, opts ...query.Option) ([]*user.Record, error)

	// Campaign
	// --------------------------------------------------------------------------------
	CreateCampaign(ctx context.Context, record *campaign.Record) error
	UpdateCampaign(ctx context.Context, record *campaign.Record) error
	GetCampaignByAddress(ctx context.Context, address string) (*campaign.Record, error)
	GetCampaignByVault(ctx context.Context, vault string) (*campaign.Record, error)
	GetAllCampaignsByAuthority(ctx context.Context, authority string, opts ...query.Option) ([]*campaign.Record, error)
	GetAllCampaignsByStatus(ctx context.Context, status campaign.Status, opts ...query.Option) ([]*campaign.Record, error)
	GetAllCampaignsByCategory(ctx context.Context, category campaign.Category, opts ...query.Option) ([]*campaign.Record, error)
	GetAllActiveCampaignsEndedBefore(ctx context.Context, unixTs int64, limit uint64) ([]*campaign.Record, error)
	CountCampaignsByStatus(ctx context.Context, status campaign.Status) (uint64, error)

	// Donation
	// --------------------------------------------------------------------------------
	CreateDonation(ctx context.Context, record *donation.Record) error
	GetDonationByAddress(ctx context.Context, address string) (*donation.Record, error)
	GetAllDonationsByCampaign(ctx context.Context, campaign string, opts ...query.Option) ([]*donation.Record, error)
	GetAllDonationsByDonor(ctx context.Context, donor string, opts ...query.Option) ([]*donation.Record, error)
	CountDonationsByCampaign(ctx context.Context, campaign string) (uint64, error)
	GetTotalDonationAmountByCampaign(ctx context.Context, campaign string) (uint64, error)

	// Balance
	// --------------------------------------------------------------------------------
	SaveBalance(ctx context.Context, record *balance.Record) error
	GetBalance(ctx context.Context, address string) (*balance.Record, error)
	GetTotalLamports(ctx context.Context) (uint64, error)

	// Event
	// --------------------------------------------------------------------------------
	CreateEvent(ctx context.Context, record *event.Record) error
	UpdateEvent(ctx context.Context, record *event.Record) error
	GetEvent(ctx context.Context, eventId string) (*event.Record, error)
	GetAllEventsBySignature(ctx context.Context, signature string) ([]*event.Record, error)
	GetAllEvents(ctx context.Context, opts ...query.Option) ([]*event.Record, error)
	CountEventsByState(ctx context.Context, state event.State) (uint64, error)
	GetAllPendingEventsReadyToSend(ctx context.Context, limit uint64) ([]*event.Record, error)

	// Transaction
	// --------------------------------------------------------------------------------
	SaveTransaction(ctx context.Context, record *transaction.Record) error
	GetTransaction(ctx context.Context, signature string) (*transaction.Record, error)
	GetLatestSlot(ctx context.Context) (uint64, error)
	CountTransactionsByState(ctx context.Context, state transaction.ConfirmationState) (uint64, error)

	// ExecuteInTx executes fn with a single DB transaction that is scoped to the call.
	// Every store used in this repository supports it, including the in memory
	// implementations, which undo their writes when fn fails.
	ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error
}

type DatabaseProvider struct {
	users        user.Store
	campaigns    campaign.Store
	donations    donation.Store
	balances     balance.Store
	events       event.Store
	transactions transaction.Store

	db *sqlx.DB
}

func NewDatabaseProvider(dbConfig *pg.Config) (DatabaseData, error) {
	db, err := pg.NewWithConfig(dbConfig)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(time.Hour)
	db.SetConnMaxLifetime(time.Hour)

	return &DatabaseProvider{
		users:        user_postgres_client.New(db),
		campaigns:    campaign_postgres_client.New(db),
		donations:    donation_postgres_client.New(db),
		balances:     balance_postgres_client.New(db),
		events:       event_postgres_client.New(db),
		transactions: transaction_postgres_client.New(db),

		db: sqlx.NewDb(db, "pgx"),
	}, nil
}

func NewTestDatabaseProvider() DatabaseData {
	return &DatabaseProvider{
		users:        user_memory_client.New(),
		campaigns:    campaign_memory_client.New(),
		donations:    donation_memory_client.New(),
		balances:     balance_memory_client.New(),
		events:       event_memory_client.New(),
		transactions: transaction_memory_client.New(),
	}
}

func (dp *DatabaseProvider) ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if dp.db == nil {
		return memory.ExecuteTxWithinCtx(ctx, fn)
	}

	return pg.ExecuteTxWithinCtx(ctx, dp.db, isolation, fn)
}

// User
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) CreateUser(ctx context.Context, record *user.Record) error {
	return dp.users.Put(ctx, record)
}
func (dp *DatabaseProvider) UpdateUser(ctx context.Context, record *user.Record) error {
	return dp.users.Update(ctx, record)
}
func (dp *DatabaseProvider) GetUserByAddress(ctx context.Context, address string) (*user.Record, error) {
	return dp.users.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetUserByAuthority(ctx context.Context, authority string) (*user.Record, error) {
	return dp.users.GetByAuthority(ctx, authority)
}
func (dp *DatabaseProvider) GetAllUsers(ctx context.Context, opts ...query.Option) ([]*user.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return dp.users.GetAll(ctx, req.Cursor, req.Limit, req.SortBy)
}

// Campaign
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) CreateCampaign(ctx context.Context, record *campaign.Record) error {
	return dp.campaigns.Put(ctx, record)
}
func (dp *DatabaseProvider) UpdateCampaign(ctx context.Context, record *campaign.Record) error {
	return dp.campaigns.Update(ctx, record)
}
func (dp *DatabaseProvider) GetCampaignByAddress(ctx context.Context, address string) (*campaign.Record, error) {
	return dp.campaigns.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetCampaignByVault(ctx context.Context, vault string) (*campaign.Record, error) {
	return dp.campaigns.GetByVault(ctx, vault)
}
func (dp *DatabaseProvider) GetAllCampaignsByAuthority(ctx context.Context, authority string, opts ...query.Option) ([]*campaign.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return dp.campaigns.GetAllByAuthority(ctx, authority, req.Cursor, req.Limit, req.SortBy)
}
func (dp *DatabaseProvider) GetAllCampaignsByStatus(ctx context.Context, status campaign.Status, opts ...query.Option) ([]*campaign.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return dp.campaigns.GetAllByStatus(ctx, status, req.Cursor, req.Limit, req.SortBy)
}
func (dp *DatabaseProvider) GetAllCampaignsByCategory(ctx context.Context, category campaign.Category, opts ...query.Option) ([]*campaign.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return dp.campaigns.GetAllByCategory(ctx, category, req.Cursor, req.Limit, req.SortBy)
}
func (dp *DatabaseProvider) GetAllActiveCampaignsEndedBefore(ctx context.Context, unixTs int64, limit uint64) ([]*campaign.Record, error) {
	return dp.campaigns.GetAllActiveEndedBefore(ctx, unixTs, limit)
}
func (dp *DatabaseProvider) CountCampaignsByStatus(ctx context.Context, status campaign.Status) (uint64, error) {
	return dp.campaigns.CountByStatus(ctx, status)
}

// Donation
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) CreateDonation(ctx context.Context, record *donation.Record) error {
	return dp.donations.Put(ctx, record)
}
func (dp *DatabaseProvider) GetDonationByAddress(ctx context.Context, address string) (*donation.Record, error) {
	return dp.donations.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetAllDonationsByCampaign(ctx context.Context, campaign string, opts ...query.Option) ([]*donation.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return dp.donations.GetAllByCampaign(ctx, campaign, req.Cursor, req.Limit, req.SortBy)
}
func (dp *DatabaseProvider) GetAllDonationsByDonor(ctx context.Context, donor string, opts ...query.Option) ([]*donation.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return dp.donations.GetAllByDonor(ctx, donor, req.Cursor, req.Limit, req.SortBy)
}
func (dp *DatabaseProvider) CountDonationsByCampaign(ctx context.Context, campaign string) (uint64, error) {
	return dp.donations.CountByCampaign(ctx, campaign)
}
func (dp *DatabaseProvider) GetTotalDonationAmountByCampaign(ctx context.Context, campaign string) (uint64, error) {
	return dp.donations.GetTotalAmountByCampaign(ctx, campaign)
}

// Balance
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) SaveBalance(ctx context.Context, record *balance.Record) error {
	return dp.balances.Save(ctx, record)
}
func (dp *DatabaseProvider) GetBalance(ctx context.Context, address string) (*balance.Record, error) {
	return dp.balances.Get(ctx, address)
}
func (dp *DatabaseProvider) GetTotalLamports(ctx context.Context) (uint64, error) {
	return dp.balances.GetTotalLamports(ctx)
}

// Event
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) CreateEvent(ctx context.Context, record *event.Record) error {
	return dp.events.Put(ctx, record)
}
func (dp *DatabaseProvider) UpdateEvent(ctx context.Context, record *event.Record) error {
	return dp.events.Update(ctx, record)
}
func (dp *DatabaseProvider) GetEvent(ctx context.Context, eventId string) (*event.Record, error) {
	return dp.events.Get(ctx, eventId)
}
func (dp *DatabaseProvider) GetAllEventsBySignature(ctx context.Context, signature string) ([]*event.Record, error) {
	return dp.events.GetAllBySignature(ctx, signature)
}
func (dp *DatabaseProvider) GetAllEvents(ctx context.Context, opts ...query.Option) ([]*event.Record, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return dp.events.GetAll(ctx, req.Cursor, req.Limit, req.SortBy)
}
func (dp *DatabaseProvider) CountEventsByState(ctx context.Context, state event.State) (uint64, error) {
	return dp.events.CountByState(ctx, state)
}
func (dp *DatabaseProvider) GetAllPendingEventsReadyToSend(ctx context.Context, limit uint64) ([]*event.Record, error) {
	return dp.events.GetAllPendingReadyToSend(ctx, limit)
}

// Transaction
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) SaveTransaction(ctx context.Context, record *transaction.Record) error {
	return dp.transactions.Put(ctx, record)
}
func (dp *DatabaseProvider) GetTransaction(ctx context.Context, signature string) (*transaction.Record, error) {
	return dp.transactions.Get(ctx, signature)
}
func (dp *DatabaseProvider) GetLatestSlot(ctx context.Context) (uint64, error) {
	return dp.transactions.GetLatestSlot(ctx)
}
func (dp *DatabaseProvider) CountTransactionsByState(ctx context.Context, state transaction.ConfirmationState) (uint64, error) {
	return dp.transactions.CountByState(ctx, state)
}
