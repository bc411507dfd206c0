package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
)

func RunTests(t *testing.T, s campaign.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s campaign.Store){
		testRoundTrip,
		testVersioning,
		testQueries,
		testExpiryCandidates,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s campaign.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now().Add(-time.Second)

		record := newTestRecord(0)

		_, err := s.GetByAddress(ctx, record.Address)
		assert.Equal(t, campaign.ErrNotFound, err)
		_, err = s.GetByVault(ctx, record.Vault)
		assert.Equal(t, campaign.ErrNotFound, err)
		assert.Equal(t, campaign.ErrNotFound, s.Update(ctx, record))

		require.NoError(t, s.Put(ctx, record))
		assert.True(t, record.Id > 0)
		assert.EqualValues(t, 1, record.Version)
		assert.True(t, record.CreatedAt.After(start))

		duplicate := record.Clone()
		assert.Equal(t, campaign.ErrAlreadyExists, s.Put(ctx, &duplicate))

		actual, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		actual, err = s.GetByVault(ctx, record.Vault)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		record.Description = "updated description"
		record.ImageUrl = "https://example.com/updated.png"
		record.IsUrgent = true
		record.RaisedAmount = 5_000_000
		record.DonorsCount = 2
		record.EndDate += 3600
		record.Status = campaign.StatusInProgress
		record.Slot = 42
		require.NoError(t, s.Update(ctx, record))
		assert.EqualValues(t, 2, record.Version)

		actual, err = s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)
	})
}

func testVersioning(t *testing.T, s campaign.Store) {
	t.Run("testVersioning", func(t *testing.T) {
		ctx := context.Background()

		record := newTestRecord(0)
		require.NoError(t, s.Put(ctx, record))

		first, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		second, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)

		first.DonorsCount = 1
		require.NoError(t, s.Update(ctx, first))

		second.DonorsCount = 1
		assert.Equal(t, campaign.ErrStaleVersion, s.Update(ctx, second))

		second, err = s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		second.DonorsCount = 2
		require.NoError(t, s.Update(ctx, second))

		actual, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 2, actual.DonorsCount)
		assert.EqualValues(t, 3, actual.Version)
	})
}

func testQueries(t *testing.T, s campaign.Store) {
	t.Run("testQueries", func(t *testing.T) {
		ctx := context.Background()

		var records []*campaign.Record
		for i := 0; i < 6; i++ {
			record := newTestRecord(i)
			if i%2 == 0 {
				record.Authority = "authority_even"
			}
			record.Category = campaign.Category(i % 3)
			if i >= 4 {
				record.Status = campaign.StatusCompleted
			}
			require.NoError(t, s.Put(ctx, record))
			records = append(records, record)
		}

		actual, err := s.GetAllByAuthority(ctx, "authority_even", nil, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assert.Equal(t, records[0].Address, actual[0].Address)
		assert.Equal(t, records[2].Address, actual[1].Address)
		assert.Equal(t, records[4].Address, actual[2].Address)

		actual, err = s.GetAllByAuthority(ctx, "authority_even", query.ToCursor(records[0].Id), 1, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, records[2].Address, actual[0].Address)

		actual, err = s.GetAllByAuthority(ctx, "authority_even", nil, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assert.Equal(t, records[4].Address, actual[0].Address)

		_, err = s.GetAllByAuthority(ctx, "unknown", nil, 10, query.Ascending)
		assert.Equal(t, campaign.ErrNotFound, err)

		actual, err = s.GetAllByStatus(ctx, campaign.StatusCompleted, nil, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, records[4].Address, actual[0].Address)
		assert.Equal(t, records[5].Address, actual[1].Address)

		_, err = s.GetAllByStatus(ctx, campaign.StatusExpired, nil, 10, query.Ascending)
		assert.Equal(t, campaign.ErrNotFound, err)

		actual, err = s.GetAllByCategory(ctx, campaign.CategoryEducation, nil, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, records[1].Address, actual[0].Address)
		assert.Equal(t, records[4].Address, actual[1].Address)

		count, err := s.CountByStatus(ctx, campaign.StatusActive)
		require.NoError(t, err)
		assert.EqualValues(t, 4, count)

		count, err = s.CountByStatus(ctx, campaign.StatusExpired)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func testExpiryCandidates(t *testing.T, s campaign.Store) {
	t.Run("testExpiryCandidates", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllActiveEndedBefore(ctx, 1_000_000, 10)
		assert.Equal(t, campaign.ErrNotFound, err)

		endDates := []int64{500, 100, 300, 2_000_000, 200}
		for i, endDate := range endDates {
			record := newTestRecord(i)
			record.StartDate = 0
			record.EndDate = endDate
			if i == 4 {
				record.Status = campaign.StatusInProgress
			}
			require.NoError(t, s.Put(ctx, record))
		}

		actual, err := s.GetAllActiveEndedBefore(ctx, 1_000_000, 10)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assert.EqualValues(t, 100, actual[0].EndDate)
		assert.EqualValues(t, 300, actual[1].EndDate)
		assert.EqualValues(t, 500, actual[2].EndDate)

		actual, err = s.GetAllActiveEndedBefore(ctx, 1_000_000, 1)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.EqualValues(t, 100, actual[0].EndDate)

		_, err = s.GetAllActiveEndedBefore(ctx, 100, 10)
		assert.Equal(t, campaign.ErrNotFound, err)
	})
}

func newTestRecord(i int) *campaign.Record {
	now := time.Now().Unix()
	return &campaign.Record{
		Address:   fmt.Sprintf("campaign%d", i),
		Bump:      255,
		Vault:     fmt.Sprintf("vault%d", i),
		VaultBump: 254,
		Authority: fmt.Sprintf("authority%d", i),

		Title:            fmt.Sprintf("Clean Water %d", i),
		Description:      "Wells for rural villages",
		Category:         campaign.CategoryWaterSanitation,
		OrganizationName: "Water Org",
		ImageUrl:         "https://example.com/water.png",

		TargetAmount: 1_000_000_000,

		StartDate: now,
		EndDate:   now + 30*86400,
		Status:    campaign.StatusActive,
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *campaign.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.Vault, obj2.Vault)
	assert.Equal(t, obj1.VaultBump, obj2.VaultBump)
	assert.Equal(t, obj1.Authority, obj2.Authority)
	assert.Equal(t, obj1.Title, obj2.Title)
	assert.Equal(t, obj1.Description, obj2.Description)
	assert.Equal(t, obj1.Category, obj2.Category)
	assert.Equal(t, obj1.OrganizationName, obj2.OrganizationName)
	assert.Equal(t, obj1.ImageUrl, obj2.ImageUrl)
	assert.Equal(t, obj1.IsUrgent, obj2.IsUrgent)
	assert.Equal(t, obj1.TargetAmount, obj2.TargetAmount)
	assert.Equal(t, obj1.RaisedAmount, obj2.RaisedAmount)
	assert.Equal(t, obj1.DonorsCount, obj2.DonorsCount)
	assert.Equal(t, obj1.StartDate, obj2.StartDate)
	assert.Equal(t, obj1.EndDate, obj2.EndDate)
	assert.Equal(t, obj1.Status, obj2.Status)
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.Slot, obj2.Slot)
}
