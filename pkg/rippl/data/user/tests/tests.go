package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
)

func RunTests(t *testing.T, s user.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s user.Store){
		testRoundTrip,
		testVersioning,
		testGetAll,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s user.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now().Add(-time.Second)

		record := &user.Record{
			Address:       "user_address",
			Bump:          254,
			Authority:     "authority",
			Name:          "Alice",
			WalletAddress: "authority",
			Email:         "alice@example.com",
		}

		_, err := s.GetByAddress(ctx, record.Address)
		assert.Equal(t, user.ErrNotFound, err)
		_, err = s.GetByAuthority(ctx, record.Authority)
		assert.Equal(t, user.ErrNotFound, err)
		assert.Equal(t, user.ErrNotFound, s.Update(ctx, record))

		require.NoError(t, s.Put(ctx, record))
		assert.True(t, record.Id > 0)
		assert.EqualValues(t, 1, record.Version)
		assert.True(t, record.CreatedAt.After(start))

		duplicate := record.Clone()
		duplicate.Address = "other_address"
		assert.Equal(t, user.ErrAlreadyExists, s.Put(ctx, &duplicate))

		duplicate = record.Clone()
		duplicate.Authority = "other_authority"
		assert.Equal(t, user.ErrAlreadyExists, s.Put(ctx, &duplicate))

		actual, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		actual, err = s.GetByAuthority(ctx, record.Authority)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		record.TotalDonations = 1_000_000_000
		record.CampaignsSupported = 1
		record.ImpactMetrics.MealsProvided = 10
		record.Badges = append(record.Badges, &user.Badge{
			Type:        user.BadgeTypeBronze,
			Description: "Bronze Badge - First milestone achieved",
			ImageUrl:    "/badges/bronze.png",
			DateEarned:  12345,
		})
		record.Rank = 3
		record.Slot = 10
		require.NoError(t, s.Update(ctx, record))
		assert.EqualValues(t, 2, record.Version)

		actual, err = s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)
		require.Len(t, actual.Badges, 1)
		assert.True(t, actual.HasBadge(user.BadgeTypeBronze))
		assert.False(t, actual.HasBadge(user.BadgeTypeSilver))
	})
}

func testVersioning(t *testing.T, s user.Store) {
	t.Run("testVersioning", func(t *testing.T) {
		ctx := context.Background()

		record := &user.Record{
			Address:       "user_address",
			Authority:     "authority",
			Name:          "Bob",
			WalletAddress: "authority",
		}
		require.NoError(t, s.Put(ctx, record))

		first, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		second, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)

		first.TotalDonations = 100
		require.NoError(t, s.Update(ctx, first))

		second.TotalDonations = 200
		assert.Equal(t, user.ErrStaleVersion, s.Update(ctx, second))

		actual, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 100, actual.TotalDonations)
		assert.EqualValues(t, 2, actual.Version)
	})
}

func testGetAll(t *testing.T, s user.Store) {
	t.Run("testGetAll", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAll(ctx, nil, 10, query.Ascending)
		assert.Equal(t, user.ErrNotFound, err)

		var expected []*user.Record
		for i := 0; i < 5; i++ {
			record := &user.Record{
				Address:       fmt.Sprintf("user%d", i),
				Authority:     fmt.Sprintf("authority%d", i),
				Name:          fmt.Sprintf("name%d", i),
				WalletAddress: fmt.Sprintf("authority%d", i),
			}
			require.NoError(t, s.Put(ctx, record))
			expected = append(expected, record)
		}

		actual, err := s.GetAll(ctx, nil, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assertEquivalentRecords(t, expected[i], record)
		}

		actual, err = s.GetAll(ctx, query.ToCursor(expected[1].Id), 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[2].Address, actual[0].Address)
		assert.Equal(t, expected[3].Address, actual[1].Address)

		actual, err = s.GetAll(ctx, nil, 2, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[4].Address, actual[0].Address)
		assert.Equal(t, expected[3].Address, actual[1].Address)

		_, err = s.GetAll(ctx, query.ToCursor(expected[4].Id), 10, query.Ascending)
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *user.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.Authority, obj2.Authority)
	assert.Equal(t, obj1.Name, obj2.Name)
	assert.Equal(t, obj1.WalletAddress, obj2.WalletAddress)
	assert.Equal(t, obj1.Email, obj2.Email)
	assert.Equal(t, obj1.AvatarUrl, obj2.AvatarUrl)
	assert.Equal(t, obj1.TotalDonations, obj2.TotalDonations)
	assert.Equal(t, obj1.CampaignsSupported, obj2.CampaignsSupported)
	assert.Equal(t, obj1.ImpactMetrics, obj2.ImpactMetrics)
	assert.Equal(t, obj1.Rank, obj2.Rank)
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.Slot, obj2.Slot)

	require.Len(t, obj2.Badges, len(obj1.Badges))
	for i := range obj1.Badges {
		assert.Equal(t, *obj1.Badges[i], *obj2.Badges[i])
	}
}
