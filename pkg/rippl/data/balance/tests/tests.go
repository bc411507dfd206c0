package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
)

func RunTests(t *testing.T, s balance.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s balance.Store){
		testRoundTrip,
		testTotalLamports,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s balance.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.Get(ctx, "wallet")
		assert.Equal(t, balance.ErrNotFound, err)

		stale := &balance.Record{Address: "wallet", Lamports: 1, Version: 3}
		assert.Equal(t, balance.ErrStaleVersion, s.Save(ctx, stale))

		record := &balance.Record{Address: "wallet", Lamports: 1_000_000_000, Slot: 1}
		require.NoError(t, s.Save(ctx, record))
		assert.True(t, record.Id > 0)
		assert.EqualValues(t, 1, record.Version)

		duplicate := &balance.Record{Address: "wallet", Lamports: 5}
		assert.Equal(t, balance.ErrStaleVersion, s.Save(ctx, duplicate))

		actual, err := s.Get(ctx, "wallet")
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		other, err := s.Get(ctx, "wallet")
		require.NoError(t, err)

		record.Lamports = 400_000_000
		record.Slot = 2
		require.NoError(t, s.Save(ctx, record))
		assert.EqualValues(t, 2, record.Version)

		other.Lamports = 0
		assert.Equal(t, balance.ErrStaleVersion, s.Save(ctx, other))

		actual, err = s.Get(ctx, "wallet")
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)
	})
}

func testTotalLamports(t *testing.T, s balance.Store) {
	t.Run("testTotalLamports", func(t *testing.T) {
		ctx := context.Background()

		total, err := s.GetTotalLamports(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)

		for i, address := range []string{"a", "b", "c"} {
			require.NoError(t, s.Save(ctx, &balance.Record{Address: address, Lamports: uint64(i+1) * 100}))
		}

		total, err = s.GetTotalLamports(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 600, total)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *balance.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Lamports, obj2.Lamports)
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.Slot, obj2.Slot)
}
