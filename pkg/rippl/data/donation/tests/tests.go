package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
)

func RunTests(t *testing.T, s donation.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s donation.Store){
		testRoundTrip,
		testQueries,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s donation.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now().Add(-time.Second)

		record := newTestRecord("campaign", "donor", 0, 1_000_000_000)

		_, err := s.GetByAddress(ctx, record.Address)
		assert.Equal(t, donation.ErrNotFound, err)

		require.NoError(t, s.Put(ctx, record))
		assert.True(t, record.Id > 0)
		assert.True(t, record.CreatedAt.After(start))

		duplicate := record.Clone()
		assert.Equal(t, donation.ErrAlreadyExists, s.Put(ctx, &duplicate))

		duplicate = record.Clone()
		duplicate.Address = "other_address"
		assert.Equal(t, donation.ErrAlreadyExists, s.Put(ctx, &duplicate))

		actual, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)
	})
}

func testQueries(t *testing.T, s donation.Store) {
	t.Run("testQueries", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByCampaign(ctx, "campaign1", nil, 10, query.Ascending)
		assert.Equal(t, donation.ErrNotFound, err)
		_, err = s.GetAllByDonor(ctx, "donor1", nil, 10, query.Ascending)
		assert.Equal(t, donation.ErrNotFound, err)

		count, err := s.CountByCampaign(ctx, "campaign1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		total, err := s.GetTotalAmountByCampaign(ctx, "campaign1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)

		var records []*donation.Record
		for i := 0; i < 6; i++ {
			campaign := fmt.Sprintf("campaign%d", i%2)
			donor := fmt.Sprintf("donor%d", i%3)
			record := newTestRecord(campaign, donor, uint32(i/2), uint64(i+1)*1_000_000)
			require.NoError(t, s.Put(ctx, record))
			records = append(records, record)
		}

		actual, err := s.GetAllByCampaign(ctx, "campaign1", nil, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		for i, record := range actual {
			assertEquivalentRecords(t, records[2*i+1], record)
		}

		actual, err = s.GetAllByCampaign(ctx, "campaign1", nil, 2, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, records[5].Address, actual[0].Address)
		assert.Equal(t, records[3].Address, actual[1].Address)

		actual, err = s.GetAllByCampaign(ctx, "campaign1", query.ToCursor(records[3].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, records[1].Address, actual[0].Address)

		actual, err = s.GetAllByDonor(ctx, "donor0", nil, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, records[0].Address, actual[0].Address)
		assert.Equal(t, records[3].Address, actual[1].Address)

		count, err = s.CountByCampaign(ctx, "campaign0")
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		total, err = s.GetTotalAmountByCampaign(ctx, "campaign0")
		require.NoError(t, err)
		assert.EqualValues(t, 9_000_000, total)

		total, err = s.GetTotalAmountByCampaign(ctx, "campaign1")
		require.NoError(t, err)
		assert.EqualValues(t, 12_000_000, total)
	})
}

func newTestRecord(campaign, donor string, sequence uint32, amount uint64) *donation.Record {
	return &donation.Record{
		Address:  fmt.Sprintf("donation_%s_%d", campaign, sequence),
		Bump:     253,
		Donor:    donor,
		Campaign: campaign,
		Sequence: sequence,

		Amount:            amount,
		Timestamp:         time.Now().Unix(),
		Status:            donation.StatusCompleted,
		PaymentMethod:     donation.PaymentMethodCryptoWallet,
		TransactionHash:   fmt.Sprintf("signature_%s_%d", campaign, sequence),
		ImpactDescription: "",

		Slot: uint64(sequence) + 1,
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *donation.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.Donor, obj2.Donor)
	assert.Equal(t, obj1.Campaign, obj2.Campaign)
	assert.Equal(t, obj1.Sequence, obj2.Sequence)
	assert.Equal(t, obj1.Amount, obj2.Amount)
	assert.Equal(t, obj1.Timestamp, obj2.Timestamp)
	assert.Equal(t, obj1.Status, obj2.Status)
	assert.Equal(t, obj1.PaymentMethod, obj2.PaymentMethod)
	assert.Equal(t, obj1.TransactionHash, obj2.TransactionHash)
	assert.Equal(t, obj1.ImpactDescription, obj2.ImpactDescription)
	assert.Equal(t, obj1.Slot, obj2.Slot)
}
