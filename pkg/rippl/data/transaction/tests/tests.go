package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
)

func RunTests(t *testing.T, s transaction.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s transaction.Store){
		testRoundTrip,
		testSlotsAndCounts,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s transaction.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.Get(ctx, "sig1")
		assert.Equal(t, transaction.ErrNotFound, err)

		record := &transaction.Record{
			Signature:         "sig1",
			Slot:              7,
			BlockTime:         time.Unix(1_700_000_000, 0),
			FeePayer:          "payer",
			Fee:               5000,
			Data:              []byte{1, 2, 3},
			ConfirmationState: transaction.ConfirmationFailed,
			Error:             []byte(`{"InstructionError":[0,{"Custom":6011}]}`),
		}
		cloned := record.Clone()

		require.NoError(t, s.Put(ctx, record))
		assert.True(t, record.Id > 0)
		assert.False(t, record.CreatedAt.IsZero())
		assert.Equal(t, transaction.ErrAlreadyExists, s.Put(ctx, &cloned))

		actual, err := s.Get(ctx, "sig1")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		invalid := cloned.Clone()
		invalid.Signature = "sig2"
		invalid.ConfirmationState = transaction.ConfirmationFinalized
		assert.Error(t, s.Put(ctx, &invalid))

		invalid.Error = nil
		invalid.Slot = 0
		assert.Error(t, s.Put(ctx, &invalid))
	})
}

func testSlotsAndCounts(t *testing.T, s transaction.Store) {
	t.Run("testSlotsAndCounts", func(t *testing.T) {
		ctx := context.Background()

		slot, err := s.GetLatestSlot(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, slot)

		for i, state := range []transaction.ConfirmationState{
			transaction.ConfirmationFinalized,
			transaction.ConfirmationFinalized,
			transaction.ConfirmationFailed,
		} {
			record := &transaction.Record{
				Signature:         string(rune('a' + i)),
				Slot:              uint64(10 - i),
				BlockTime:         time.Now(),
				FeePayer:          "payer",
				Fee:               5000,
				Data:              []byte{byte(i)},
				ConfirmationState: state,
			}
			if state == transaction.ConfirmationFailed {
				record.Error = []byte(`"AccountNotFound"`)
			}
			require.NoError(t, s.Put(ctx, record))
		}

		slot, err = s.GetLatestSlot(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 10, slot)

		count, err := s.CountByState(ctx, transaction.ConfirmationFinalized)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		count, err = s.CountByState(ctx, transaction.ConfirmationFailed)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *transaction.Record) {
	assert.Equal(t, obj1.Signature, obj2.Signature)
	assert.Equal(t, obj1.Slot, obj2.Slot)
	assert.Equal(t, obj1.BlockTime.Unix(), obj2.BlockTime.Unix())
	assert.Equal(t, obj1.FeePayer, obj2.FeePayer)
	assert.Equal(t, obj1.Fee, obj2.Fee)
	assert.Equal(t, obj1.Data, obj2.Data)
	assert.Equal(t, obj1.ConfirmationState, obj2.ConfirmationState)
	assert.Equal(t, obj1.Error, obj2.Error)
}
