package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/pointer"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

func RunTests(t *testing.T, s event.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s event.Store){
		testHappyPath,
		testSignatureAndPaging,
		testCounting,
		testWorkerQueries,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s event.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now()
		time.Sleep(time.Millisecond)

		record := &event.Record{
			EventId:   uuid.NewString(),
			Type:      event.TypeDonationReceived,
			Signature: "signature",
			Index:     0,
			Slot:      12,

			Payload: []byte(`{"amount": 1000000}`),

			Attempts: 0,
			State:    event.StateUnknown,
		}
		cloned := record.Clone()

		_, err := s.Get(ctx, record.EventId)
		assert.Equal(t, event.ErrNotFound, err)
		assert.Equal(t, event.ErrNotFound, s.Update(ctx, record))

		require.NoError(t, s.Put(ctx, record))
		assert.Equal(t, event.ErrAlreadyExists, s.Put(ctx, record))

		sameSlotInTx := cloned.Clone()
		sameSlotInTx.EventId = uuid.NewString()
		assert.Equal(t, event.ErrAlreadyExists, s.Put(ctx, &sameSlotInTx))

		actual, err := s.Get(ctx, record.EventId)
		require.NoError(t, err)
		assert.True(t, actual.Id > 0)
		assert.True(t, actual.CreatedAt.After(start))
		assertEquivalentRecords(t, &cloned, actual)

		record.Attempts = 3
		record.State = event.StatePending
		record.NextAttemptAt = pointer.To(time.Now().Add(5 * time.Second))
		cloned = record.Clone()
		require.NoError(t, s.Update(ctx, record))

		actual, err = s.Get(ctx, record.EventId)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		record.State = event.StatePending
		record.NextAttemptAt = nil
		assert.Error(t, s.Update(ctx, record))

		record.Payload = []byte("not json")
		assert.Error(t, s.Put(ctx, record))
	})
}

func testSignatureAndPaging(t *testing.T, s event.Store) {
	t.Run("testSignatureAndPaging", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllBySignature(ctx, "tx1")
		assert.Equal(t, event.ErrNotFound, err)

		_, err = s.GetAll(ctx, nil, 10, query.Ascending)
		assert.Equal(t, event.ErrNotFound, err)

		var records []*event.Record
		for i, tc := range []struct {
			signature string
			index     uint8
			eventType event.Type
		}{
			{"tx1", 1, event.TypeBadgeAwarded},
			{"tx1", 0, event.TypeDonationReceived},
			{"tx2", 0, event.TypeCampaignCreated},
			{"tx1", 2, event.TypeBadgeAwarded},
		} {
			record := &event.Record{
				EventId:   uuid.NewString(),
				Type:      tc.eventType,
				Signature: tc.signature,
				Index:     tc.index,
				Slot:      uint64(i),
				Payload:   []byte(fmt.Sprintf(`{"n": %d}`, i)),
			}
			require.NoError(t, s.Put(ctx, record))
			records = append(records, record)
		}

		actual, err := s.GetAllBySignature(ctx, "tx1")
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentRecords(t, records[1], actual[0])
		assertEquivalentRecords(t, records[0], actual[1])
		assertEquivalentRecords(t, records[3], actual[2])

		actual, err = s.GetAll(ctx, nil, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 4)
		for i := range records {
			assertEquivalentRecords(t, records[i], actual[i])
		}

		actual, err = s.GetAll(ctx, query.ToCursor(records[1].Id), 1, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assertEquivalentRecords(t, records[2], actual[0])

		actual, err = s.GetAll(ctx, nil, 2, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, records[3], actual[0])
		assertEquivalentRecords(t, records[2], actual[1])
	})
}

func testCounting(t *testing.T, s event.Store) {
	t.Run("testCounting", func(t *testing.T) {
		ctx := context.Background()

		records := []*event.Record{
			{EventId: "id1", Type: event.TypeCampaignCreated, Signature: "sig1", Payload: []byte("{}"), State: event.StateUnknown},
			{EventId: "id2", Type: event.TypeCampaignCreated, Signature: "sig2", Payload: []byte("{}"), State: event.StatePending, NextAttemptAt: pointer.To(time.Now())},
			{EventId: "id3", Type: event.TypeCampaignCreated, Signature: "sig3", Payload: []byte("{}"), State: event.StatePending, NextAttemptAt: pointer.To(time.Now())},
			{EventId: "id4", Type: event.TypeCampaignCreated, Signature: "sig4", Payload: []byte("{}"), State: event.StateDelivered},
			{EventId: "id5", Type: event.TypeCampaignCreated, Signature: "sig5", Payload: []byte("{}"), State: event.StateDelivered},
			{EventId: "id6", Type: event.TypeCampaignCreated, Signature: "sig6", Payload: []byte("{}"), State: event.StateDelivered},
		}
		for _, record := range records {
			require.NoError(t, s.Put(ctx, record))
		}

		for state, expected := range map[event.State]uint64{
			event.StateUnknown:   1,
			event.StatePending:   2,
			event.StateDelivered: 3,
			event.StateFailed:    0,
		} {
			count, err := s.CountByState(ctx, state)
			require.NoError(t, err)
			assert.Equal(t, expected, count, state.String())
		}
	})
}

func testWorkerQueries(t *testing.T, s event.Store) {
	t.Run("testWorkerQueries", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllPendingReadyToSend(ctx, 10)
		assert.Equal(t, event.ErrNotFound, err)

		records := []*event.Record{
			{EventId: "id1", Type: event.TypeFundsWithdrawn, Signature: "sig1", Payload: []byte("{}"), Attempts: 0, State: event.StateUnknown},
			{EventId: "id2", Type: event.TypeFundsWithdrawn, Signature: "sig2", Payload: []byte("{}"), Attempts: 1, State: event.StatePending, NextAttemptAt: pointer.To(time.Now().Add(-2 * time.Second))},
			{EventId: "id3", Type: event.TypeFundsWithdrawn, Signature: "sig3", Payload: []byte("{}"), Attempts: 2, State: event.StatePending, NextAttemptAt: pointer.To(time.Now().Add(-1 * time.Second))},
			{EventId: "id4", Type: event.TypeFundsWithdrawn, Signature: "sig4", Payload: []byte("{}"), Attempts: 3, State: event.StatePending, NextAttemptAt: pointer.To(time.Now())},
			{EventId: "id5", Type: event.TypeFundsWithdrawn, Signature: "sig5", Payload: []byte("{}"), Attempts: 4, State: event.StatePending, NextAttemptAt: pointer.To(time.Now().Add(time.Minute))},
			{EventId: "id6", Type: event.TypeFundsWithdrawn, Signature: "sig6", Payload: []byte("{}"), Attempts: 5, State: event.StatePending, NextAttemptAt: pointer.To(time.Now().Add(2 * time.Minute))},
			{EventId: "id7", Type: event.TypeFundsWithdrawn, Signature: "sig7", Payload: []byte("{}"), Attempts: 6, State: event.StateDelivered},
			{EventId: "id8", Type: event.TypeFundsWithdrawn, Signature: "sig8", Payload: []byte("{}"), Attempts: 7, State: event.StateFailed},
		}
		for _, record := range records {
			require.NoError(t, s.Put(ctx, record))
		}

		actual, err := s.GetAllPendingReadyToSend(ctx, 10)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentRecords(t, records[1], actual[0])
		assertEquivalentRecords(t, records[2], actual[1])
		assertEquivalentRecords(t, records[3], actual[2])

		actual, err = s.GetAllPendingReadyToSend(ctx, 2)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, records[1], actual[0])
		assertEquivalentRecords(t, records[2], actual[1])
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *event.Record) {
	assert.Equal(t, obj1.EventId, obj2.EventId)
	assert.Equal(t, obj1.Type, obj2.Type)
	assert.Equal(t, obj1.Signature, obj2.Signature)
	assert.Equal(t, obj1.Index, obj2.Index)
	assert.Equal(t, obj1.Slot, obj2.Slot)
	assert.JSONEq(t, string(obj1.Payload), string(obj2.Payload))
	assert.Equal(t, obj1.Attempts, obj2.Attempts)
	assert.Equal(t, obj1.State, obj2.State)

	if obj1.NextAttemptAt == nil {
		assert.Nil(t, obj2.NextAttemptAt)
	} else {
		require.NotNil(t, obj2.NextAttemptAt)
		assert.Equal(t, obj1.NextAttemptAt.Unix(), obj2.NextAttemptAt.Unix())
	}
}
