package async_relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"github.com/rippl-labs/rippl-server/pkg/metrics"
	"github.com/rippl-labs/rippl-server/pkg/pointer"
	"github.com/rippl-labs/rippl-server/pkg/retry"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

var (
	// Quick back-to-back attempts first, then back off an order of magnitude
	// at a time until a day has passed, after which the event is failed.
	attemptToDelay = map[uint8]time.Duration{
		1: 0,
		2: time.Second,
		3: time.Second,
		4: 15 * time.Second,
		5: time.Minute,
		6: 15 * time.Minute,
		7: time.Hour,
		8: 24 * time.Hour,

		// A final unused attempt, so the transition to the failed state goes
		// through the same retryable update path. It only needs to outlast the
		// other attempts.
		9: time.Minute,
	}
)

func (p *service) worker(serviceCtx context.Context, interval time.Duration) error {
	delay := interval

	err := retry.Loop(
		func() (err error) {
			time.Sleep(delay)
			if err := serviceCtx.Err(); err != nil {
				return err
			}

			items, err := p.data.GetAllPendingEventsReadyToSend(serviceCtx, p.conf.workerBatchSize.Get(serviceCtx))
			if err == event.ErrNotFound {
				return nil
			} else if err != nil {
				return err
			}

			var wg sync.WaitGroup
			for _, item := range items {
				wg.Add(1)

				go func(record *event.Record) {
					nr, _ := serviceCtx.Value(metrics.NewRelicContextKey).(*newrelic.Application)
					m := nr.StartTransaction("async__relay_service__handle_" + event.StatePending.String())
					defer m.End()
					tracedCtx := newrelic.NewContext(serviceCtx, m)

					err := p.handlePending(tracedCtx, record, &wg)
					if err != nil {
						m.NoticeError(err)
					}
				}(item)
			}
			wg.Wait()

			return nil
		},
		retry.Context(serviceCtx),
		retry.NonRetriableErrors(context.Canceled, context.DeadlineExceeded),
	)

	return err
}

func (p *service) handlePending(ctx context.Context, record *event.Record, wg *sync.WaitGroup) error {
	if record.State != event.StatePending {
		wg.Done()
		return errors.New("record is not in pending state")
	}

	// The next attempt is scheduled before delivery, so the record isn't
	// picked up again by the next poll
	shouldDeliver, err := p.setupNextAttempt(ctx, record)
	wg.Done()
	if err != nil {
		return err
	}

	if !shouldDeliver {
		return nil
	}

	return p.handleCurrentAttempt(ctx, record)
}

func (p *service) handleCurrentAttempt(ctx context.Context, record *event.Record) error {
	log := p.log.WithFields(logrus.Fields{
		"method":    "handleCurrentAttempt",
		"event":     record.EventId,
		"signature": record.Signature,
		"attempt":   record.Attempts,
	})

	deliveryErr := execute(
		ctx,
		p.signer,
		p.conf.relayUrl.Get(ctx),
		record,
		p.conf.relayTimeout.Get(ctx),
	)
	callbackErr := p.onDeliveryAttempted(ctx, record, deliveryErr == nil)

	if deliveryErr != nil {
		log.WithError(deliveryErr).Warn("failure delivering event")
	}
	if callbackErr != nil {
		log.WithError(callbackErr).Warn("failure handling delivery result")
	}

	return errors.Join(deliveryErr, callbackErr)
}

func (p *service) setupNextAttempt(ctx context.Context, record *event.Record) (bool, error) {
	cloned := record.Clone()
	nextAttempt := cloned.Attempts + 2 // The current attempt isn't counted yet

	delay, ok := attemptToDelay[nextAttempt]
	if !ok {
		cloned.State = event.StateFailed
		cloned.NextAttemptAt = nil
		return false, p.updateEventRecord(ctx, &cloned)
	}

	record.Attempts += 1
	cloned.Attempts += 1
	cloned.NextAttemptAt = pointer.To(time.Now().Add(delay))

	return true, p.updateEventRecord(ctx, &cloned)
}

func (p *service) onDeliveryAttempted(ctx context.Context, record *event.Record, isSuccess bool) error {
	if record.State != event.StatePending {
		return nil
	}

	if isSuccess {
		p.metricsMu.Lock()
		p.deliveredEvents += 1
		p.metricsMu.Unlock()

		record.State = event.StateDelivered
		record.NextAttemptAt = nil
		return p.updateEventRecord(ctx, record)
	}

	p.metricsMu.Lock()
	p.failedDeliveries += 1
	p.metricsMu.Unlock()

	// Only the last attempt moves the record to failed
	if int(record.Attempts) < len(attemptToDelay) {
		return nil
	}

	record.State = event.StateFailed
	record.NextAttemptAt = nil
	return p.updateEventRecord(ctx, record)
}

func (p *service) updateEventRecord(ctx context.Context, record *event.Record) error {
	mu := p.eventLocks.Get([]byte(record.EventId))
	mu.Lock()
	defer mu.Unlock()

	currentRecord, err := p.data.GetEvent(ctx, record.EventId)
	if err != nil {
		return err
	}

	// Delivered is terminal
	if currentRecord.State == event.StateDelivered {
		return nil
	}

	// Once failed, only a late delivery can change the record
	if currentRecord.State == event.StateFailed && record.State != event.StateDelivered {
		return nil
	}

	// Concurrent pending updates keep the highest attempt count
	if record.State == event.StatePending && record.Attempts <= currentRecord.Attempts {
		return nil
	}

	return p.data.UpdateEvent(ctx, record)
}
