package async_relay

import (
	"context"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/metrics"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

const (
	eventCountEventName      = "RelayEventCountPollingCheck"
	eventDeliveriesEventName = "RelayDeliveriesPollingCheck"

	eventCountMetricPrefix = "RelayEventCount/"
)

func (p *service) metricsGaugeWorker(ctx context.Context) error {
	delay := time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			start := time.Now()

			for _, state := range []event.State{event.StatePending, event.StateFailed} {
				p.recordEventCountEvent(ctx, state)
			}
			p.recordDeliveriesEvent(ctx)

			delay = time.Second - time.Since(start)
		}
	}
}

func (p *service) recordEventCountEvent(ctx context.Context, state event.State) {
	count, err := p.data.CountEventsByState(ctx, state)
	if err != nil {
		return
	}

	metrics.RecordEvent(ctx, eventCountEventName, map[string]interface{}{
		"count": count,
		"state": state.String(),
	})
	metrics.RecordCount(ctx, eventCountMetricPrefix+state.String(), count)
}

func (p *service) recordDeliveriesEvent(ctx context.Context) {
	p.metricsMu.Lock()
	delivered := p.deliveredEvents
	failed := p.failedDeliveries
	p.deliveredEvents = 0
	p.failedDeliveries = 0
	p.metricsMu.Unlock()

	metrics.RecordEvent(ctx, eventDeliveriesEventName, map[string]interface{}{
		"successes": delivered,
		"failures":  failed,
	})
}
