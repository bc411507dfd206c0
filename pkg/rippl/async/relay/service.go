package async_relay

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rippl-labs/rippl-server/pkg/rippl/async"
	"github.com/rippl-labs/rippl-server/pkg/rippl/common"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	sync_util "github.com/rippl-labs/rippl-server/pkg/sync"
)

const metricsStructName = "async__relay_service"

type service struct {
	log        *logrus.Entry
	conf       *conf
	data       data.DatabaseData
	signer     *common.Account
	eventLocks *sync_util.StripedLock

	metricsMu        sync.Mutex
	deliveredEvents  int
	failedDeliveries int
}

// New returns a service that delivers pending outbox events to the relay
// endpoint as JWTs signed by signer
func New(data data.DatabaseData, signer *common.Account, configProvider ConfigProvider) async.Service {
	return &service{
		log:        logrus.StandardLogger().WithField("type", "async/relay"),
		conf:       configProvider(),
		data:       data,
		signer:     signer,
		eventLocks: sync_util.NewStripedLock(1024),
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {
	go func() {
		err := p.worker(ctx, interval)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warnf("relay processing loop terminated unexpectedly")
		}
	}()

	go func() {
		err := p.metricsGaugeWorker(ctx)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("relay metrics gauge loop terminated unexpectedly")
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}
