package async_expiry

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rippl-labs/rippl-server/pkg/metrics"
	"github.com/rippl-labs/rippl-server/pkg/rippl/async"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/runtime"
)

const (
	metricsStructName = "async__expiry_service"

	campaignsExpiredEventName   = "CampaignsExpiredPollingCheck"
	expiryRunDurationMetricName = "ExpiryRunDuration"
)

// Expirer applies the campaign expiry hook
type Expirer interface {
	ExpireCampaign(ctx context.Context, address string) (*runtime.Result, error)
}

type service struct {
	log     *logrus.Entry
	conf    *conf
	data    data.DatabaseData
	expirer Expirer
	now     func() time.Time
}

// New returns a service that periodically moves Active campaigns past their
// end date to Expired
func New(data data.DatabaseData, expirer Expirer, configProvider ConfigProvider) async.Service {
	return &service{
		log:     logrus.StandardLogger().WithField("type", "async/expiry"),
		conf:    configProvider(),
		data:    data,
		expirer: expirer,
		now:     time.Now,
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {
	cronJob := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	job := cron.FuncJob(func() {
		start := time.Now()
		expired, err := p.expireEndedCampaigns(ctx)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("failure expiring campaigns")
		}
		metrics.RecordDuration(ctx, expiryRunDurationMetricName, time.Since(start))

		metrics.RecordEvent(ctx, campaignsExpiredEventName, map[string]interface{}{
			"count": expired,
		})
	})

	schedule := p.conf.schedule.Get(ctx)
	if len(schedule) > 0 {
		if _, err := cronJob.AddJob(schedule, job); err != nil {
			return errors.Wrapf(err, "invalid expiry schedule %q", schedule)
		}
	} else {
		cronJob.Schedule(cron.Every(interval), job)
	}

	cronJob.Start()

	<-ctx.Done()
	<-cronJob.Stop().Done()
	return ctx.Err()
}

// expireEndedCampaigns runs the expiry hook over every Active campaign whose
// end date has passed, returning the number expired
func (p *service) expireEndedCampaigns(ctx context.Context) (int, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "expireEndedCampaigns")
	defer tracer.End()

	log := p.log.WithField("method", "expireEndedCampaigns")

	var expired int
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		limit := p.conf.batchSize.Get(ctx)
		items, err := p.data.GetAllActiveCampaignsEndedBefore(ctx, p.now().Unix(), limit)
		if err == campaign.ErrNotFound {
			return expired, nil
		} else if err != nil {
			tracer.OnError(err)
			return expired, err
		}

		var expiredInBatch int
		for _, item := range items {
			log := log.WithField("campaign", item.Address)

			result, err := p.expirer.ExpireCampaign(ctx, item.Address)
			if err != nil {
				log.WithError(err).Warn("failure expiring campaign")
				continue
			}
			if result.Err != nil {
				log.WithError(result.Err).Info("campaign not expired")
				continue
			}

			log.Debug("campaign expired")
			expiredInBatch++
		}
		expired += expiredInBatch

		// Campaigns that couldn't be expired would be returned again, so
		// stop once a batch makes no progress
		if uint64(len(items)) < limit || expiredInBatch == 0 {
			return expired, nil
		}
	}
}
