package async_expiry

import (
	"github.com/rippl-labs/rippl-server/pkg/config"
	"github.com/rippl-labs/rippl-server/pkg/config/env"
	"github.com/rippl-labs/rippl-server/pkg/config/memory"
	"github.com/rippl-labs/rippl-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "EXPIRY_SERVICE_"

	// ScheduleConfigEnvName is a cron expression. When empty, the service runs at
	// the interval it was started with.
	ScheduleConfigEnvName = envConfigPrefix + "SCHEDULE"
	defaultSchedule       = ""

	BatchSizeConfigEnvName = envConfigPrefix + "BATCH_SIZE"
	defaultBatchSize       = 100
)

type conf struct {
	schedule  config.String
	batchSize config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			schedule:  env.NewStringConfig(ScheduleConfigEnvName, defaultSchedule),
			batchSize: env.NewUint64Config(BatchSizeConfigEnvName, defaultBatchSize),
		}
	}
}

type testOverrides struct {
	batchSize uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			schedule:  wrapper.NewStringConfig(memory.NewConfig(defaultSchedule), defaultSchedule),
			batchSize: wrapper.NewUint64Config(memory.NewConfig(overrides.batchSize), defaultBatchSize),
		}
	}
}
