package async_relay

import (
	"time"

	"github.com/rippl-labs/rippl-server/pkg/config"
	"github.com/rippl-labs/rippl-server/pkg/config/env"
	"github.com/rippl-labs/rippl-server/pkg/config/memory"
	"github.com/rippl-labs/rippl-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RELAY_SERVICE_"

	WorkerBatchSizeConfigEnvName = envConfigPrefix + "WORKER_BATCH_SIZE"
	defaultWorkerBatchSize       = 250

	RelayUrlConfigEnvName = envConfigPrefix + "URL"
	defaultRelayUrl       = ""

	RelayTimeoutConfigEnvName = envConfigPrefix + "TIMEOUT"
	defaultRelayTimeout       = 3 * time.Second
)

type conf struct {
	workerBatchSize config.Uint64
	relayUrl        config.String
	relayTimeout    config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			workerBatchSize: env.NewUint64Config(WorkerBatchSizeConfigEnvName, defaultWorkerBatchSize),
			relayUrl:        env.NewStringConfig(RelayUrlConfigEnvName, defaultRelayUrl),
			relayTimeout:    env.NewDurationConfig(RelayTimeoutConfigEnvName, defaultRelayTimeout),
		}
	}
}

type testOverrides struct {
	relayUrl     string
	relayTimeout time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			workerBatchSize: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultWorkerBatchSize)), defaultWorkerBatchSize),
			relayUrl:        wrapper.NewStringConfig(memory.NewConfig(overrides.relayUrl), defaultRelayUrl),
			relayTimeout:    wrapper.NewDurationConfig(memory.NewConfig(overrides.relayTimeout), defaultRelayTimeout),
		}
	}
}
