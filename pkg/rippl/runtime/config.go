package runtime

import (
	"github.com/rippl-labs/rippl-server/pkg/config"
	"github.com/rippl-labs/rippl-server/pkg/config/env"
	"github.com/rippl-labs/rippl-server/pkg/config/memory"
	"github.com/rippl-labs/rippl-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RUNTIME_"

	RelayEnabledConfigEnvName = envConfigPrefix + "RELAY_ENABLED"
	defaultRelayEnabled       = false

	AirdropEnabledConfigEnvName = envConfigPrefix + "AIRDROP_ENABLED"
	defaultAirdropEnabled       = false

	MaxAirdropLamportsConfigEnvName = envConfigPrefix + "MAX_AIRDROP_LAMPORTS"
	defaultMaxAirdropLamports       = 5_000_000_000
)

type conf struct {
	relayEnabled       config.Bool
	airdropEnabled     config.Bool
	maxAirdropLamports config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			relayEnabled:       env.NewBoolConfig(RelayEnabledConfigEnvName, defaultRelayEnabled),
			airdropEnabled:     env.NewBoolConfig(AirdropEnabledConfigEnvName, defaultAirdropEnabled),
			maxAirdropLamports: env.NewUint64Config(MaxAirdropLamportsConfigEnvName, defaultMaxAirdropLamports),
		}
	}
}

type testOverrides struct {
	relayEnabled       bool
	airdropEnabled     bool
	maxAirdropLamports uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			relayEnabled:       wrapper.NewBoolConfig(memory.NewConfig(overrides.relayEnabled), defaultRelayEnabled),
			airdropEnabled:     wrapper.NewBoolConfig(memory.NewConfig(overrides.airdropEnabled), defaultAirdropEnabled),
			maxAirdropLamports: wrapper.NewUint64Config(memory.NewConfig(overrides.maxAirdropLamports), defaultMaxAirdropLamports),
		}
	}
}
