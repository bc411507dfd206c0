package rpc

import (
	"github.com/rippl-labs/rippl-server/pkg/config"
	"github.com/rippl-labs/rippl-server/pkg/config/env"
	"github.com/rippl-labs/rippl-server/pkg/config/memory"
	"github.com/rippl-labs/rippl-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RPC_SERVER_"

	// SendTransactionRateLimitConfigEnvName is the number of transactions
	// per second accepted from a single fee payer
	SendTransactionRateLimitConfigEnvName = envConfigPrefix + "SEND_TRANSACTION_RATE_LIMIT"
	defaultSendTransactionRateLimit       = 10.0

	MaxPageSizeConfigEnvName = envConfigPrefix + "MAX_PAGE_SIZE"
	defaultMaxPageSize       = 100

	TransactionCacheBudgetConfigEnvName = envConfigPrefix + "TRANSACTION_CACHE_BUDGET"
	defaultTransactionCacheBudget       = 10_000
)

type conf struct {
	sendTransactionRateLimit config.Float64
	maxPageSize              config.Uint64
	transactionCacheBudget   config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			sendTransactionRateLimit: env.NewFloat64Config(SendTransactionRateLimitConfigEnvName, defaultSendTransactionRateLimit),
			maxPageSize:              env.NewUint64Config(MaxPageSizeConfigEnvName, defaultMaxPageSize),
			transactionCacheBudget:   env.NewUint64Config(TransactionCacheBudgetConfigEnvName, defaultTransactionCacheBudget),
		}
	}
}

type testOverrides struct {
	sendTransactionRateLimit float64
	maxPageSize              uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			sendTransactionRateLimit: wrapper.NewFloat64Config(memory.NewConfig(overrides.sendTransactionRateLimit), defaultSendTransactionRateLimit),
			maxPageSize:              wrapper.NewUint64Config(memory.NewConfig(overrides.maxPageSize), defaultMaxPageSize),
			transactionCacheBudget:   wrapper.NewUint64Config(memory.NewConfig(uint64(defaultTransactionCacheBudget)), defaultTransactionCacheBudget),
		}
	}
}
