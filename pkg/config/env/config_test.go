package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rippl-labs/rippl-server/pkg/config"
)

func TestConfig(t *testing.T) {
	const key = "ENV_CONFIG_TEST_VAR"

	t.Setenv(key, "value")
	v, err := NewConfig(key).Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	// Keys are case insensitive
	v, err = NewConfig("env_config_test_var").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	t.Setenv(key, "")
	v, err = NewConfig(key).Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestTypedConfigs(t *testing.T) {
	ctx := context.Background()

	t.Setenv("ENV_CONFIG_TEST_BOOL", "true")
	t.Setenv("ENV_CONFIG_TEST_UINT64", "42")
	t.Setenv("ENV_CONFIG_TEST_FLOAT64", "0.5")
	t.Setenv("ENV_CONFIG_TEST_STRING", "https://relay.example.com")
	t.Setenv("ENV_CONFIG_TEST_DURATION", "15s")

	assert.True(t, NewBoolConfig("ENV_CONFIG_TEST_BOOL", false).Get(ctx))
	assert.EqualValues(t, 42, NewUint64Config("ENV_CONFIG_TEST_UINT64", 1).Get(ctx))
	assert.Equal(t, 0.5, NewFloat64Config("ENV_CONFIG_TEST_FLOAT64", 1).Get(ctx))
	assert.Equal(t, "https://relay.example.com", NewStringConfig("ENV_CONFIG_TEST_STRING", "").Get(ctx))
	assert.Equal(t, 15*time.Second, NewDurationConfig("ENV_CONFIG_TEST_DURATION", time.Second).Get(ctx))

	// Unset values fall back to the default
	assert.EqualValues(t, 250, NewUint64Config("ENV_CONFIG_TEST_UNSET", 250).Get(ctx))
}
