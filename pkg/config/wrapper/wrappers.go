package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/config"
)

// ErrUnsuportedConversion indicates the wrapper does not implement conversion from the source type
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

// valueConfig wraps an untyped config.Config. Raw []byte values, as produced
// by env configs, are parsed; any other value must already be of type T.
type valueConfig[T any] struct {
	override     config.Config
	defaultValue T
	parse        func(raw string) (T, error)
	convert      func(value interface{}) (T, bool)

	stateMu   sync.RWMutex
	lastValue T
}

func newValueConfig[T any](
	override config.Config,
	defaultValue T,
	parse func(string) (T, error),
	convert func(interface{}) (T, bool),
) *valueConfig[T] {
	return &valueConfig[T]{
		override:     override,
		defaultValue: defaultValue,
		parse:        parse,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *valueConfig[T]) GetSafe(ctx context.Context) (T, error) {
	override, err := c.override.Get(ctx)
	if err == config.ErrNoValue {
		c.setLastValue(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return c.getLastValue(), err
	}

	var newValue T
	if raw, ok := override.([]byte); ok {
		newValue, err = c.parse(string(raw))
		if err != nil {
			return c.getLastValue(), err
		}
	} else {
		newValue, ok = c.convert(override)
		if !ok {
			return c.getLastValue(), ErrUnsuportedConversion
		}
	}

	c.setLastValue(newValue)
	return newValue, nil
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *valueConfig[T]) Get(ctx context.Context) T {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *valueConfig[T]) Shutdown() {
	c.override.Shutdown()
}

func (c *valueConfig[T]) getLastValue() T {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastValue
}

func (c *valueConfig[T]) setLastValue(value T) {
	c.stateMu.Lock()
	c.lastValue = value
	c.stateMu.Unlock()
}

func exactly[T any](value interface{}) (T, bool) {
	typed, ok := value.(T)
	return typed, ok
}

// NewBoolConfig returns a new bool config utility wrapper
func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return newValueConfig(override, defaultValue, strconv.ParseBool, exactly[bool])
}

// NewUint64Config returns a new uint64 config utility wrapper
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	parse := func(raw string) (uint64, error) {
		return strconv.ParseUint(raw, 10, 64)
	}
	convert := func(value interface{}) (uint64, bool) {
		switch typed := value.(type) {
		case uint64:
			return typed, true
		case uint:
			return uint64(typed), true
		default:
			return 0, false
		}
	}
	return newValueConfig(override, defaultValue, parse, convert)
}

// NewFloat64Config returns a new float64 config utility wrapper
func NewFloat64Config(override config.Config, defaultValue float64) config.Float64 {
	parse := func(raw string) (float64, error) {
		return strconv.ParseFloat(raw, 64)
	}
	return newValueConfig(override, defaultValue, parse, exactly[float64])
}

// NewStringConfig returns a new string config utility wrapper
func NewStringConfig(override config.Config, defaultValue string) config.String {
	parse := func(raw string) (string, error) {
		return raw, nil
	}
	return newValueConfig(override, defaultValue, parse, exactly[string])
}

// NewDurationConfig returns a new duration config utility wrapper
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return newValueConfig(override, defaultValue, time.ParseDuration, exactly[time.Duration])
}
