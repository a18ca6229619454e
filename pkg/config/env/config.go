// Package env sources config values from environment variables. Keys are
// upper cased, so "max_call_depth" reads MAX_CALL_DEPTH.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/code-payments/auction-house-server/pkg/config"
	"github.com/code-payments/auction-house-server/pkg/config/wrapper"
)

type variable string

// NewConfig returns a config reading the variable named by key on every Get.
// Values are returned as []byte for the typed wrappers to parse.
func NewConfig(key string) config.Config {
	return variable(strings.ToUpper(key))
}

// Get implements config.Config.Get
func (v variable) Get(_ context.Context) (interface{}, error) {
	val := os.Getenv(string(v))
	if len(val) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(val), nil
}

// Shutdown implements config.Config.Shutdown
func (variable) Shutdown() {}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}
