package runtime

import (
	"github.com/code-payments/auction-house-server/pkg/config"
	"github.com/code-payments/auction-house-server/pkg/config/env"
	"github.com/code-payments/auction-house-server/pkg/config/memory"
	"github.com/code-payments/auction-house-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RUNTIME_"

	StripedLockParallelizationConfigEnvName = envConfigPrefix + "STRIPED_LOCK_PARALLELIZATION"
	defaultStripedLockParallelization       = 1024

	MaxCallDepthConfigEnvName = envConfigPrefix + "MAX_CALL_DEPTH"
	defaultMaxCallDepth       = 4

	MaxCommitAttemptsConfigEnvName = envConfigPrefix + "MAX_COMMIT_ATTEMPTS"
	defaultMaxCommitAttempts       = 5

	SubmitRateLimitConfigEnvName = envConfigPrefix + "SUBMIT_RATE_LIMIT"
	defaultSubmitRateLimit       = 0 // Per fee payer per second, 0 disables limiting

	LamportsPerByteYearConfigEnvName = envConfigPrefix + "LAMPORTS_PER_BYTE_YEAR"
	defaultLamportsPerByteYear       = DefaultLamportsPerByteYear

	RentExemptionThresholdConfigEnvName = envConfigPrefix + "RENT_EXEMPTION_THRESHOLD"
	defaultRentExemptionThreshold       = DefaultExemptionThreshold
)

type conf struct {
	stripedLockParallelization config.Uint64
	maxCallDepth               config.Uint64
	maxCommitAttempts          config.Uint64
	submitRateLimit            config.Float64
	lamportsPerByteYear        config.Uint64
	rentExemptionThreshold     config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			stripedLockParallelization: env.NewUint64Config(StripedLockParallelizationConfigEnvName, defaultStripedLockParallelization),
			maxCallDepth:               env.NewUint64Config(MaxCallDepthConfigEnvName, defaultMaxCallDepth),
			maxCommitAttempts:          env.NewUint64Config(MaxCommitAttemptsConfigEnvName, defaultMaxCommitAttempts),
			submitRateLimit:            env.NewFloat64Config(SubmitRateLimitConfigEnvName, defaultSubmitRateLimit),
			lamportsPerByteYear:        env.NewUint64Config(LamportsPerByteYearConfigEnvName, defaultLamportsPerByteYear),
			rentExemptionThreshold:     env.NewUint64Config(RentExemptionThresholdConfigEnvName, defaultRentExemptionThreshold),
		}
	}
}

// Overrides are static config values, used by the CLI and tests
type Overrides struct {
	StripedLockParallelization uint64
	MaxCallDepth               uint64
	MaxCommitAttempts          uint64
	SubmitRateLimit            float64
	Rent                       RentSchedule
}

// WithOverrides returns configuration with static values. Zero values fall
// back to defaults.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		return &conf{
			stripedLockParallelization: wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.StripedLockParallelization)), defaultStripedLockParallelization),
			maxCallDepth:               wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.MaxCallDepth)), defaultMaxCallDepth),
			maxCommitAttempts:          wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.MaxCommitAttempts)), defaultMaxCommitAttempts),
			submitRateLimit:            wrapper.NewFloat64Config(memory.NewConfig(overrides.SubmitRateLimit), defaultSubmitRateLimit),
			lamportsPerByteYear:        wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.Rent.LamportsPerByteYear)), defaultLamportsPerByteYear),
			rentExemptionThreshold:     wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.Rent.ExemptionThreshold)), defaultRentExemptionThreshold),
		}
	}
}

func withManualTestOverrides(overrides *Overrides) ConfigProvider {
	return WithOverrides(overrides)
}

func uint64OrUnset(value uint64) interface{} {
	if value == 0 {
		return nil
	}
	return value
}
