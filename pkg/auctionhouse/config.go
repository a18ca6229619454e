package auctionhouse

import (
	"github.com/code-payments/auction-house-server/pkg/config"
	"github.com/code-payments/auction-house-server/pkg/config/env"
	"github.com/code-payments/auction-house-server/pkg/config/memory"
	"github.com/code-payments/auction-house-server/pkg/config/wrapper"
	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

const (
	envConfigPrefix = "AUCTION_HOUSE_"

	MaxSellerFeeBasisPointsConfigEnvName = envConfigPrefix + "MAX_SELLER_FEE_BASIS_POINTS"
	defaultMaxSellerFeeBasisPoints       = auctionhouse_program.MaxBasisPoints

	ReceiptsEnabledConfigEnvName = envConfigPrefix + "RECEIPTS_ENABLED"
	defaultReceiptsEnabled       = true

	ReceiptWorkerCountConfigEnvName = envConfigPrefix + "RECEIPT_WORKER_COUNT"
	defaultReceiptWorkerCount       = 8

	ReceiptQueueSizeConfigEnvName = envConfigPrefix + "RECEIPT_QUEUE_SIZE"
	defaultReceiptQueueSize       = 1024
)

type conf struct {
	maxSellerFeeBasisPoints config.Uint64
	receiptsEnabled         config.Bool
	receiptWorkerCount      config.Uint64
	receiptQueueSize        config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxSellerFeeBasisPoints: env.NewUint64Config(MaxSellerFeeBasisPointsConfigEnvName, defaultMaxSellerFeeBasisPoints),
			receiptsEnabled:         env.NewBoolConfig(ReceiptsEnabledConfigEnvName, defaultReceiptsEnabled),
			receiptWorkerCount:      env.NewUint64Config(ReceiptWorkerCountConfigEnvName, defaultReceiptWorkerCount),
			receiptQueueSize:        env.NewUint64Config(ReceiptQueueSizeConfigEnvName, defaultReceiptQueueSize),
		}
	}
}

// Overrides are static config values, used by the CLI and tests
type Overrides struct {
	MaxSellerFeeBasisPoints uint64
	DisableReceipts         bool
	ReceiptWorkerCount      uint64
	ReceiptQueueSize        uint64
}

// WithOverrides returns configuration with static values. Zero values fall
// back to defaults.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		return &conf{
			maxSellerFeeBasisPoints: wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.MaxSellerFeeBasisPoints)), defaultMaxSellerFeeBasisPoints),
			receiptsEnabled:         wrapper.NewBoolConfig(memory.NewConfig(!overrides.DisableReceipts), defaultReceiptsEnabled),
			receiptWorkerCount:      wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.ReceiptWorkerCount)), defaultReceiptWorkerCount),
			receiptQueueSize:        wrapper.NewUint64Config(memory.NewConfig(uint64OrUnset(overrides.ReceiptQueueSize)), defaultReceiptQueueSize),
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
