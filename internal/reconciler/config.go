package reconciler

import (
	"time"

	"github.com/aquadesk/aquadesk/internal/config"
)

// Config controls the reconciliation run cadence and batch behavior.
type Config struct {
	RunInterval    time.Duration
	RunTimeout     time.Duration
	BatchSize      int
	MaxWorkers     int
	AccountRetries int
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    time.Hour,
		RunTimeout:     30 * time.Minute,
		BatchSize:      100,
		MaxWorkers:     8,
		AccountRetries: 3,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaults.MaxWorkers
	}
	if c.AccountRetries < 0 {
		c.AccountRetries = defaults.AccountRetries
	}
	return c
}

// ProvideConfig maps application config onto the reconciler knobs.
func ProvideConfig(appCfg config.Config) Config {
	return Config{
		RunInterval:    appCfg.ReconcilerRunInterval,
		RunTimeout:     appCfg.ReconcilerRunTimeout,
		BatchSize:      appCfg.ReconcilerBatchSize,
		MaxWorkers:     appCfg.ReconcilerMaxWorkers,
		AccountRetries: appCfg.ReconcilerAccountRetries,
	}.withDefaults()
}
