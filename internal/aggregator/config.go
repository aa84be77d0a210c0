package aggregator

import (
	"time"
)

// Config controls cycle cadence, parallelism and the retry policy.
type Config struct {
	RunInterval      time.Duration
	Workers          int
	PartitionTimeout time.Duration
	LeaseTTL         time.Duration
	MaxAttempts      int
	BackoffBase      time.Duration
	BackoffCap       time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      time.Minute,
		Workers:          8,
		PartitionTimeout: 30 * time.Second,
		LeaseTTL:         2 * time.Minute,
		MaxAttempts:      5,
		BackoffBase:      30 * time.Second,
		BackoffCap:       30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.PartitionTimeout <= 0 {
		c.PartitionTimeout = defaults.PartitionTimeout
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaults.LeaseTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaults.BackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = defaults.BackoffCap
	}
	return c
}

// backoff returns the deferral before the next attempt. Doubles per
// consecutive failure, capped.
func (c Config) backoff(attempts int) time.Duration {
	d := c.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= c.BackoffCap {
			return c.BackoffCap
		}
	}
	if d > c.BackoffCap {
		return c.BackoffCap
	}
	return d
}
