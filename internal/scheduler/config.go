package scheduler

import (
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Config struct {
	// RunInterval is the pause between scheduler sweeps.
	RunInterval time.Duration
	// BatchSize bounds how many rows each job touches per sweep.
	BatchSize int
	// PendingGrace is how long past its slot a PENDING booking may sit
	// before the expiry job cancels it.
	PendingGrace time.Duration
	// PayoutPeriod is the window the payout sweep covers, ending at the
	// start of the current day.
	PayoutPeriod time.Duration
	// EnabledJobs limits which jobs run; empty means all.
	EnabledJobs []string
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = 15 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.PendingGrace <= 0 {
		c.PendingGrace = 2 * time.Hour
	}
	if c.PayoutPeriod <= 0 {
		c.PayoutPeriod = 7 * 24 * time.Hour
	}
	return c
}
