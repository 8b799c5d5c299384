package poll

import "time"

// Config holds configuration for the poller
type Config struct {
	// Interval is the pause after a fetch that reported no further work
	Interval time.Duration
}

// DefaultConfig returns a Config with the probe's default twelve hour interval
func DefaultConfig() Config {
	return Config{
		Interval: 12 * time.Hour,
	}
}
