package ratelimit

import (
	"golang.org/x/time/rate"
)

// DefaultBurst is used when Config.Burst is not positive.
const DefaultBurst = 1

// Config holds rate limiting configuration for one provider.
type Config struct {
	// RequestsPerSecond is the sustained rate. Zero or less disables pacing.
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed at once.
	Burst int
}

// Enabled reports whether cfg asks for pacing.
func (c Config) Enabled() bool {
	return c.RequestsPerSecond > 0
}

func newLimiter(cfg Config) *rate.Limiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}
