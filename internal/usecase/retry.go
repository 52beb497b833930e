package usecase

import "time"

const (
	defaultAttempts   = 3
	defaultBackoff    = 2 * time.Second
	defaultMaxBackoff = 30 * time.Second
	defaultMultiplier = 2.0
)

// RetryPolicy controls news fetch retries. Zero fields take defaults.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	} else if p.InitialBackoff == 0 {
		p.InitialBackoff = defaultBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaultMultiplier
	}
	return p
}

// Backoff returns the wait before retry number attempt (0-based), capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	if time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}
