package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff defaults.
const (
	InitialBackoff    = 100 * time.Millisecond
	MaxBackoff        = 5 * time.Second
	BackoffMultiplier = 2.0

	// JitterFactor is the largest jitter as a fraction of the base delay.
	JitterFactor = 0.25
)

// BackoffConfig describes an exponential delay schedule.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     float64       `yaml:"jitter"`
}

// DefaultBackoffConfig returns the default backoff configuration.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    InitialBackoff,
		Max:        MaxBackoff,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFactor,
	}
}

// withDefaults fills unset fields. A zero Jitter stays zero and disables
// jitter.
func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = InitialBackoff
	}
	if c.Max <= 0 {
		c.Max = MaxBackoff
	}
	c.Max = max(c.Max, c.Initial)
	if c.Multiplier <= 1 {
		c.Multiplier = BackoffMultiplier
	}
	c.Jitter = max(c.Jitter, 0)
	return c
}

// Base returns the delay before retry n (0-based) without jitter.
func (c BackoffConfig) Base(n int) time.Duration {
	c = c.withDefaults()
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(n))
	if d >= float64(c.Max) || math.IsInf(d, 0) {
		return c.Max
	}
	return time.Duration(d)
}

// Backoff hands out successive delays from a BackoffConfig. It is not safe
// for concurrent use; each retry loop owns one.
type Backoff struct {
	config   BackoffConfig
	attempts int
}

// NewBackoff creates a backoff with the default schedule.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(DefaultBackoffConfig())
}

// NewBackoffWithConfig creates a backoff with a custom schedule.
func NewBackoffWithConfig(config BackoffConfig) *Backoff {
	return &Backoff{config: config.withDefaults()}
}

// Next returns the next delay, jitter included, and advances.
func (b *Backoff) Next() time.Duration {
	d := b.config.Base(b.attempts)
	b.attempts++
	if b.config.Jitter == 0 {
		return d
	}
	return d + time.Duration(float64(d)*b.config.Jitter*rand.Float64())
}

// Reset starts the schedule over.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns how many delays were handed out since the last reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}
