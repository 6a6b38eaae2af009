package scheduler

import (
	"math/rand"
	"time"
)

type BackoffConfig struct {
	BaseDelay time.Duration // default 30s
	MaxDelay  time.Duration // default 30m
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		BaseDelay: 30 * time.Second,
		MaxDelay:  30 * time.Minute,
	}
}

// NextRetryAt: exponential backoff dengan full jitter. attempt mulai dari 1 (1 => BaseDelay).
func NextRetryAt(now time.Time, attempt int, cfg BackoffConfig, rng *rand.Rand) time.Time {
	if attempt < 1 {
		attempt = 1
	}
	def := DefaultBackoff()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}

	// base * 2^(attempt-1), berhenti di cap (tanpa overflow)
	delay := cfg.BaseDelay
	for i := 1; i < attempt && delay < cfg.MaxDelay; i++ {
		delay *= 2
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := time.Duration(rng.Int63n(int64(delay) + 1))

	return now.Add(jitter).UTC()
}
