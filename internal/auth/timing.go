package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds the padding applied to rejected logins
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random jitter range in milliseconds
	DelayOnSuccess bool // Pad successful logins too
}

// TimingDelay pads login responses so a wrong passphrase, a honeypot hit and
// a block all take roughly the same wall time
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// NoDelay returns a TimingDelay that never waits
func NoDelay() *TimingDelay {
	return NewTimingDelay(TimingConfig{})
}

// cryptoRandIntn returns a secure random number in [0, max)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

// Target returns base delay plus a fresh random jitter
func (td *TimingDelay) Target() time.Duration {
	base := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs <= 0 {
		return base
	}
	jitter, err := cryptoRandIntn(td.config.RandomDelayMs)
	if err != nil {
		return base
	}
	return base + time.Duration(jitter)*time.Millisecond
}

// WaitFrom sleeps until at least the target delay has elapsed since startTime
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}

	target := td.Target()
	if elapsed := time.Since(startTime); elapsed < target {
		td.sleep(target - elapsed)
	}
}
