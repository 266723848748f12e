package eth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Rate limiter per endpoint with auto-tuning
type rateLimiter struct {
	url          string
	maxTokens    int
	lastSuccess  time.Time // last successful call without 429
	backoffUntil time.Time // don't make any calls until this time
	autoMode     bool      // true = auto-tune rate, false = fixed rate
	lastCallTime time.Time // when last RPC call was made
	mu           sync.Mutex
}

const (
	initialRateLimit = 5                // start with 5 calls/sec (conservative for cold start)
	minRateLimit     = 1                // minimum 1 call/sec
	maxRateLimit     = 100              // maximum 100 calls/sec
	increaseInterval = 60 * time.Second // increase rate after 60 seconds without errors
	increasePercent  = 10               // increase by 10%
	decreasePercent  = 50               // decrease by 50% on 429 error
	backoffPeriod    = 5 * time.Second
)

// newRateLimiter starts in auto mode when rate is 0.
func newRateLimiter(url string, rate int) *rateLimiter {
	autoMode := rate <= 0
	if autoMode {
		rate = initialRateLimit
	}
	return &rateLimiter{
		url:          url,
		maxTokens:    rate,
		lastSuccess:  time.Now(),
		lastCallTime: time.Now().Add(-time.Second),
		autoMode:     autoMode,
	}
}

// waitForToken blocks until a call slot is available or ctx is done.
// At N calls/sec there is at least 1/N seconds between calls.
func (rl *rateLimiter) waitForToken(ctx context.Context) error {
	for {
		rl.mu.Lock()

		now := time.Now()
		var wait time.Duration

		if now.Before(rl.backoffUntil) {
			wait = rl.backoffUntil.Sub(now)
		} else if since := now.Sub(rl.lastCallTime); since < time.Second/time.Duration(rl.maxTokens) {
			wait = time.Second/time.Duration(rl.maxTokens) - since
		}

		if wait > 0 {
			rl.mu.Unlock()
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			continue // Re-check everything after waiting
		}

		if rl.autoMode && time.Since(rl.lastSuccess) > increaseInterval && rl.maxTokens < maxRateLimit {
			newMax := min(rl.maxTokens+(rl.maxTokens*increasePercent/100), maxRateLimit)
			if newMax == rl.maxTokens {
				newMax++
			}
			log.Debug().Str("url", rl.url).Int("oldRate", rl.maxTokens).Int("newRate", newMax).Msg("Rate limit increased (auto)")
			rl.maxTokens = newMax
			rl.lastSuccess = now
		}

		rl.lastCallTime = now
		rl.mu.Unlock()
		return nil
	}
}

// onRateLimitError is called when a 429 error is received - reduces rate and sets backoff
func (rl *rateLimiter) onRateLimitError() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	log.Warn().Str("url", rl.url).Int("rate", rl.maxTokens).Msg("429 rate limit error")

	rl.backoffUntil = time.Now().Add(backoffPeriod)

	if rl.autoMode {
		newMax := max(rl.maxTokens-(rl.maxTokens*decreasePercent/100), minRateLimit)
		if newMax < rl.maxTokens {
			log.Debug().Str("url", rl.url).Int("oldRate", rl.maxTokens).Int("newRate", newMax).Msg("Rate limit decreased due to 429 error (auto)")
			rl.maxTokens = newMax
		}
	}
}

func (rl *rateLimiter) onSuccess() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.lastSuccess = time.Now()
}

func (rl *rateLimiter) rate() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.maxTokens
}

// isRateLimitError checks if an error is a 429 rate limit error
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") || strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "rate limit")
}
