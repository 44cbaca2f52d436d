// Package ratelimit implements the Rate Governor: a pure, per-invocation
// adaptive delay calculator the Dispatch Worker consults between sends.
//
// It deliberately holds no shared or persisted state (SPEC_FULL.md §5,
// §9): each worker invocation starts a fresh Governor at base_delay, and
// cross-invocation coordination is left to the mail provider's own
// throttle signalling. The size-bucket/decay shape is grounded on the
// teacher's AdvancedThrottleManager decision structure in
// internal/worker/advanced_throttle.go, generalized from per-ISP state
// to one invocation-wide state.
package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aws/smithy-go"

	"github.com/ignite/campaign-engine/internal/model"
)

// throttleMarkers are provider-agnostic substrings that indicate a
// throttle/rate-limit condition when found in an error message.
var throttleMarkers = []string{
	"throttle",
	"rate limit",
	"rate exceeded",
	"quota exceeded",
	"slow down",
	"service unavailable",
}

// throttleCodes are provider error codes, recognized via the AWS SDK v2
// smithy.APIError interface, that indicate the same condition.
var throttleCodes = map[string]bool{
	"Throttling":         true,
	"ServiceUnavailable": true,
	"SlowDown":           true,
	"TooManyRequests":    true,
}

// Config holds the tunables a worker instance is configured with
// (SPEC_FULL.md §6).
type Config struct {
	BaseDelay              time.Duration
	MinDelay               time.Duration
	MaxDelay               time.Duration
	ThrottleRecoveryPeriod time.Duration
}

// DefaultConfig matches the defaults named in SPEC_FULL.md §6.
func DefaultConfig() Config {
	return Config{
		BaseDelay:              100 * time.Millisecond,
		MinDelay:               10 * time.Millisecond,
		MaxDelay:               5 * time.Second,
		ThrottleRecoveryPeriod: 60 * time.Second,
	}
}

// Governor is the per-invocation Rate Governor. It is safe for
// concurrent use, though SPEC_FULL.md's concurrency model only ever
// calls it from the single goroutine driving one ProcessBatch.
type Governor struct {
	cfg Config

	mu                   sync.Mutex
	currentDelay         time.Duration
	consecutiveThrottles int
	lastThrottleAt       time.Time
	hasThrottled         bool
}

// New creates a Governor with current_delay_seconds = base_delay, per
// SPEC_FULL.md §5 ("each new invocation starts from a fresh
// current_delay_seconds = base_delay").
func New(cfg Config) *Governor {
	return &Governor{cfg: cfg, currentDelay: cfg.BaseDelay}
}

// DelayFor returns the delay before the next send, bucketed by total
// attachment size and clamped to [min_delay, max_delay].
func (g *Governor) DelayFor(attachments []model.Attachment, sizes map[string]int64) time.Duration {
	var total int64
	for _, a := range attachments {
		total += sizes[a.BlobKey]
	}

	g.mu.Lock()
	base := g.currentDelay
	g.mu.Unlock()

	mult := sizeMultiplier(total)
	delay := time.Duration(float64(base) * mult)
	return g.clamp(delay)
}

func sizeMultiplier(totalBytes int64) float64 {
	const mib = 1024 * 1024
	switch {
	case totalBytes <= 1*mib:
		return 1.0
	case totalBytes <= 5*mib:
		return 1.5
	case totalBytes <= 10*mib:
		return 2.0
	default:
		return 3.0
	}
}

func (g *Governor) clamp(d time.Duration) time.Duration {
	if d < g.cfg.MinDelay {
		return g.cfg.MinDelay
	}
	if d > g.cfg.MaxDelay {
		return g.cfg.MaxDelay
	}
	return d
}

// NoteThrottle doubles current_delay_seconds (capped at max_delay),
// increments consecutive_throttles, and stamps last_throttle_at.
func (g *Governor) NoteThrottle() {
	g.mu.Lock()
	defer g.mu.Unlock()

	doubled := g.currentDelay * 2
	if doubled > g.cfg.MaxDelay {
		doubled = g.cfg.MaxDelay
	}
	g.currentDelay = doubled
	g.consecutiveThrottles++
	g.lastThrottleAt = time.Now()
	g.hasThrottled = true
}

// NoteSuccess decays current_delay_seconds by 10% once the recovery
// period has elapsed since the last throttle, resetting
// consecutive_throttles on each decrement step.
func (g *Governor) NoteSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasThrottled {
		return
	}
	if time.Since(g.lastThrottleAt) <= g.cfg.ThrottleRecoveryPeriod {
		return
	}

	decayed := time.Duration(float64(g.currentDelay) * 0.9)
	if decayed < g.cfg.MinDelay {
		decayed = g.cfg.MinDelay
	}
	g.currentDelay = decayed
	g.consecutiveThrottles = 0
}

// CurrentDelay exposes the current adaptive delay, primarily for tests.
func (g *Governor) CurrentDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentDelay
}

// IsThrottle classifies err as a provider throttle condition per
// SPEC_FULL.md §4.1: either a smithy.APIError with a known throttle
// code, or a message containing a known marker substring.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if throttleCodes[apiErr.ErrorCode()] {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range throttleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
