package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimitExceeded is returned by hosting layers that want a sentinel
// for denied requests. Limiter.Allow itself reports denial as a plain false.
var ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

// Policy defines one tier's quota: at most MaxRequests within the trailing
// Window.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultTier is the tier applied to unknown tier names and unauthenticated
// callers.
const DefaultTier = "default"

// Well-known tier names.
const (
	TierAuthenticated = "authenticated"
	TierPremium       = "premium"
)

// DefaultTiers returns the built-in tier table.
func DefaultTiers() map[string]Policy {
	return map[string]Policy{
		DefaultTier:       {MaxRequests: 100, Window: time.Hour},
		TierAuthenticated: {MaxRequests: 1000, Window: time.Hour},
		TierPremium:       {MaxRequests: 10000, Window: time.Hour},
	}
}

// Config configures the limiter.
type Config struct {
	// Tiers maps tier names to policies. A "default" tier is required and
	// is inserted from DefaultTiers when missing.
	// Default: DefaultTiers().
	Tiers map[string]Policy

	// Store backs the per-identity request history.
	// Default: NewMemoryStore().
	Store Store

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Limiter enforces per-identity sliding-window quotas. It is safe for
// concurrent use; accuracy under concurrent calls for the same identity is
// whatever the Store provides (MemoryStore counts and records under one
// lock per call, so a request may slip between the two — accepted
// best-effort behavior).
type Limiter struct {
	tiers map[string]Policy
	store Store
	now   func() time.Time
}

// NewLimiter creates a new limiter.
func NewLimiter(config Config) *Limiter {
	// Apply defaults
	if config.Tiers == nil {
		config.Tiers = DefaultTiers()
	}
	if _, ok := config.Tiers[DefaultTier]; !ok {
		config.Tiers[DefaultTier] = DefaultTiers()[DefaultTier]
	}
	if config.Store == nil {
		config.Store = NewMemoryStore()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Limiter{
		tiers: config.Tiers,
		store: config.Store,
		now:   config.Now,
	}
}

// Allow reports whether one more request from identifier fits within the
// tier's window, recording it when it does. Unknown tiers fall back to the
// default policy. A non-nil error means the store itself failed; the caller
// decides whether that denies or admits traffic.
func (l *Limiter) Allow(ctx context.Context, identifier, tier string) (bool, error) {
	policy, ok := l.tiers[tier]
	if !ok {
		policy = l.tiers[DefaultTier]
	}

	now := l.now()
	count, err := l.store.Count(ctx, identifier, now.Add(-policy.Window))
	if err != nil {
		return false, err
	}
	if count >= policy.MaxRequests {
		// Denied attempts are not recorded.
		return false, nil
	}

	if err := l.store.Record(ctx, identifier, now); err != nil {
		return false, err
	}
	return true, nil
}

// Policy returns the effective policy for a tier name.
func (l *Limiter) Policy(tier string) Policy {
	if p, ok := l.tiers[tier]; ok {
		return p
	}
	return l.tiers[DefaultTier]
}
