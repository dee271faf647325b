package spapi

import (
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrUpstreamUnavailable indicates the circuit is open after repeated
// upstream failures; calls fail fast until the reset timeout elapses.
var ErrUpstreamUnavailable = errors.New("spapi: upstream unavailable, circuit open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker fails fast when the upstream keeps erroring. After maxFailures
// consecutive countable failures the circuit opens; once resetAfter has
// passed a single trial request is let through, and its outcome decides
// whether the circuit closes again.
type breaker struct {
	maxFailures int
	resetAfter  time.Duration
	now         func() time.Time

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
	trialling   bool
}

func newBreaker(maxFailures int, resetAfter time.Duration) *breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetAfter <= 0 {
		resetAfter = 30 * time.Second
	}
	return &breaker{
		maxFailures: maxFailures,
		resetAfter:  resetAfter,
		now:         time.Now,
	}
}

// allow reports whether a request may proceed.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if b.now().Sub(b.lastFailure) < b.resetAfter {
			return ErrUpstreamUnavailable
		}
		b.state = breakerHalfOpen
		b.trialling = true
		return nil
	default: // half-open: one trial at a time
		if b.trialling {
			return ErrUpstreamUnavailable
		}
		b.trialling = true
		return nil
	}
}

// observe records the outcome of an allowed request.
func (b *breaker) observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialling = false
	if !breakerFailure(err) {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == breakerHalfOpen || b.failures >= b.maxFailures {
		b.state = breakerOpen
	}
}

// breakerFailure reports whether the error indicates a broken upstream.
// Caller mistakes (4xx other than 429) and missing-listing responses do
// not count.
func breakerFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMissingCredentials) {
		return false
	}
	return true
}
