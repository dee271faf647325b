// Package ratelimit provides a tiered sliding-window rate limiter.
//
// Each identity has an ordered history of request timestamps; a request is
// allowed when, after pruning entries older than the tier's window, the
// remaining count is below the tier's quota. Denied attempts are not
// recorded, so a saturated caller recovers as soon as the window slides.
//
// The history lives behind the Store interface. MemoryStore is the
// single-process default; RedisStore shares the history across instances
// when one global budget per identity is required.
package ratelimit
