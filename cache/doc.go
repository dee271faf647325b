// Package cache provides short-lived caching for tool results.
//
// Marketplace lookups are slow and throttled upstream, so identical tool
// calls within a small window are served from cache, and concurrent
// identical calls are collapsed into a single upstream fetch.
package cache
