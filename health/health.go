// Package health aggregates component health checks for the bridge and
// exposes them over HTTP.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the health state of a component.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one health check.
type Result struct {
	Status  Status
	Message string
	Error   error
}

// Healthy builds a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded builds a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy builds an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// CheckFunc probes one component. It must respect ctx deadlines.
type CheckFunc func(ctx context.Context) Result

// Registry holds named checks and runs them together.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	order  []string

	// Timeout bounds a full CheckAll run. Default 10s.
	Timeout time.Duration
}

// NewRegistry creates an empty check registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]CheckFunc), Timeout: 10 * time.Second}
}

// Register adds or replaces a named check.
func (r *Registry) Register(name string, check CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.checks[name]; !exists {
		r.order = append(r.order, name)
	}
	r.checks[name] = check
}

// CheckAll runs every registered check concurrently and returns the results
// keyed by name.
func (r *Registry) CheckAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	checks := make(map[string]CheckFunc, len(r.checks))
	for name, check := range r.checks {
		checks[name] = check
	}
	r.mu.RUnlock()

	results := make(map[string]Result, len(checks))
	if len(checks) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			result := runCheck(ctx, check)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return results
}

// Overall reduces results to a single status: unhealthy dominates, then
// degraded. No checks means healthy.
func Overall(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// runCheck shields the registry from panicking checks.
func runCheck(ctx context.Context, check CheckFunc) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Unhealthy("check panicked", nil)
		}
	}()
	return check(ctx)
}
