// Package gate composes authentication and rate limiting into a single
// admission decision, and adapts it as net/http middleware.
//
// The Gate is the only piece the hosting layer calls per request: it feeds
// headers, path, and body to the auth resolver, picks a rate-limit tier and
// identifier from the resulting identity, and asks the limiter for a
// verdict. The hosting layer maps the verdict to protocol responses.
package gate

import (
	"context"

	"github.com/sellerops/spbridge/auth"
	"github.com/sellerops/spbridge/observe"
	"github.com/sellerops/spbridge/ratelimit"
)

// Config configures the gate.
type Config struct {
	Resolver *auth.Resolver
	Limiter  *ratelimit.Limiter

	// Logger receives admission decisions. Optional.
	Logger observe.Logger

	// Metrics records admission outcomes. Optional.
	Metrics observe.Metrics

	// FailOpen admits traffic when the rate-limit store errors (for
	// example, Redis is unreachable). When false such requests are
	// denied. Default: false.
	FailOpen bool
}

// Verdict is the admission decision for one request.
type Verdict struct {
	// Identity is non-nil when the request authenticated or hit a public
	// path. Nil means unauthenticated.
	Identity *auth.Identity

	// Allowed is the final admission decision.
	Allowed bool

	// RateLimited is true when the request authenticated but exceeded its
	// tier's quota.
	RateLimited bool
}

// Gate is the admission-control entry point.
type Gate struct {
	resolver *auth.Resolver
	limiter  *ratelimit.Limiter
	logger   observe.Logger
	metrics  observe.Metrics
	failOpen bool
}

// New creates a gate.
func New(cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.NopMetrics()
	}

	return &Gate{
		resolver: cfg.Resolver,
		limiter:  cfg.Limiter,
		logger:   logger,
		metrics:  metrics,
		failOpen: cfg.FailOpen,
	}
}

// Admit authenticates the request and applies the rate limit. remoteAddr
// identifies callers that resolve to an anonymous identity.
func (g *Gate) Admit(ctx context.Context, req *auth.Request, remoteAddr string) Verdict {
	identity := g.resolver.Resolve(ctx, req)
	if identity == nil {
		g.metrics.RecordAdmission(ctx, observe.OutcomeUnauthenticated, "", "")
		g.logger.Debug(ctx, "request rejected: no credentials resolved",
			observe.F("path", req.Path))
		return Verdict{}
	}

	identifier := identity.Principal
	if identity.IsAnonymous() || identifier == "" {
		identifier = remoteAddr
	}
	tier := TierFor(identity)

	allowed, err := g.limiter.Allow(ctx, identifier, tier)
	if err != nil {
		g.logger.Error(ctx, "rate limit store unavailable",
			observe.F("error", err.Error()),
			observe.F("fail_open", g.failOpen))
		if g.failOpen {
			g.metrics.RecordAdmission(ctx, observe.OutcomeAllowed, string(identity.Method), tier)
			return Verdict{Identity: identity, Allowed: true}
		}
		return Verdict{Identity: identity, RateLimited: true}
	}
	if !allowed {
		g.metrics.RecordAdmission(ctx, observe.OutcomeRateLimited, string(identity.Method), tier)
		g.logger.Warn(ctx, "request rate limited",
			observe.F("principal", identity.Principal),
			observe.F("tier", tier))
		return Verdict{Identity: identity, RateLimited: true}
	}

	g.metrics.RecordAdmission(ctx, observe.OutcomeAllowed, string(identity.Method), tier)
	return Verdict{Identity: identity, Allowed: true}
}

// TierFor maps an identity to its rate-limit tier: a tier granted by the
// credential wins, authenticated callers get the authenticated tier, and
// everyone else shares the default.
func TierFor(id *auth.Identity) string {
	if id.Tier != "" {
		return id.Tier
	}
	if id.Authenticated {
		return ratelimit.TierAuthenticated
	}
	return ratelimit.DefaultTier
}
