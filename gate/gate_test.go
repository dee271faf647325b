package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sellerops/spbridge/auth"
	"github.com/sellerops/spbridge/ratelimit"
)

var testSecret = []byte("test-secret-key-at-least-32-bytes")

func newTestGate(t *testing.T, tiers map[string]ratelimit.Policy, store ratelimit.Store, failOpen bool) (*Gate, *auth.TokenCodec) {
	t.Helper()
	codec := auth.NewTokenCodec(auth.TokenCodecConfig{Secret: testSecret})
	credStore := auth.NewCredentialStore(auth.CredentialStoreConfig{}) // dev fallback
	verifier := auth.NewSignatureVerifier(auth.SignatureVerifierConfig{Secret: testSecret})
	resolver := auth.NewDefaultResolver(auth.ResolverConfig{
		PublicPaths: []string{"/health", "/docs"},
	}, codec, credStore, verifier)

	cfg := ratelimit.Config{Tiers: tiers}
	if store != nil {
		cfg.Store = store
	}
	limiter := ratelimit.NewLimiter(cfg)

	return New(Config{
		Resolver: resolver,
		Limiter:  limiter,
		FailOpen: failOpen,
	}), codec
}

func TestGate_UnauthenticatedDenied(t *testing.T) {
	g, _ := newTestGate(t, nil, nil, false)

	verdict := g.Admit(context.Background(), &auth.Request{Path: "/rpc"}, "10.0.0.1")
	if verdict.Allowed || verdict.Identity != nil {
		t.Errorf("verdict = %+v, want denied with nil identity", verdict)
	}
	if verdict.RateLimited {
		t.Error("RateLimited = true for unauthenticated request")
	}
}

func TestGate_AuthenticatedAllowed(t *testing.T) {
	g, codec := newTestGate(t, nil, nil, false)

	token, _ := codec.Issue("user123", nil)
	req := &auth.Request{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
		Path:    "/rpc",
	}

	verdict := g.Admit(context.Background(), req, "10.0.0.1")
	if !verdict.Allowed {
		t.Fatalf("verdict = %+v, want allowed", verdict)
	}
	if verdict.Identity.Principal != "user123" {
		t.Errorf("Principal = %q, want user123", verdict.Identity.Principal)
	}
}

func TestGate_PublicPathRateLimitedByAddress(t *testing.T) {
	tiers := map[string]ratelimit.Policy{
		ratelimit.DefaultTier: {MaxRequests: 2, Window: time.Hour},
	}
	g, _ := newTestGate(t, tiers, nil, false)
	ctx := context.Background()

	req := &auth.Request{Path: "/health"}
	for i := 0; i < 2; i++ {
		verdict := g.Admit(ctx, req, "10.0.0.1")
		if !verdict.Allowed {
			t.Fatalf("public request %d denied", i+1)
		}
		if verdict.Identity == nil || verdict.Identity.Authenticated {
			t.Fatalf("identity = %+v, want anonymous", verdict.Identity)
		}
	}

	// Anonymous callers share the default tier, keyed by address.
	verdict := g.Admit(ctx, req, "10.0.0.1")
	if !verdict.RateLimited {
		t.Error("third public request not rate limited")
	}

	// A different address has its own budget.
	if verdict := g.Admit(ctx, req, "10.0.0.2"); !verdict.Allowed {
		t.Error("request from fresh address denied")
	}
}

func TestGate_AuthenticatedTierQuota(t *testing.T) {
	tiers := map[string]ratelimit.Policy{
		ratelimit.DefaultTier:       {MaxRequests: 1, Window: time.Hour},
		ratelimit.TierAuthenticated: {MaxRequests: 3, Window: time.Hour},
	}
	g, codec := newTestGate(t, tiers, nil, false)
	ctx := context.Background()

	token, _ := codec.Issue("user123", nil)
	req := &auth.Request{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
		Path:    "/rpc",
	}

	for i := 0; i < 3; i++ {
		if verdict := g.Admit(ctx, req, "10.0.0.1"); !verdict.Allowed {
			t.Fatalf("authenticated request %d denied", i+1)
		}
	}

	verdict := g.Admit(ctx, req, "10.0.0.1")
	if !verdict.RateLimited {
		t.Fatal("request over authenticated quota not rate limited")
	}
	if verdict.Identity == nil {
		t.Error("rate-limited verdict lost the identity")
	}
}

func TestGate_PremiumTierFromClaim(t *testing.T) {
	tiers := map[string]ratelimit.Policy{
		ratelimit.DefaultTier:       {MaxRequests: 1, Window: time.Hour},
		ratelimit.TierAuthenticated: {MaxRequests: 1, Window: time.Hour},
		ratelimit.TierPremium:       {MaxRequests: 5, Window: time.Hour},
	}
	g, codec := newTestGate(t, tiers, nil, false)
	ctx := context.Background()

	token, _ := codec.Issue("big-seller", map[string]any{"tier": "premium"})
	req := &auth.Request{
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
		Path:    "/rpc",
	}

	for i := 0; i < 5; i++ {
		if verdict := g.Admit(ctx, req, "10.0.0.1"); !verdict.Allowed {
			t.Fatalf("premium request %d denied", i+1)
		}
	}
}

// errStore always fails, standing in for an unreachable Redis.
type errStore struct{}

func (errStore) Count(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("store down")
}

func (errStore) Record(context.Context, string, time.Time) error {
	return errors.New("store down")
}

func TestGate_StoreFailure(t *testing.T) {
	token := func(g *Gate, codec *auth.TokenCodec) *auth.Request {
		tok, _ := codec.Issue("user123", nil)
		return &auth.Request{
			Headers: map[string][]string{"Authorization": {"Bearer " + tok}},
			Path:    "/rpc",
		}
	}

	t.Run("fail closed", func(t *testing.T) {
		g, codec := newTestGate(t, nil, errStore{}, false)
		verdict := g.Admit(context.Background(), token(g, codec), "10.0.0.1")
		if verdict.Allowed {
			t.Error("verdict allowed with failing store, want denied")
		}
	})

	t.Run("fail open", func(t *testing.T) {
		g, codec := newTestGate(t, nil, errStore{}, true)
		verdict := g.Admit(context.Background(), token(g, codec), "10.0.0.1")
		if !verdict.Allowed {
			t.Error("verdict denied with failing store, want fail-open admit")
		}
	})
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		name string
		id   *auth.Identity
		want string
	}{
		{"anonymous", auth.Anonymous(), ratelimit.DefaultTier},
		{"authenticated", &auth.Identity{Principal: "u", Authenticated: true}, ratelimit.TierAuthenticated},
		{"credential tier wins", &auth.Identity{Principal: "u", Authenticated: true, Tier: "premium"}, ratelimit.TierPremium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierFor(tt.id); got != tt.want {
				t.Errorf("TierFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
