package gate

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sellerops/spbridge/auth"
	"github.com/sellerops/spbridge/ratelimit"
)

func newMiddlewareHandler(t *testing.T, tiers map[string]ratelimit.Policy) (http.Handler, *auth.SignatureVerifier) {
	t.Helper()
	codec := auth.NewTokenCodec(auth.TokenCodecConfig{Secret: testSecret})
	credStore := auth.NewCredentialStore(auth.CredentialStoreConfig{})
	verifier := auth.NewSignatureVerifier(auth.SignatureVerifierConfig{Secret: testSecret})
	resolver := auth.NewDefaultResolver(auth.ResolverConfig{
		PublicPaths: []string{"/health"},
	}, codec, credStore, verifier)

	g := New(Config{
		Resolver: resolver,
		Limiter:  ratelimit.NewLimiter(ratelimit.Config{Tiers: tiers}),
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.IdentityFromContext(r.Context())
		if id == nil {
			t.Error("no identity in admitted request context")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(id.Principal))
	})

	return g.Middleware(next), verifier
}

func TestMiddleware_Unauthorized(t *testing.T) {
	handler, _ := newMiddlewareHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestMiddleware_APIKeyAdmitted(t *testing.T) {
	handler, _ := newMiddlewareHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader("{}"))
	req.Header.Set("X-API-Key", "dev-key:dev-secret-change-me")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "dev-key" {
		t.Errorf("principal = %q, want dev-key", rec.Body.String())
	}
}

func TestMiddleware_SignedBodyAdmitted(t *testing.T) {
	handler, verifier := newMiddlewareHandler(t, nil)

	body := `{"method":"tools/list","params":{}}`
	ts := time.Now().Unix()

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("X-Signature", verifier.Sign(body, ts))
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signer-Id", "partner-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "partner-7" {
		t.Errorf("principal = %q, want partner-7", rec.Body.String())
	}
}

func TestMiddleware_RateLimited(t *testing.T) {
	handler, _ := newMiddlewareHandler(t, map[string]ratelimit.Policy{
		ratelimit.DefaultTier:       {MaxRequests: 1, Window: time.Hour},
		ratelimit.TierAuthenticated: {MaxRequests: 1, Window: time.Hour},
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader("{}"))
		req.Header.Set("X-API-Key", "dev-key:dev-secret-change-me")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestMiddleware_PublicPathNoCredentials(t *testing.T) {
	handler, _ := newMiddlewareHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "anonymous" {
		t.Errorf("principal = %q, want anonymous", rec.Body.String())
	}
}

func TestMiddleware_BodyPreservedForHandler(t *testing.T) {
	codec := auth.NewTokenCodec(auth.TokenCodecConfig{Secret: testSecret})
	credStore := auth.NewCredentialStore(auth.CredentialStoreConfig{})
	verifier := auth.NewSignatureVerifier(auth.SignatureVerifierConfig{Secret: testSecret})
	resolver := auth.NewDefaultResolver(auth.ResolverConfig{}, codec, credStore, verifier)
	g := New(Config{Resolver: resolver, Limiter: ratelimit.NewLimiter(ratelimit.Config{})})

	const body = `{"method":"tools/list"}`
	var seen string
	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, len(body)+16)
		n, _ := r.Body.Read(b)
		seen = string(b[:n])
	}))

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("X-API-Key", "dev-key:dev-secret-change-me")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != body {
		t.Errorf("handler saw body %q, want %q", seen, body)
	}
}
