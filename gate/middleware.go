package gate

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/sellerops/spbridge/auth"
	"github.com/sellerops/spbridge/observe"
)

// MaxBodyBytes caps how much request body the middleware buffers for
// signature verification.
const MaxBodyBytes = 1 << 20 // 1 MiB

// Middleware returns an http.Handler that runs admission control in front
// of next. Unauthenticated requests get 401, rate-limited requests 429; the
// admitted identity is attached to the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable request body")
				return
			}
			r.Body.Close()
			// The handler downstream still needs the body.
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		req := &auth.Request{
			Headers: r.Header,
			Path:    r.URL.Path,
			Body:    string(body),
		}

		verdict := g.Admit(r.Context(), req, remoteHost(r))
		switch {
		case verdict.RateLimited:
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		case !verdict.Allowed:
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := auth.WithIdentity(r.Context(), verdict.Identity)
		g.logger.Debug(ctx, "request admitted",
			observe.F("principal", verdict.Identity.Principal),
			observe.F("auth.method", string(verdict.Identity.Method)),
			observe.F("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
