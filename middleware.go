package aiguard

import (
	"crypto/subtle"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
)

const requestIDHeader = "X-Request-ID"

// Middleware enforces admission on AI-facing routes. Per request it:
//
//  1. lets trusted internal callers through on a shared-secret header,
//  2. rejects with 503 while cost controls block the service,
//  3. rejects with 429 plus Retry-After/X-RateLimit-* headers when the
//     client is over its request quota,
//  4. otherwise forwards to next, stamping a request ID when absent.
//
// A spend block and a rate limit denial are deliberately distinct
// conditions with distinct status codes and bodies.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.bypassed(r) {
			next.ServeHTTP(w, r)
			return
		}

		chars := r.ContentLength
		if chars < 0 {
			chars = 0
		}
		adm := g.Admit(r.Context(), ClientIdentity(r), chars)

		if adm.Blocked {
			writeJSONError(w, http.StatusServiceUnavailable, "cost_limit",
				"service temporarily unavailable due to cost controls", 0)
			return
		}

		if !adm.Decision.Allowed {
			retryAfter := ceilSeconds(adm.Decision.RetryAfter.Seconds())
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(g.cfg.Limiter.MaxRequests, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(retryAfter, 10))
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited",
				"too many requests, please retry later", retryAfter)
			return
		}

		if r.Header.Get(requestIDHeader) == "" {
			w.Header().Set(requestIDHeader, adm.RequestID)
		}
		next.ServeHTTP(w, r)
	})
}

// bypassed reports whether the request carries the configured internal
// shared secret. An empty configured secret disables the bypass.
func (g *Guard) bypassed(r *http.Request) bool {
	secret := g.cfg.Bypass.Secret
	if secret == "" {
		return false
	}
	got := r.Header.Get(g.cfg.Bypass.Header)
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}

// ClientIdentity resolves the rate limit identity for a request: the
// client IP when one can be resolved, otherwise a privacy-preserving
// fingerprint of the best-effort address. An unresolvable, empty address
// lands in the shared unknown bucket.
func ClientIdentity(r *http.Request) string {
	// First hop of X-Forwarded-For when present.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip.String()
		}
	}

	return IdentityFingerprint(r.RemoteAddr)
}

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string, retryAfter int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:      code,
		Message:    message,
		RetryAfter: retryAfter,
	})
}

// ceilSeconds rounds up so sub-second waits are never reported as zero,
// which would invite an immediate retry.
func ceilSeconds(s float64) int64 {
	n := int64(math.Ceil(s))
	if n < 1 {
		n = 1
	}
	return n
}
