// Package middleware provides HTTP middleware for the webhook API.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/epieletronica-png/wa-ia/internal/identity"
)

// SignatureHeader carries the HMAC of the request body.
const SignatureHeader = "X-Hub-Signature-256"

const maxBodyBytes = 1 << 20

// ErrInvalidSignature is returned when a signature is missing or wrong.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks header, of the form "sha256=<hex>", against the
// HMAC-SHA256 of body keyed by secret.
func VerifySignature(secret string, body []byte, header string) error {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Signature returns middleware that rejects requests whose body does not
// carry a valid signature. With an empty secret every request is refused,
// unless allowUnsigned is set for local development.
func Signature(secret string, allowUnsigned bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			if allowUnsigned {
				return next
			}
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				slog.Warn("rejected webhook, no app secret configured", "ip", identity.IPFromRequest(r))
				writeError(w, http.StatusServiceUnavailable, "webhook secret not configured")
			})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			_ = r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}

			if err := VerifySignature(secret, body, r.Header.Get(SignatureHeader)); err != nil {
				slog.Warn("rejected webhook with bad signature", "ip", identity.IPFromRequest(r))
				writeError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
