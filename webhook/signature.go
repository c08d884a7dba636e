// Package webhook verifies inbound forge webhook signatures and
// routes validated events to the core's handlers.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

const signaturePrefix = "sha256="

// VerifySignature checks header (the raw "X-<Forge>-Signature" value)
// against the HMAC-SHA256 of body under secret, in constant time. An
// empty secret disables verification (the caller is expected to have
// logged a loud warning at startup in that case).
func VerifySignature(secret []byte, header string, body []byte) bool {
	if len(secret) == 0 {
		return true
	}
	if len(header) <= len(signaturePrefix) || header[:len(signaturePrefix)] != signaturePrefix {
		return false
	}
	sum := hmac.New(sha256.New, secret)
	sum.Write(body)
	expected := hex.EncodeToString(sum.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header[len(signaturePrefix):]))
}

// RequireSignature is an http.Handler wrapper enforcing
// VerifySignature against the configured secret header name before
// delegating to next.
func RequireSignature(secret []byte, headerName string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get(headerName)
		body, err := readAndRestore(r)
		if err != nil || !VerifySignature(secret, header, body) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
