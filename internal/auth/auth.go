// Package auth guards the northbound control API with bearer-token
// authentication. Tokens are HS256 JWTs signed with the shared secret
// from the daemon configuration; an empty secret disables auth, which
// is the expected mode for a driver daemon bound to localhost.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey types context values stored by the middleware.
type ContextKey string

// SubjectKey holds the authenticated token subject.
const SubjectKey ContextKey = "subject"

// Verifier validates bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the shared HS256 secret. A nil or
// empty secret yields a nil verifier, meaning auth is disabled.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning its subject.
func (v *Verifier) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read token subject: %w", err)
	}
	return sub, nil
}

// RequireAuth wraps a handler with bearer-token verification. With a
// nil verifier the handler is returned unchanged.
func RequireAuth(v *Verifier, next http.HandlerFunc) http.HandlerFunc {
	if v == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			writeUnauthorized(w, "authentication required")
			return
		}
		sub, err := v.Verify(token)
		if err != nil {
			writeUnauthorized(w, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), SubjectKey, sub)
		next(w, r.WithContext(ctx))
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", fmt.Errorf("missing bearer token")
	}
	return token, nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": msg,
	})
}
