package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jdholdren/stash/internal/stash"
)

type contextKey string

const accountIDKey contextKey = "accountID"

// accountID pulls the authenticated account out of the request context.
// Empty means the middleware never ran, which is a routing bug.
func accountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}

// requireAccount authenticates by session cookie first, then by the
// X-Api-Key header. Either way the account ID lands on the context.
func (s *Server) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := session(r, s.secureCookie); sess.AccountID != "" {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountIDKey, sess.AccountID)))
			return
		}

		raw := apiKey(r)
		if raw == "" {
			http.Error(w, "Unauthenticated", http.StatusUnauthorized)
			return
		}

		sum := sha256.Sum256([]byte(raw))
		key, err := s.repo.ActiveAPIKeyByHash(r.Context(), hex.EncodeToString(sum[:]))
		if errors.Is(err, stash.ErrNotFound) {
			http.Error(w, "Unauthenticated", http.StatusUnauthorized)
			return
		}
		if err != nil {
			slog.Error("error looking up api key", "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if err := s.repo.TouchAPIKey(r.Context(), key.ID); err != nil {
			slog.Error("error touching api key", "err", err)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountIDKey, key.AccountID)))
	})
}

// apiKey pulls the raw key from either the X-Api-Key header or a bearer
// Authorization header.
func apiKey(r *http.Request) string {
	if v := r.Header.Get("X-Api-Key"); v != "" {
		return v
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return v
	}

	return ""
}

// requireSession only accepts a cookie session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session(r, s.secureCookie)
		if sess.AccountID == "" {
			http.Error(w, "Unauthenticated", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountIDKey, sess.AccountID)))
	})
}
