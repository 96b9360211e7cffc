package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/jdholdren/stash/internal/serverutil"
	"github.com/jdholdren/stash/internal/stash"
)

const sessionCookieName = "stash_session"

// Describes a user's sessionState that's persisted to their cookie.
type sessionState struct {
	State     string // For the OAuth round trip
	AccountID string
}

// Fetches the current session tied to the request.
func session(r *http.Request, secureCookie *securecookie.SecureCookie) sessionState {
	cookie, err := r.Cookie(sessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return sessionState{}
	}
	if err != nil {
		slog.Error("error fetching cookie", "err", err)
		return sessionState{}
	}

	value := sessionState{}
	if err := secureCookie.Decode(sessionCookieName, cookie.Value, &value); err != nil {
		slog.Error("error decoding cookie", "err", err)
		return sessionState{}
	}

	return value
}

// Sets the session on the request.
func setSession(w http.ResponseWriter, secureCookie *securecookie.SecureCookie, https bool, sess sessionState) {
	encoded, err := secureCookie.Encode(sessionCookieName, sess)
	if err != nil {
		slog.Error("error encoding cookie", "err", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   https,
		HttpOnly: true,
	})
}

// Redirects the user to Reddit's authorize page.
func (s *Server) handleLoginRedirect(w http.ResponseWriter, r *http.Request) error {
	// Create a state to store as part of the flow
	state := sessionState{
		State: uuid.NewString(),
	}
	setSession(w, s.secureCookie, s.httpsCookies, state)

	http.Redirect(w, r, s.oauth.AuthCodeURL(state.State), http.StatusTemporaryRedirect)
	return nil
}

// Handles the code coming back from Reddit. Failures redirect back to the
// welcome page with the error in the query.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) error {
	sess := session(r, s.secureCookie)
	q := r.URL.Query()
	if q.Get("state") != sess.State {
		http.Redirect(w, r, "/welcome?error="+url.QueryEscape("invalid_state"), http.StatusFound)
		return nil
	}
	if q.Get("error") != "" {
		http.Redirect(w, r, "/welcome?error="+url.QueryEscape(q.Get("error")), http.StatusFound)
		return nil
	}

	tok, err := s.oauth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		http.Redirect(w, r, "/welcome?error="+url.QueryEscape(err.Error()), http.StatusFound)
		return nil
	}

	// Ask Reddit who this token belongs to.
	ident, err := s.newClient(stash.Account{AccessToken: tok.AccessToken}).Me(r.Context())
	if err != nil {
		http.Redirect(w, r, "/welcome?error="+url.QueryEscape(err.Error()), http.StatusFound)
		return nil
	}

	expiry := tok.Expiry.UTC()
	acct, err := s.repo.EnsureAccount(r.Context(), stash.Account{
		RedditID:       ident.ID,
		Username:       ident.Name,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: &expiry,
	})
	if err != nil {
		http.Redirect(w, r, "/welcome?error="+url.QueryEscape(err.Error()), http.StatusFound)
		return nil
	}

	setSession(w, s.secureCookie, s.httpsCookies, sessionState{
		AccountID: acct.ID,
	})

	redirectURL := s.redirectURL
	if redirectURL == "" {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
	return nil
}

func (s *Server) getLogout(w http.ResponseWriter, r *http.Request) error {
	setSession(w, s.secureCookie, s.httpsCookies, sessionState{})

	http.Redirect(w, r, "/welcome", http.StatusFound)

	return nil
}

// Viewer is the structured data about the current user in the frontend.
type Viewer struct {
	AccountID  string     `json:"account_id"`
	Username   string     `json:"username"`
	LastSyncAt *time.Time `json:"last_sync_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// An empty object means "not logged in": the frontend renders the welcome
// page instead of erroring.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) error {
	sess := session(r, s.secureCookie)
	if sess.AccountID == "" {
		return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
	}
	acct, err := s.repo.Account(r.Context(), sess.AccountID)
	if errors.Is(err, stash.ErrNotFound) {
		return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, Viewer{
		AccountID:  acct.ID,
		Username:   acct.Username,
		LastSyncAt: acct.LastSyncAt,
		CreatedAt:  acct.CreatedAt,
	})
}
