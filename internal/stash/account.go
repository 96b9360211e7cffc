package stash

import (
	"time"
)

// Account is a Reddit user that has authenticated with the app.
//
// The tokens on it are what the sync engine uses to talk to Reddit on the
// user's behalf.
type Account struct {
	ID       string `db:"id"`
	RedditID string `db:"reddit_id"`
	Username string `db:"username"`

	AccessToken    string     `db:"access_token"`
	RefreshToken   string     `db:"refresh_token"`
	TokenExpiresAt *time.Time `db:"token_expires_at"`

	LastSyncAt     *time.Time `db:"last_sync_at"`
	SyncInProgress bool       `db:"sync_in_progress"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// How early a token counts as expired, to avoid using one that dies
// mid-pagination.
const tokenExpiryBuffer = 5 * time.Minute

// TokenExpired reports whether the access token needs a refresh before use.
// An account with no recorded expiry always needs one.
func (a Account) TokenExpired() bool {
	if a.TokenExpiresAt == nil {
		return true
	}

	return !time.Now().UTC().Before(a.TokenExpiresAt.Add(-tokenExpiryBuffer))
}

// TokenArgs holds the fields written on every token exchange or refresh.
type TokenArgs struct {
	AccessToken  string
	RefreshToken string // Left as-is when empty: Reddit doesn't always rotate it
	ExpiresAt    time.Time
}
