package reddit

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/jdholdren/stash/internal/stash"
)

// Endpoint is Reddit's OAuth2 surface. Reddit wants the client credentials
// as basic auth on the token endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://www.reddit.com/api/v1/authorize",
	TokenURL:  "https://www.reddit.com/api/v1/access_token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// Scopes the app asks for: enough to read the saved listing and unsave.
var Scopes = []string{"identity", "history", "read", "save"}

// OAuth handles the authorization-code exchange at login and refresh-token
// grants afterwards. Refreshes are written back to the account record.
type OAuth struct {
	conf *oauth2.Config
	repo stash.AccountRepo
}

func NewOAuth(clientID, clientSecret, redirectURL string, repo stash.AccountRepo) OAuth {
	return OAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     Endpoint,
			Scopes:       Scopes,
		},
		repo: repo,
	}
}

// AuthCodeURL builds the login redirect. Asking for a permanent grant is
// what gets us a refresh token.
func (o OAuth) AuthCodeURL(state string) string {
	return o.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "permanent"))
}

// Exchange trades the callback code for tokens.
func (o OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("error exchanging code: %w", err)
	}

	return tok, nil
}

// Refresh trades the account's refresh token for a fresh access token and
// persists the result. The returned account carries the new credentials.
func (o OAuth) Refresh(ctx context.Context, acct stash.Account) (stash.Account, error) {
	if acct.RefreshToken == "" {
		return stash.Account{}, errors.New("account has no refresh token")
	}

	tok, err := o.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: acct.RefreshToken}).Token()
	if err != nil {
		return stash.Account{}, fmt.Errorf("error refreshing token: %w", err)
	}

	expiry := tok.Expiry.UTC()
	args := stash.TokenArgs{
		AccessToken: tok.AccessToken,
		ExpiresAt:   expiry,
	}
	// Reddit only rotates the refresh token sometimes.
	if tok.RefreshToken != "" && tok.RefreshToken != acct.RefreshToken {
		args.RefreshToken = tok.RefreshToken
	}
	if err := o.repo.UpdateAccountTokens(ctx, acct.ID, args); err != nil {
		return stash.Account{}, fmt.Errorf("error persisting refreshed tokens: %s", err)
	}

	acct.AccessToken = tok.AccessToken
	acct.TokenExpiresAt = &expiry
	if args.RefreshToken != "" {
		acct.RefreshToken = args.RefreshToken
	}

	return acct, nil
}
