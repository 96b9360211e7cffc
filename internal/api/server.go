// Package api serves the HTTP surface: session login via Reddit OAuth,
// item browsing and state, sync control, and API key management.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdholdren/stash/internal/reddit"
	"github.com/jdholdren/stash/internal/serverutil"
	"github.com/jdholdren/stash/internal/stash"
	"github.com/jdholdren/stash/internal/sync"
)

// Syncer is the slice of the sync service the handlers drive.
type Syncer interface {
	Sync(ctx context.Context, accountID string, full bool) (sync.Result, error)
	Unsave(ctx context.Context, accountID, redditID string) error
}

type (
	// Server handles requests for one deployment of the mirror.
	Server struct {
		*http.Server

		repo   stash.Repository
		syncer Syncer
		oauth  reddit.OAuth

		// Builds a client bound to an account, used to look up who just
		// logged in.
		newClient func(acct stash.Account) *reddit.Client

		itemRespCache *lru.Cache[string, ItemResp]

		secureCookie *securecookie.SecureCookie
		httpsCookies bool
		redirectURL  string // Where to land after login
	}

	ServerConfig struct {
		Port           int
		CookieHashKey  []byte
		CookieBlockKey []byte
		HttpsCookies   bool
		CorsHeader     string
		RedirectURL    string
	}
)

func NewServer(config ServerConfig, repo stash.Repository, syncer Syncer, oauth reddit.OAuth, newClient func(stash.Account) *reddit.Client) *Server {
	var (
		r        = serverutil.ErrRouter{Router: mux.NewRouter()}
		cache, _ = lru.New[string, ItemResp](1024)
	)

	srvr := Server{
		repo:          repo,
		syncer:        syncer,
		oauth:         oauth,
		newClient:     newClient,
		itemRespCache: cache,
		secureCookie:  securecookie.New(config.CookieHashKey, config.CookieBlockKey),
		httpsCookies:  config.HttpsCookies,
		redirectURL:   config.RedirectURL,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Minute, // A sync walks the whole listing
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type", "x-api-key", "authorization"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.HandleFuncE("/api/viewer", srvr.handleViewer).Methods(http.MethodGet)
	r.HandleFuncE("/auth/login", srvr.handleLoginRedirect).Methods(http.MethodGet)
	r.HandleFuncE("/auth/callback", srvr.handleCallback).Methods(http.MethodGet)
	r.HandleFuncE("/auth/logout", srvr.getLogout).Methods(http.MethodGet)

	authed := serverutil.ErrRouter{Router: r.NewRoute().Subrouter()}
	authed.Use(srvr.requireAccount)

	// Sync control
	authed.HandleFuncE("/api/sync", srvr.postSync).Methods(http.MethodPost)
	authed.HandleFuncE("/api/sync/status", srvr.getSyncStatus).Methods(http.MethodGet)

	// The mirrored items
	authed.HandleFuncE("/api/items", srvr.getItems).Methods(http.MethodGet)
	authed.HandleFuncE("/api/items/{redditID}", srvr.getItem).Methods(http.MethodGet)
	authed.HandleFuncE("/api/items/{redditID}", srvr.patchItem).Methods(http.MethodPatch)
	authed.HandleFuncE("/api/items/{redditID}", srvr.deleteItem).Methods(http.MethodDelete)

	authed.HandleFuncE("/api/stats", srvr.getStats).Methods(http.MethodGet)
	authed.HandleFuncE("/api/categories", srvr.getCategories).Methods(http.MethodGet)

	// Key management is session-only: a stolen key shouldn't mint more keys.
	sessioned := serverutil.ErrRouter{Router: r.NewRoute().Subrouter()}
	sessioned.Use(srvr.requireSession)
	sessioned.HandleFuncE("/api/keys", srvr.postKey).Methods(http.MethodPost)
	sessioned.HandleFuncE("/api/keys", srvr.getKeys).Methods(http.MethodGet)
	sessioned.HandleFuncE("/api/keys/{keyID}", srvr.deleteKey).Methods(http.MethodDelete)

	return &srvr
}
