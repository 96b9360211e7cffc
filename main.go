// Stash mirrors a Reddit account's saved posts and comments into a local
// SQLite database and serves them over an HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/stash/internal/api"
	"github.com/jdholdren/stash/internal/migrations"
	"github.com/jdholdren/stash/internal/reddit"
	"github.com/jdholdren/stash/internal/sqlite"
	"github.com/jdholdren/stash/internal/stash"
	"github.com/jdholdren/stash/internal/sync"
	"github.com/jdholdren/stash/logger"
)

type config struct {
	Port     int    `env:"PORT, default=4444"`
	Database string `env:"DATABASE, required"`

	RedditClientID     string `env:"REDDIT_CLIENT_ID, required"`
	RedditClientSecret string `env:"REDDIT_CLIENT_SECRET, required"`
	RedditRedirectURL  string `env:"REDDIT_REDIRECT_URL, required"`

	// Reddit requires a descriptive user agent on API calls.
	UserAgent string `env:"REDDIT_USER_AGENT, default=stash/1.0"`

	CookieHashKey  string `env:"COOKIE_HASH_KEY, required"`
	CookieBlockKey string `env:"COOKIE_BLOCK_KEY, required"`
	HttpsCookies   bool   `env:"HTTPS_COOKIES, default=false"`
	CorsHeader     string `env:"CORS_HEADER, default=http://localhost:3000"`
	RedirectURL    string `env:"REDIRECT_URL, default=/"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Determine which logger format to use
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if cfg.LoggerFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	l := slog.New(logger.NewContextHandler(handler))
	slog.SetDefault(l)

	// Start the application
	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	slog.Info("running", "port", cfg.Port, "database", cfg.Database)

	// Connect to the db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	repo := sqlite.New(dbx)
	oauth := reddit.NewOAuth(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditRedirectURL, repo)
	newClient := func(acct stash.Account) *reddit.Client {
		return reddit.NewClient(acct.AccessToken, cfg.UserAgent)
	}
	syncer := sync.New(repo, oauth, newClient)

	s := api.NewServer(api.ServerConfig{
		Port:           cfg.Port,
		CookieHashKey:  []byte(cfg.CookieHashKey),
		CookieBlockKey: []byte(cfg.CookieBlockKey),
		HttpsCookies:   cfg.HttpsCookies,
		CorsHeader:     cfg.CorsHeader,
		RedirectURL:    cfg.RedirectURL,
	}, repo, syncer, oauth, newClient)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Start the server
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}

		return nil
	})
	g.Go(func() error {
		// Block from shutting down until the group is canceled
		<-gCtx.Done()

		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("error running: %s", err)
	}

	return nil
}
