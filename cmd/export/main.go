// Export renders an account's mirrored items as markdown files: an index
// plus one file per category.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/stash/internal/export"
	"github.com/jdholdren/stash/internal/sqlite"
)

type config struct {
	Database string `env:"DATABASE, required"`
	Username string `env:"USERNAME, required"`
	OutDir   string `env:"OUT_DIR, default=markdown"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	dbx, err := sqlx.Open("sqlite", cfg.Database)
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	repo := sqlite.New(dbx)

	acct, err := repo.AccountByUsername(ctx, cfg.Username)
	if err != nil {
		return fmt.Errorf("error fetching account %q: %s", cfg.Username, err)
	}

	items, err := repo.AllItems(ctx, acct.ID)
	if err != nil {
		return fmt.Errorf("error fetching items: %s", err)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %s", err)
	}

	files := export.Files(items)
	for _, f := range files {
		path := filepath.Join(cfg.OutDir, f.Name)
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("error writing %s: %s", path, err)
		}
		slog.Info("wrote file", "path", path)
	}

	slog.Info("export complete", "items", len(items), "files", len(files))

	return nil
}
