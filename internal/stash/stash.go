// Package stash holds the domain types for the saved-items mirror.
//
// The other packages implement pieces of its surfaces: sqlite for
// persistence, reddit for the remote API, sync for reconciliation.
package stash

import (
	"context"
	"errors"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// Repository is the full persistence surface the application is wired with.
type Repository interface {
	AccountRepo
	ItemRepo
	APIKeyRepo
}

type (
	AccountRepo interface {
		EnsureAccount(ctx context.Context, acct Account) (Account, error)
		Account(ctx context.Context, id string) (Account, error)
		AccountByRedditID(ctx context.Context, redditID string) (Account, error)
		AccountByUsername(ctx context.Context, username string) (Account, error)
		UpdateAccountTokens(ctx context.Context, id string, args TokenArgs) error
		// BeginSync sets the in-progress latch. It returns ErrConflict if the
		// latch was already set, without touching the record.
		BeginSync(ctx context.Context, id string) error
		// FinishSync stamps the last successful sync and clears the latch.
		FinishSync(ctx context.Context, id string) error
		// ClearSyncFlag drops the latch without recording a successful sync.
		ClearSyncFlag(ctx context.Context, id string) error
	}

	ItemRepo interface {
		Item(ctx context.Context, accountID, redditID string) (SavedItem, error)
		InsertItem(ctx context.Context, item SavedItem) (SavedItem, error)
		UpdateItemSync(ctx context.Context, accountID, redditID string, args ItemSyncArgs) error
		UpdateItemState(ctx context.Context, accountID, redditID string, args ItemStateArgs) (SavedItem, error)
		DeleteItem(ctx context.Context, accountID, redditID string) error
		ListItems(ctx context.Context, accountID string, filter ItemFilter) ([]SavedItem, int, error)
		AllItems(ctx context.Context, accountID string) ([]SavedItem, error)
		Stats(ctx context.Context, accountID string) (Stats, error)
	}

	APIKeyRepo interface {
		InsertAPIKey(ctx context.Context, key APIKey) (APIKey, error)
		APIKeys(ctx context.Context, accountID string) ([]APIKey, error)
		ActiveAPIKeyByHash(ctx context.Context, keyHash string) (APIKey, error)
		TouchAPIKey(ctx context.Context, id string) error
		RevokeAPIKey(ctx context.Context, accountID, id string) error
	}
)
