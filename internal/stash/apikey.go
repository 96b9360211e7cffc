package stash

import (
	"time"
)

// APIKey grants scripted access to one account's data.
//
// Only the sha256 of the secret is stored; the raw key is shown once at
// creation and never again.
type APIKey struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`

	Name    string `db:"name"`
	KeyHash string `db:"key_hash"`

	IsActive   bool       `db:"is_active"`
	LastUsedAt *time.Time `db:"last_used_at"`
	CreatedAt  time.Time  `db:"created_at"`
}
