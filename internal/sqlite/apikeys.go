package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jdholdren/stash/internal/stash"
)

const keyNamespace = "-key"

func (r Repo) InsertAPIKey(ctx context.Context, key stash.APIKey) (stash.APIKey, error) {
	const q = `INSERT INTO api_keys (id, account_id, name, key_hash)
	VALUES (:id, :account_id, :name, :key_hash);`

	key.ID = uuid.NewString() + keyNamespace
	if _, err := r.db.NamedExecContext(ctx, q, key); err != nil {
		return stash.APIKey{}, fmt.Errorf("error inserting api key: %s", err)
	}

	const fetch = `SELECT * FROM api_keys WHERE id = ?;`
	var inserted stash.APIKey
	if err := r.db.GetContext(ctx, &inserted, fetch, key.ID); err != nil {
		return stash.APIKey{}, fmt.Errorf("error fetching api key: %s", err)
	}

	return inserted, nil
}

func (r Repo) APIKeys(ctx context.Context, accountID string) ([]stash.APIKey, error) {
	const q = `SELECT * FROM api_keys WHERE account_id = ? ORDER BY created_at DESC;`

	keys := []stash.APIKey{}
	if err := r.db.SelectContext(ctx, &keys, q, accountID); err != nil {
		return nil, fmt.Errorf("error fetching api keys: %s", err)
	}

	return keys, nil
}

func (r Repo) ActiveAPIKeyByHash(ctx context.Context, hash string) (stash.APIKey, error) {
	const q = `SELECT * FROM api_keys WHERE key_hash = ? AND is_active = 1;`

	var key stash.APIKey
	err := r.db.GetContext(ctx, &key, q, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return stash.APIKey{}, stash.ErrNotFound
	}
	if err != nil {
		return stash.APIKey{}, fmt.Errorf("error fetching api key: %s", err)
	}

	return key, nil
}

func (r Repo) TouchAPIKey(ctx context.Context, id string) error {
	const q = `UPDATE api_keys SET last_used_at = ? WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("error touching api key: %s", err)
	}

	return nil
}

func (r Repo) RevokeAPIKey(ctx context.Context, accountID, id string) error {
	const q = `UPDATE api_keys SET is_active = 0 WHERE id = ? AND account_id = ?;`

	resp, err := r.db.ExecContext(ctx, q, id, accountID)
	if err != nil {
		return fmt.Errorf("error revoking api key: %s", err)
	}
	n, err := resp.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking api key update: %s", err)
	}
	if n == 0 {
		return stash.ErrNotFound
	}

	return nil
}
