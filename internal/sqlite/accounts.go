package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jdholdren/stash/internal/stash"
)

const accountNamespace = "-acct"

// EnsureAccount upserts by reddit_id: a returning user gets their tokens
// and username refreshed, a new one gets a row.
func (r Repo) EnsureAccount(ctx context.Context, acct stash.Account) (stash.Account, error) {
	const q = `INSERT INTO accounts (id, reddit_id, username, access_token, refresh_token, token_expires_at)
	VALUES (:id, :reddit_id, :username, :access_token, :refresh_token, :token_expires_at)
	ON CONFLICT (reddit_id) DO UPDATE SET
		username = excluded.username,
		access_token = excluded.access_token,
		refresh_token = CASE WHEN excluded.refresh_token != '' THEN excluded.refresh_token ELSE accounts.refresh_token END,
		token_expires_at = excluded.token_expires_at,
		updated_at = CURRENT_TIMESTAMP;`

	acct.ID = uuid.NewString() + accountNamespace
	if _, err := r.db.NamedExecContext(ctx, q, acct); err != nil {
		return stash.Account{}, fmt.Errorf("error upserting account: %s", err)
	}

	return r.AccountByRedditID(ctx, acct.RedditID)
}

func (r Repo) Account(ctx context.Context, id string) (stash.Account, error) {
	const q = `SELECT * FROM accounts WHERE id = ?;`

	var acct stash.Account
	err := r.db.GetContext(ctx, &acct, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return stash.Account{}, stash.ErrNotFound
	}
	if err != nil {
		return stash.Account{}, fmt.Errorf("error fetching account: %s", err)
	}

	return acct, nil
}

func (r Repo) AccountByRedditID(ctx context.Context, redditID string) (stash.Account, error) {
	const q = `SELECT * FROM accounts WHERE reddit_id = ?;`

	var acct stash.Account
	err := r.db.GetContext(ctx, &acct, q, redditID)
	if errors.Is(err, sql.ErrNoRows) {
		return stash.Account{}, stash.ErrNotFound
	}
	if err != nil {
		return stash.Account{}, fmt.Errorf("error fetching account: %s", err)
	}

	return acct, nil
}

func (r Repo) AccountByUsername(ctx context.Context, username string) (stash.Account, error) {
	const q = `SELECT * FROM accounts WHERE username = ?;`

	var acct stash.Account
	err := r.db.GetContext(ctx, &acct, q, username)
	if errors.Is(err, sql.ErrNoRows) {
		return stash.Account{}, stash.ErrNotFound
	}
	if err != nil {
		return stash.Account{}, fmt.Errorf("error fetching account: %s", err)
	}

	return acct, nil
}

func (r Repo) UpdateAccountTokens(ctx context.Context, id string, args stash.TokenArgs) error {
	q := sq.Update("accounts").
		Set("access_token", args.AccessToken).
		Set("token_expires_at", args.ExpiresAt).
		Set("updated_at", time.Now().UTC())
	if args.RefreshToken != "" {
		q = q.Set("refresh_token", args.RefreshToken)
	}
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, qArgs...); err != nil {
		return fmt.Errorf("error updating account tokens: %s", err)
	}

	return nil
}

// BeginSync takes the latch with a conditional write: the guard holds even
// when two requests race past reading the flag.
func (r Repo) BeginSync(ctx context.Context, id string) error {
	const q = `UPDATE accounts
	SET sync_in_progress = 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND sync_in_progress = 0;`

	resp, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("error setting sync flag: %s", err)
	}
	n, err := resp.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking sync flag update: %s", err)
	}
	if n == 0 {
		return fmt.Errorf("sync latch already held: %w", stash.ErrConflict)
	}

	return nil
}

func (r Repo) FinishSync(ctx context.Context, id string) error {
	const q = `UPDATE accounts
	SET sync_in_progress = 0, last_sync_at = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("error finishing sync: %s", err)
	}

	return nil
}

func (r Repo) ClearSyncFlag(ctx context.Context, id string) error {
	const q = `UPDATE accounts
	SET sync_in_progress = 0, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error clearing sync flag: %s", err)
	}

	return nil
}
