// Package sync mirrors an account's saved listing from Reddit into the
// local store.
//
// The service is the single entry point and the boundary where failures get
// translated into caller-facing errors: whatever happens inside, the
// account's in-progress latch comes back down.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdholdren/stash/internal/categories"
	"github.com/jdholdren/stash/internal/reddit"
	"github.com/jdholdren/stash/internal/stash"
)

// Error strings here are part of the API contract and surfaced verbatim.
var (
	ErrUserNotFound       = errors.New("User not found")
	ErrSyncInProgress     = errors.New("Sync already in progress")
	ErrItemNotFound       = errors.New("Item not found")
	ErrTokenRefreshFailed = errors.New("Token refresh failed")
)

const (
	// Largest page Reddit will serve.
	pageSize = 100

	// Courtesy pause between listing pages.
	pagePause = 500 * time.Millisecond

	// Stored copies keep more text than the export snippets do.
	storedTextLimit = 2000
)

// TokenRefresher renews an account's access token, persisting as it goes.
type TokenRefresher interface {
	Refresh(ctx context.Context, acct stash.Account) (stash.Account, error)
}

// Result is the outcome of a successful pass.
type Result struct {
	New     int
	Updated int
}

type Service struct {
	repo   stash.Repository
	tokens TokenRefresher

	// Builds a client bound to the account's current access token.
	newClient func(acct stash.Account) *reddit.Client

	sleep func(context.Context, time.Duration)
	now   func() time.Time
}

func New(repo stash.Repository, tokens TokenRefresher, newClient func(stash.Account) *reddit.Client) Service {
	return Service{
		repo:      repo,
		tokens:    tokens,
		newClient: newClient,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Sync runs one pass over the account's saved listing.
//
// An incremental pass only adds unseen items; a full pass also refreshes
// the synced fields of items already stored. At most one pass runs per
// account at a time, guarded by the persisted latch.
func (s Service) Sync(ctx context.Context, accountID string, full bool) (res Result, err error) {
	acct, err := s.repo.Account(ctx, accountID)
	if errors.Is(err, stash.ErrNotFound) {
		return Result{}, ErrUserNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("error fetching account: %s", err)
	}

	if acct.SyncInProgress {
		return Result{}, ErrSyncInProgress
	}

	// Take the latch with a conditional write so two racing callers can't
	// both get past the read above.
	if err := s.repo.BeginSync(ctx, acct.ID); err != nil {
		if errors.Is(err, stash.ErrConflict) {
			return Result{}, ErrSyncInProgress
		}
		return Result{}, fmt.Errorf("error setting sync flag: %s", err)
	}

	// From here every exit must bring the latch back down. The happy path
	// clears it itself when it stamps the last-sync time.
	finished := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync failure: %v", r)
		}
		if finished && err == nil {
			return
		}
		if clearErr := s.repo.ClearSyncFlag(context.WithoutCancel(ctx), acct.ID); clearErr != nil {
			slog.ErrorContext(ctx, "error clearing sync flag", "account_id", acct.ID, "error", clearErr)
		}
	}()

	if acct.TokenExpired() {
		refreshed, refreshErr := s.tokens.Refresh(ctx, acct)
		if refreshErr != nil {
			slog.ErrorContext(ctx, "token refresh failed", "account_id", acct.ID, "error", refreshErr)
			return Result{}, ErrTokenRefreshFailed
		}
		acct = refreshed
	}

	res, err = s.reconcile(ctx, acct, full)
	if err != nil {
		slog.ErrorContext(ctx, "sync failed", "account_id", acct.ID, "error", err,
			"new_items", res.New, "updated_items", res.Updated)
		return res, err
	}

	finished = true
	return res, nil
}

// reconcile walks the saved listing page by page and merges into the store.
//
// Counts reflect exactly the items processed before any failure; inserts
// commit per item, so partial progress survives a failed pass.
func (s Service) reconcile(ctx context.Context, acct stash.Account, full bool) (Result, error) {
	cli := s.newClient(acct)

	var res Result
	after := ""
	for {
		listing, err := cli.Saved(ctx, acct.Username, after, pageSize)
		if err != nil {
			return res, err
		}
		if len(listing.Data.Children) == 0 {
			break
		}

		for _, thing := range listing.Data.Children {
			existing, err := s.repo.Item(ctx, acct.ID, thing.Data.ID)
			if errors.Is(err, stash.ErrNotFound) {
				if _, err := s.repo.InsertItem(ctx, s.newItem(acct.ID, thing)); err != nil {
					return res, fmt.Errorf("error inserting item %s: %s", thing.Data.ID, err)
				}
				res.New++
				continue
			}
			if err != nil {
				return res, fmt.Errorf("error looking up item %s: %s", thing.Data.ID, err)
			}

			// Incremental passes only add. Known items are skipped one by
			// one; the pass still walks every page to the end.
			if !full {
				continue
			}

			args := stash.ItemSyncArgs{Score: thing.Data.Score.Int()}
			if existing.Kind == stash.KindPost {
				args.NumComments = thing.Data.NumComments.IntPtr()
			}
			if err := s.repo.UpdateItemSync(ctx, acct.ID, thing.Data.ID, args); err != nil {
				return res, fmt.Errorf("error updating item %s: %s", thing.Data.ID, err)
			}
			res.Updated++
		}

		after = listing.Data.After
		if after == "" {
			break
		}
		s.sleep(ctx, pagePause)
	}

	if err := s.repo.FinishSync(ctx, acct.ID); err != nil {
		return res, fmt.Errorf("error finishing sync: %s", err)
	}

	slog.InfoContext(ctx, "sync complete", "account_id", acct.ID,
		"new_items", res.New, "updated_items", res.Updated)

	return res, nil
}

// Unsave drops the item from Reddit and then from the local store, in that
// order: if the remote call fails the local copy stays put.
func (s Service) Unsave(ctx context.Context, accountID, redditID string) error {
	acct, err := s.repo.Account(ctx, accountID)
	if errors.Is(err, stash.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("error fetching account: %s", err)
	}

	item, err := s.repo.Item(ctx, accountID, redditID)
	if errors.Is(err, stash.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("error fetching item: %s", err)
	}

	if acct.TokenExpired() {
		refreshed, refreshErr := s.tokens.Refresh(ctx, acct)
		if refreshErr != nil {
			slog.ErrorContext(ctx, "token refresh failed", "account_id", acct.ID, "error", refreshErr)
			return ErrTokenRefreshFailed
		}
		acct = refreshed
	}

	if err := s.newClient(acct).Unsave(ctx, item.RedditFullname); err != nil {
		return err
	}

	if err := s.repo.DeleteItem(ctx, accountID, redditID); err != nil {
		return fmt.Errorf("error deleting item: %s", err)
	}

	return nil
}

// newItem maps one listing entry into a local record.
func (s Service) newItem(accountID string, thing reddit.Thing) stash.SavedItem {
	d := thing.Data

	item := stash.SavedItem{
		AccountID:      accountID,
		RedditID:       d.ID,
		RedditFullname: d.Name,
		Kind:           stash.KindComment,
		Subreddit:      d.Subreddit,
		Author:         d.Author,
		Permalink:      "https://reddit.com" + d.Permalink,
		Score:          d.Score.Int(),
		CreatedUTC:     d.Created.Time(),
		Category:       categories.Resolve(d.Subreddit),
		SyncedAt:       s.now().UTC(),
	}
	if item.Author == "" {
		item.Author = "[deleted]"
	}

	if thing.Kind == reddit.KindPost {
		item.Kind = stash.KindPost
		item.Title = strPtr(d.Title)
		item.URL = strPtr(d.URL)
		item.Selftext = strPtr(truncate(d.Selftext, storedTextLimit))
		item.IsSelf = d.IsSelf
		item.NumComments = d.NumComments.IntPtr()
	} else {
		item.Body = strPtr(truncate(d.Body, storedTextLimit))
		item.PostTitle = strPtr(d.LinkTitle)
	}

	return item
}

// truncate bounds s to limit runes. No ellipsis: these are stored copies,
// not display snippets.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
