package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/jdholdren/stash/internal/stash"
)

const itemNamespace = "-itm"

func (r Repo) Item(ctx context.Context, accountID, redditID string) (stash.SavedItem, error) {
	const q = `SELECT * FROM saved_items WHERE account_id = ? AND reddit_id = ?;`

	var item stash.SavedItem
	err := r.db.GetContext(ctx, &item, q, accountID, redditID)
	if errors.Is(err, sql.ErrNoRows) {
		return stash.SavedItem{}, stash.ErrNotFound
	}
	if err != nil {
		return stash.SavedItem{}, fmt.Errorf("error fetching item: %s", err)
	}

	return item, nil
}

func (r Repo) InsertItem(ctx context.Context, item stash.SavedItem) (stash.SavedItem, error) {
	const q = `INSERT INTO saved_items (
		id, account_id, reddit_id, reddit_fullname, kind, subreddit, author,
		permalink, score, created_utc, title, url, selftext, is_self,
		num_comments, body, post_title, category, synced_at
	) VALUES (
		:id, :account_id, :reddit_id, :reddit_fullname, :kind, :subreddit, :author,
		:permalink, :score, :created_utc, :title, :url, :selftext, :is_self,
		:num_comments, :body, :post_title, :category, :synced_at
	);`

	item.ID = uuid.NewString() + itemNamespace
	_, err := r.db.NamedExecContext(ctx, q, item)
	if sqliteErr := (&sqlite.Error{}); errors.As(err, &sqliteErr) && sqliteErr.Code() == 2067 {
		return stash.SavedItem{}, fmt.Errorf("item already exists: %w", stash.ErrConflict)
	}
	if err != nil {
		return stash.SavedItem{}, fmt.Errorf("error inserting item: %s", err)
	}

	return r.Item(ctx, item.AccountID, item.RedditID)
}

func (r Repo) UpdateItemSync(ctx context.Context, accountID, redditID string, args stash.ItemSyncArgs) error {
	q := sq.Update("saved_items").
		Set("score", args.Score).
		Set("synced_at", time.Now().UTC())
	if args.NumComments != nil {
		q = q.Set("num_comments", *args.NumComments)
	}
	q = q.Where(sq.Eq{"account_id": accountID, "reddit_id": redditID})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, qArgs...); err != nil {
		return fmt.Errorf("error updating item: %s", err)
	}

	return nil
}

func (r Repo) UpdateItemState(ctx context.Context, accountID, redditID string, args stash.ItemStateArgs) (stash.SavedItem, error) {
	q := sq.Update("saved_items")
	if args.Reviewed != nil {
		q = q.Set("reviewed", *args.Reviewed)
	}
	if args.Archived != nil {
		q = q.Set("archived", *args.Archived)
	}
	if args.Notes != nil {
		q = q.Set("notes", *args.Notes)
	}
	q = q.Where(sq.Eq{"account_id": accountID, "reddit_id": redditID})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return stash.SavedItem{}, fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, qArgs...); err != nil {
		return stash.SavedItem{}, fmt.Errorf("error updating item state: %s", err)
	}

	return r.Item(ctx, accountID, redditID)
}

func (r Repo) DeleteItem(ctx context.Context, accountID, redditID string) error {
	const q = `DELETE FROM saved_items WHERE account_id = ? AND reddit_id = ?;`

	if _, err := r.db.ExecContext(ctx, q, accountID, redditID); err != nil {
		return fmt.Errorf("error deleting item: %s", err)
	}

	return nil
}

// ListItems applies the filter and returns a page plus the total count of
// matches.
func (r Repo) ListItems(ctx context.Context, accountID string, filter stash.ItemFilter) ([]stash.SavedItem, int, error) {
	where := sq.And{sq.Eq{"account_id": accountID}}
	if filter.Category != "" {
		where = append(where, sq.Eq{"category": filter.Category})
	}
	if filter.Kind != "" {
		where = append(where, sq.Eq{"kind": filter.Kind})
	}
	if filter.Subreddit != "" {
		where = append(where, sq.Eq{"subreddit": filter.Subreddit})
	}
	switch filter.Status {
	case "reviewed":
		where = append(where, sq.Eq{"reviewed": true})
	case "unreviewed":
		where = append(where, sq.Eq{"reviewed": false})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, sq.Or{
			sq.Like{"title": pattern},
			sq.Like{"body": pattern},
			sq.Like{"selftext": pattern},
			sq.Like{"subreddit": pattern},
		})
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From("saved_items").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error constructing sql: %s", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("error counting items: %s", err)
	}

	q := sq.Select("*").From("saved_items").Where(where).OrderBy("created_utc DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error constructing sql: %s", err)
	}

	items := []stash.SavedItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error fetching items: %s", err)
	}

	return items, total, nil
}

// AllItems returns everything for the account, grouped the way the export
// wants to walk it.
func (r Repo) AllItems(ctx context.Context, accountID string) ([]stash.SavedItem, error) {
	const q = `SELECT * FROM saved_items
	WHERE account_id = ?
	ORDER BY category, subreddit, created_utc DESC;`

	items := []stash.SavedItem{}
	if err := r.db.SelectContext(ctx, &items, q, accountID); err != nil {
		return nil, fmt.Errorf("error fetching items: %s", err)
	}

	return items, nil
}

func (r Repo) Stats(ctx context.Context, accountID string) (stash.Stats, error) {
	stats := stash.Stats{ByKind: map[stash.ItemKind]int{}}

	const totals = `SELECT
		COUNT(*) AS total,
		COALESCE(SUM(reviewed), 0) AS reviewed,
		COUNT(DISTINCT category) AS categories
	FROM saved_items WHERE account_id = ?;`

	var row struct {
		Total      int `db:"total"`
		Reviewed   int `db:"reviewed"`
		Categories int `db:"categories"`
	}
	if err := r.db.GetContext(ctx, &row, totals, accountID); err != nil {
		return stash.Stats{}, fmt.Errorf("error fetching stats: %s", err)
	}
	stats.Total = row.Total
	stats.Reviewed = row.Reviewed
	stats.Categories = row.Categories

	const byKind = `SELECT kind, COUNT(*) AS count
	FROM saved_items WHERE account_id = ? GROUP BY kind;`

	var kinds []struct {
		Kind  stash.ItemKind `db:"kind"`
		Count int            `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &kinds, byKind, accountID); err != nil {
		return stash.Stats{}, fmt.Errorf("error fetching kind counts: %s", err)
	}
	for _, k := range kinds {
		stats.ByKind[k.Kind] = k.Count
	}

	return stats, nil
}
