package stash

import (
	"time"
)

type ItemKind string

const (
	KindPost    ItemKind = "post"
	KindComment ItemKind = "comment"
)

// SavedItem is a post or comment mirrored from the user's saved listing.
//
// (account_id, reddit_id) is unique: a re-sync updates or skips, it never
// duplicates.
type SavedItem struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`

	RedditID       string   `db:"reddit_id"`
	RedditFullname string   `db:"reddit_fullname"`
	Kind           ItemKind `db:"kind"`

	Subreddit  string    `db:"subreddit"`
	Author     string    `db:"author"`
	Permalink  string    `db:"permalink"`
	Score      int       `db:"score"`
	CreatedUTC time.Time `db:"created_utc"`

	// Post-only
	Title       *string `db:"title"`
	URL         *string `db:"url"`
	Selftext    *string `db:"selftext"`
	IsSelf      *bool   `db:"is_self"`
	NumComments *int    `db:"num_comments"`

	// Comment-only
	Body      *string `db:"body"`
	PostTitle *string `db:"post_title"`

	// Computed once at creation from the subreddit
	Category string `db:"category"`

	SyncedAt time.Time `db:"synced_at"`

	// Local-only state, untouched by syncs
	Reviewed bool    `db:"reviewed"`
	Archived bool    `db:"archived"`
	Notes    *string `db:"notes"`

	CreatedAt time.Time `db:"created_at"`
}

type (
	// ItemSyncArgs are the mutable synced fields a full sync refreshes.
	ItemSyncArgs struct {
		Score       int
		NumComments *int // Only written when the remote value is present
	}

	// ItemStateArgs holds the optional local-state fields for an update.
	ItemStateArgs struct {
		Reviewed *bool
		Archived *bool
		Notes    *string
	}

	// ItemFilter narrows a listing query. Zero values mean "no filter".
	ItemFilter struct {
		Category  string
		Kind      ItemKind
		Subreddit string
		// "reviewed" or "unreviewed"
		Status string
		// Substring match over title, body, selftext and subreddit
		Search string

		Limit  int
		Offset int
	}

	Stats struct {
		Total      int
		Reviewed   int
		ByKind     map[ItemKind]int
		Categories int
	}
)
