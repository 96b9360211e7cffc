package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/stash/internal/reddit"
	"github.com/jdholdren/stash/internal/stash"
)

// In-memory repository. Anything the sync service doesn't touch falls
// through to the embedded nil interface and panics loudly.
type fakeRepo struct {
	stash.Repository

	accounts map[string]*stash.Account
	items    map[string]stash.SavedItem

	beginCalls  int
	finishCalls int
	clearCalls  int
}

func newFakeRepo(accts ...stash.Account) *fakeRepo {
	r := &fakeRepo{
		accounts: map[string]*stash.Account{},
		items:    map[string]stash.SavedItem{},
	}
	for i := range accts {
		r.accounts[accts[i].ID] = &accts[i]
	}

	return r
}

func itemKey(accountID, redditID string) string {
	return accountID + "/" + redditID
}

func (r *fakeRepo) Account(_ context.Context, id string) (stash.Account, error) {
	acct, ok := r.accounts[id]
	if !ok {
		return stash.Account{}, stash.ErrNotFound
	}

	return *acct, nil
}

func (r *fakeRepo) BeginSync(_ context.Context, id string) error {
	r.beginCalls++
	acct, ok := r.accounts[id]
	if !ok || acct.SyncInProgress {
		return stash.ErrConflict
	}
	acct.SyncInProgress = true

	return nil
}

func (r *fakeRepo) FinishSync(_ context.Context, id string) error {
	r.finishCalls++
	acct := r.accounts[id]
	now := time.Now().UTC()
	acct.LastSyncAt = &now
	acct.SyncInProgress = false

	return nil
}

func (r *fakeRepo) ClearSyncFlag(_ context.Context, id string) error {
	r.clearCalls++
	r.accounts[id].SyncInProgress = false

	return nil
}

func (r *fakeRepo) Item(_ context.Context, accountID, redditID string) (stash.SavedItem, error) {
	item, ok := r.items[itemKey(accountID, redditID)]
	if !ok {
		return stash.SavedItem{}, stash.ErrNotFound
	}

	return item, nil
}

func (r *fakeRepo) InsertItem(_ context.Context, item stash.SavedItem) (stash.SavedItem, error) {
	key := itemKey(item.AccountID, item.RedditID)
	if _, ok := r.items[key]; ok {
		return stash.SavedItem{}, stash.ErrConflict
	}
	item.ID = fmt.Sprintf("itm-%d", len(r.items)+1)
	r.items[key] = item

	return item, nil
}

func (r *fakeRepo) UpdateItemSync(_ context.Context, accountID, redditID string, args stash.ItemSyncArgs) error {
	key := itemKey(accountID, redditID)
	item, ok := r.items[key]
	if !ok {
		return stash.ErrNotFound
	}
	item.Score = args.Score
	if args.NumComments != nil {
		item.NumComments = args.NumComments
	}
	item.SyncedAt = time.Now().UTC()
	r.items[key] = item

	return nil
}

func (r *fakeRepo) DeleteItem(_ context.Context, accountID, redditID string) error {
	delete(r.items, itemKey(accountID, redditID))
	return nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, acct stash.Account) (stash.Account, error) {
	f.calls++
	if f.err != nil {
		return stash.Account{}, f.err
	}

	acct.AccessToken = "refreshed"
	expiry := time.Now().Add(time.Hour).UTC()
	acct.TokenExpiresAt = &expiry

	return acct, nil
}

func freshAccount() stash.Account {
	expiry := time.Now().Add(time.Hour).UTC()
	return stash.Account{
		ID:             "acct-1",
		RedditID:       "rdt1",
		Username:       "someone",
		AccessToken:    "tok",
		RefreshToken:   "refresh",
		TokenExpiresAt: &expiry,
	}
}

// Builds one listing page. Things are keyed by id; everything else gets
// sensible defaults.
func listingPage(after string, things ...map[string]any) string {
	children := make([]map[string]any, 0, len(things))
	for _, t := range things {
		data := map[string]any{
			"subreddit":   "selfhosted",
			"author":      "someone",
			"permalink":   fmt.Sprintf("/r/selfhosted/comments/%v/", t["id"]),
			"score":       1,
			"created_utc": 1700000000,
			"title":       "a post",
		}
		for k, v := range t {
			data[k] = v
		}
		kind := "t3"
		if k, ok := data["kind"]; ok {
			kind = k.(string)
			delete(data, "kind")
		}
		if data["name"] == nil {
			data["name"] = fmt.Sprintf("%s_%v", kind, data["id"])
		}
		children = append(children, map[string]any{"kind": kind, "data": data})
	}

	page := map[string]any{
		"kind": "Listing",
		"data": map[string]any{"after": after, "children": children},
	}
	byts, _ := json.Marshal(page)

	return string(byts)
}

type testHarness struct {
	svc      Service
	repo     *fakeRepo
	tokens   *fakeRefresher
	requests *[]string
	slept    *[]time.Duration
}

func newHarness(t *testing.T, repo *fakeRepo, handler http.HandlerFunc) testHarness {
	t.Helper()

	requests := &[]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests = append(*requests, r.URL.Path+"?"+r.URL.RawQuery)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	tokens := &fakeRefresher{}
	svc := New(repo, tokens, func(acct stash.Account) *reddit.Client {
		return reddit.NewClient(acct.AccessToken, "stash-test/1.0", reddit.WithBaseURL(srv.URL))
	})

	slept := &[]time.Duration{}
	svc.sleep = func(_ context.Context, d time.Duration) {
		*slept = append(*slept, d)
	}

	return testHarness{svc: svc, repo: repo, tokens: tokens, requests: requests, slept: slept}
}

func TestSync_UserNotFound(t *testing.T) {
	h := newHarness(t, newFakeRepo(), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no remote call expected")
	})

	_, err := h.svc.Sync(context.Background(), "nope", false)
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, h.repo.beginCalls)
}

func TestSync_AlreadyInProgress(t *testing.T) {
	acct := freshAccount()
	acct.SyncInProgress = true
	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no remote call expected")
	})

	_, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.ErrorIs(t, err, ErrSyncInProgress)
	assert.Empty(t, *h.requests)
	// Still latched: the running pass owns it.
	assert.True(t, h.repo.accounts[acct.ID].SyncInProgress)
}

func TestSync_RefreshFailureClearsLatch(t *testing.T) {
	acct := freshAccount()
	acct.TokenExpiresAt = nil // no recorded expiry always refreshes
	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no remote call expected")
	})
	h.tokens.err = fmt.Errorf("invalid_grant")

	_, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.ErrorIs(t, err, ErrTokenRefreshFailed)
	assert.False(t, h.repo.accounts[acct.ID].SyncInProgress)
	assert.Nil(t, h.repo.accounts[acct.ID].LastSyncAt)
}

func TestSync_TwoPages(t *testing.T) {
	// 100 items then 37, with the second page's cursor absent.
	pageOne := make([]map[string]any, 100)
	for i := range pageOne {
		pageOne[i] = map[string]any{"id": fmt.Sprintf("a%03d", i)}
	}
	pageTwo := make([]map[string]any, 37)
	for i := range pageTwo {
		pageTwo[i] = map[string]any{"id": fmt.Sprintf("b%03d", i)}
	}

	acct := freshAccount()
	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "" {
			w.Write([]byte(listingPage("t3_a099", pageOne...)))
			return
		}
		w.Write([]byte(listingPage("", pageTwo...)))
	})

	res, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 137, res.New)
	assert.Zero(t, res.Updated)
	assert.Len(t, h.repo.items, 137)
	assert.Len(t, *h.requests, 2)

	// Exactly one inter-page pause of half a second.
	require.Len(t, *h.slept, 1)
	assert.Equal(t, 500*time.Millisecond, (*h.slept)[0])

	assert.False(t, h.repo.accounts[acct.ID].SyncInProgress)
	assert.NotNil(t, h.repo.accounts[acct.ID].LastSyncAt)
}

func TestSync_IncrementalIsIdempotent(t *testing.T) {
	acct := freshAccount()
	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage("", map[string]any{"id": "abc"}, map[string]any{"id": "def"})))
	})

	res, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.NoError(t, err)
	assert.Equal(t, Result{New: 2}, res)

	// Same remote state again: nothing new, nothing updated, no dupes.
	res, err = h.svc.Sync(context.Background(), acct.ID, false)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Len(t, h.repo.items, 2)
}

func TestSync_FullPassUpdatesSyncedFields(t *testing.T) {
	acct := freshAccount()
	repo := newFakeRepo(acct)

	score := 10
	h := newHarness(t, repo, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage("", map[string]any{"id": "abc", "score": score, "num_comments": score * 2})))
	})

	_, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.NoError(t, err)
	before := repo.items[itemKey(acct.ID, "abc")]

	// The remote score moved; a full pass picks it up.
	score = 99
	res, err := h.svc.Sync(context.Background(), acct.ID, true)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 1}, res)

	after := repo.items[itemKey(acct.ID, "abc")]
	assert.Equal(t, 99, after.Score)
	require.NotNil(t, after.NumComments)
	assert.Equal(t, 198, *after.NumComments)

	// Identity-ish fields stay put.
	assert.Equal(t, before.Category, after.Category)
	assert.Equal(t, before.CreatedUTC, after.CreatedUTC)
	assert.Equal(t, before.Permalink, after.Permalink)
}

func TestSync_APIErrorClearsLatch(t *testing.T) {
	acct := freshAccount()
	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.Error(t, err)
	assert.EqualError(t, err, "API error: 500")
	assert.False(t, h.repo.accounts[acct.ID].SyncInProgress)
}

func TestSync_RefreshesNearlyExpiredTokenBeforePaging(t *testing.T) {
	acct := freshAccount()
	// Three minutes out is within the five minute buffer.
	expiry := time.Now().Add(3 * time.Minute).UTC()
	acct.TokenExpiresAt = &expiry

	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		// The refreshed token is the one that pages.
		assert.Equal(t, "Bearer refreshed", r.Header.Get("Authorization"))
		w.Write([]byte(listingPage("")))
	})

	_, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, h.tokens.calls)
}

func TestSync_ValidTokenSkipsRefresh(t *testing.T) {
	acct := freshAccount()
	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage("")))
	})

	_, err := h.svc.Sync(context.Background(), acct.ID, false)
	require.NoError(t, err)
	assert.Zero(t, h.tokens.calls)
}

func TestUnsave(t *testing.T) {
	acct := freshAccount()
	repo := newFakeRepo(acct)
	repo.items[itemKey(acct.ID, "abc")] = stash.SavedItem{
		AccountID:      acct.ID,
		RedditID:       "abc",
		RedditFullname: "t3_abc",
	}

	var unsaved string
	h := newHarness(t, repo, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/unsave", r.URL.Path)
		r.ParseForm()
		unsaved = r.PostForm.Get("id")
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, h.svc.Unsave(context.Background(), acct.ID, "abc"))
	assert.Equal(t, "t3_abc", unsaved)
	assert.Empty(t, repo.items)
}

func TestUnsave_RemoteFailureKeepsLocalCopy(t *testing.T) {
	acct := freshAccount()
	repo := newFakeRepo(acct)
	repo.items[itemKey(acct.ID, "abc")] = stash.SavedItem{
		AccountID:      acct.ID,
		RedditID:       "abc",
		RedditFullname: "t3_abc",
	}

	h := newHarness(t, repo, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := h.svc.Unsave(context.Background(), acct.ID, "abc")
	require.Error(t, err)
	assert.Contains(t, repo.items, itemKey(acct.ID, "abc"))
}

func TestUnsave_NotFound(t *testing.T) {
	acct := freshAccount()
	h := newHarness(t, newFakeRepo(acct), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no remote call expected")
	})

	err := h.svc.Unsave(context.Background(), "nope", "abc")
	require.ErrorIs(t, err, ErrUserNotFound)

	err = h.svc.Unsave(context.Background(), acct.ID, "missing")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestNewItem_Post(t *testing.T) {
	svc := Service{now: time.Now}

	longText := strings.Repeat("x", 5000)
	isSelf := true
	item := svc.newItem("acct-1", reddit.Thing{
		Kind: reddit.KindPost,
		Data: thingData(t, map[string]any{
			"id":          "abc",
			"name":        "t3_abc",
			"subreddit":   "homelab",
			"author":      "",
			"permalink":   "/r/homelab/comments/abc/",
			"score":       "17.9",
			"created_utc": 1700000000,
			"title":       "my rack",
			"url":         "https://example.com/rack.jpg",
			"selftext":    longText,
			"is_self":     isSelf,
		}),
	})

	assert.Equal(t, stash.KindPost, item.Kind)
	assert.Equal(t, "[deleted]", item.Author) // absent author gets the sentinel
	assert.Equal(t, "https://reddit.com/r/homelab/comments/abc/", item.Permalink)
	assert.Equal(t, 17, item.Score) // fractional score truncates
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), item.CreatedUTC)
	assert.Equal(t, "Self-Hosting & Homelab", item.Category)
	require.NotNil(t, item.Selftext)
	assert.Len(t, []rune(*item.Selftext), storedTextLimit)
	require.NotNil(t, item.IsSelf)
	assert.True(t, *item.IsSelf)
	assert.Nil(t, item.Body)
}

func TestNewItem_Comment(t *testing.T) {
	svc := Service{now: time.Now}

	item := svc.newItem("acct-1", reddit.Thing{
		Kind: reddit.KindComment,
		Data: thingData(t, map[string]any{
			"id":          "def",
			"name":        "t1_def",
			"subreddit":   "notmapped",
			"author":      "someone",
			"permalink":   "/r/notmapped/comments/xyz/_/def/",
			"score":       3,
			"created_utc": 1700000000,
			"body":        "good point",
			"link_title":  "the parent post",
		}),
	})

	assert.Equal(t, stash.KindComment, item.Kind)
	assert.Equal(t, "Uncategorized", item.Category)
	require.NotNil(t, item.Body)
	assert.Equal(t, "good point", *item.Body)
	require.NotNil(t, item.PostTitle)
	assert.Equal(t, "the parent post", *item.PostTitle)
	assert.Nil(t, item.Title)
	assert.Nil(t, item.NumComments)
}

func thingData(t *testing.T, fields map[string]any) reddit.ThingData {
	t.Helper()

	byts, err := json.Marshal(fields)
	require.NoError(t, err)

	var data reddit.ThingData
	require.NoError(t, json.Unmarshal(byts, &data))

	return data
}
