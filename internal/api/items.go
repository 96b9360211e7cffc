package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	stasherrs "github.com/jdholdren/stash/internal/errors"
	"github.com/jdholdren/stash/internal/serverutil"
	"github.com/jdholdren/stash/internal/stash"
)

// ItemResp is the wire shape of one mirrored item.
type ItemResp struct {
	RedditID  string `json:"reddit_id"`
	Fullname  string `json:"reddit_fullname"`
	Kind      string `json:"kind"`
	Subreddit string `json:"subreddit"`
	Author    string `json:"author"`
	Permalink string `json:"permalink"`
	Score     int    `json:"score"`
	Category  string `json:"category"`

	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	Selftext    *string `json:"selftext,omitempty"`
	IsSelf      *bool   `json:"is_self,omitempty"`
	NumComments *int    `json:"num_comments,omitempty"`
	Body        *string `json:"body,omitempty"`
	PostTitle   *string `json:"post_title,omitempty"`

	Reviewed bool    `json:"reviewed"`
	Archived bool    `json:"archived"`
	Notes    *string `json:"notes,omitempty"`

	CreatedUTC time.Time `json:"created_utc"`
	SyncedAt   time.Time `json:"synced_at"`
}

func itemResp(item stash.SavedItem) ItemResp {
	return ItemResp{
		RedditID:    item.RedditID,
		Fullname:    item.RedditFullname,
		Kind:        string(item.Kind),
		Subreddit:   item.Subreddit,
		Author:      item.Author,
		Permalink:   item.Permalink,
		Score:       item.Score,
		Category:    item.Category,
		Title:       item.Title,
		URL:         item.URL,
		Selftext:    item.Selftext,
		IsSelf:      item.IsSelf,
		NumComments: item.NumComments,
		Body:        item.Body,
		PostTitle:   item.PostTitle,
		Reviewed:    item.Reviewed,
		Archived:    item.Archived,
		Notes:       item.Notes,
		CreatedUTC:  item.CreatedUTC,
		SyncedAt:    item.SyncedAt,
	}
}

type ItemsResp struct {
	Items      []ItemResp     `json:"items"`
	Pagination paginationMeta `json:"pagination"`
}

func (s *Server) getItems(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	limit, offset := parsePaginationParams(r, 25, 100)

	items, total, err := s.repo.ListItems(r.Context(), accountID(r.Context()), stash.ItemFilter{
		Category:  q.Get("category"),
		Kind:      stash.ItemKind(q.Get("kind")),
		Subreddit: q.Get("subreddit"),
		Status:    q.Get("status"),
		Search:    q.Get("q"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return err
	}

	resp := ItemsResp{
		Items:      make([]ItemResp, 0, len(items)),
		Pagination: calculatePaginationMeta(limit, offset, total),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, itemResp(item))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) error {
	var (
		acctID   = accountID(r.Context())
		redditID = mux.Vars(r)["redditID"]
		cacheKey = acctID + "/" + redditID
	)

	if cached, ok := s.itemRespCache.Get(cacheKey); ok {
		return serverutil.WriteJSON(w, http.StatusOK, cached)
	}

	item, err := s.repo.Item(r.Context(), acctID, redditID)
	if errors.Is(err, stash.ErrNotFound) {
		return stasherrs.E(http.StatusNotFound, "Item not found")
	}
	if err != nil {
		return err
	}

	resp := itemResp(item)
	s.itemRespCache.Add(cacheKey, resp)

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

// PatchItemReq carries the local-state fields; absent fields are left alone.
type PatchItemReq struct {
	Reviewed *bool   `json:"reviewed"`
	Archived *bool   `json:"archived"`
	Notes    *string `json:"notes"`
}

func (p PatchItemReq) Validate() error {
	if p.Reviewed == nil && p.Archived == nil && p.Notes == nil {
		return errors.New("nothing to update")
	}

	return nil
}

func (s *Server) patchItem(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[PatchItemReq](r.Body)
	if err != nil {
		return stasherrs.E(http.StatusBadRequest, err)
	}

	var (
		acctID   = accountID(r.Context())
		redditID = mux.Vars(r)["redditID"]
	)

	// Make sure it exists first so a bad ID is a 404, not a silent no-op.
	if _, err := s.repo.Item(r.Context(), acctID, redditID); errors.Is(err, stash.ErrNotFound) {
		return stasherrs.E(http.StatusNotFound, "Item not found")
	} else if err != nil {
		return err
	}

	item, err := s.repo.UpdateItemState(r.Context(), acctID, redditID, stash.ItemStateArgs{
		Reviewed: req.Reviewed,
		Archived: req.Archived,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}

	resp := itemResp(item)
	s.itemRespCache.Add(acctID+"/"+redditID, resp)

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

// deleteItem unsaves on Reddit and then drops the local copy.
func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) error {
	var (
		acctID   = accountID(r.Context())
		redditID = mux.Vars(r)["redditID"]
	)

	if err := s.syncer.Unsave(r.Context(), acctID, redditID); err != nil {
		return syncErr(err)
	}

	s.itemRespCache.Remove(acctID + "/" + redditID)

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
