package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	stasherrs "github.com/jdholdren/stash/internal/errors"
	"github.com/jdholdren/stash/internal/reddit"
	"github.com/jdholdren/stash/internal/serverutil"
	"github.com/jdholdren/stash/internal/sync"
)

type (
	SyncReq struct {
		Full bool `json:"full"`
	}

	SyncResp struct {
		Status       string `json:"status"`
		NewItems     int    `json:"new_items"`
		UpdatedItems int    `json:"updated_items"`
	}
)

// postSync runs a pass over the account's saved listing. A full pass also
// refreshes scores on items already mirrored; the body is optional and an
// empty one means incremental.
func (s *Server) postSync(w http.ResponseWriter, r *http.Request) error {
	var req SyncReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return stasherrs.E(http.StatusBadRequest, err)
	}
	full := req.Full

	res, err := s.syncer.Sync(r.Context(), accountID(r.Context()), full)
	if err != nil {
		return syncErr(err)
	}

	// New rows mean cached list responses are stale.
	s.itemRespCache.Purge()

	return serverutil.WriteJSON(w, http.StatusOK, SyncResp{
		Status:       "success",
		NewItems:     res.New,
		UpdatedItems: res.Updated,
	})
}

// syncErr maps the sync service's errors onto HTTP statuses, passing the
// message through untouched.
func syncErr(err error) error {
	switch {
	case errors.Is(err, sync.ErrUserNotFound), errors.Is(err, sync.ErrItemNotFound):
		return stasherrs.E(http.StatusNotFound, err)
	case errors.Is(err, sync.ErrSyncInProgress):
		return stasherrs.E(http.StatusConflict, err)
	case errors.Is(err, sync.ErrTokenRefreshFailed), errors.Is(err, reddit.ErrTokenExpired):
		return stasherrs.E(http.StatusBadGateway, err)
	}

	apiErr := &reddit.APIError{}
	if errors.As(err, &apiErr) {
		return stasherrs.E(http.StatusBadGateway, err)
	}

	return err
}

type SyncStatusResp struct {
	SyncInProgress bool       `json:"sync_in_progress"`
	LastSyncAt     *time.Time `json:"last_sync_at"`
}

func (s *Server) getSyncStatus(w http.ResponseWriter, r *http.Request) error {
	acct, err := s.repo.Account(r.Context(), accountID(r.Context()))
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, SyncStatusResp{
		SyncInProgress: acct.SyncInProgress,
		LastSyncAt:     acct.LastSyncAt,
	})
}
