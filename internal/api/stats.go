package api

import (
	"net/http"
	"time"

	"github.com/jdholdren/stash/internal/categories"
	"github.com/jdholdren/stash/internal/serverutil"
)

type StatsResp struct {
	Total      int            `json:"total"`
	Reviewed   int            `json:"reviewed"`
	ByKind     map[string]int `json:"by_kind"`
	Categories int            `json:"categories"`

	LastSyncAt     *time.Time `json:"last_sync_at"`
	SyncInProgress bool       `json:"sync_in_progress"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) error {
	acct, err := s.repo.Account(r.Context(), accountID(r.Context()))
	if err != nil {
		return err
	}

	stats, err := s.repo.Stats(r.Context(), acct.ID)
	if err != nil {
		return err
	}

	byKind := make(map[string]int, len(stats.ByKind))
	for kind, count := range stats.ByKind {
		byKind[string(kind)] = count
	}

	return serverutil.WriteJSON(w, http.StatusOK, StatsResp{
		Total:          stats.Total,
		Reviewed:       stats.Reviewed,
		ByKind:         byKind,
		Categories:     stats.Categories,
		LastSyncAt:     acct.LastSyncAt,
		SyncInProgress: acct.SyncInProgress,
	})
}

// getCategories lists every category the resolver knows, so the frontend
// can build its filter dropdown without hardcoding the table.
func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) error {
	return serverutil.WriteJSON(w, http.StatusOK, map[string][]string{
		"categories": categories.All(),
	})
}
