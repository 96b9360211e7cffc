package api

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	stasherrs "github.com/jdholdren/stash/internal/errors"
	"github.com/jdholdren/stash/internal/serverutil"
	"github.com/jdholdren/stash/internal/stash"
)

type CreateKeyReq struct {
	Name string `json:"name"`
}

func (c CreateKeyReq) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}

	return nil
}

type KeyResp struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`

	// Only present on creation. We store the hash, so this is the one
	// chance to read it.
	Key string `json:"key,omitempty"`
}

func keyResp(key stash.APIKey) KeyResp {
	return KeyResp{
		ID:         key.ID,
		Name:       key.Name,
		IsActive:   key.IsActive,
		LastUsedAt: key.LastUsedAt,
		CreatedAt:  key.CreatedAt,
	}
}

func (s *Server) postKey(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[CreateKeyReq](r.Body)
	if err != nil {
		return stasherrs.E(http.StatusBadRequest, err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("error generating key: %s", err)
	}
	rawKey := hex.EncodeToString(raw)
	sum := sha256.Sum256([]byte(rawKey))

	key, err := s.repo.InsertAPIKey(r.Context(), stash.APIKey{
		AccountID: accountID(r.Context()),
		Name:      req.Name,
		KeyHash:   hex.EncodeToString(sum[:]),
	})
	if err != nil {
		return err
	}

	resp := keyResp(key)
	resp.Key = rawKey

	return serverutil.WriteJSON(w, http.StatusCreated, resp)
}

func (s *Server) getKeys(w http.ResponseWriter, r *http.Request) error {
	keys, err := s.repo.APIKeys(r.Context(), accountID(r.Context()))
	if err != nil {
		return err
	}

	resp := make([]KeyResp, 0, len(keys))
	for _, key := range keys {
		resp = append(resp, keyResp(key))
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string][]KeyResp{"keys": resp})
}

func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) error {
	err := s.repo.RevokeAPIKey(r.Context(), accountID(r.Context()), mux.Vars(r)["keyID"])
	if errors.Is(err, stash.ErrNotFound) {
		return stasherrs.E(http.StatusNotFound, "Key not found")
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
