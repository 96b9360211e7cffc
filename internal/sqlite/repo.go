// Package sqlite implements the stash repository on a SQLite database.
package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/stash/internal/stash"
)

// Ensure Repo implements the Repository interface
var _ stash.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}
