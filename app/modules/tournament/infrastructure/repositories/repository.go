package tournamentdb

import (
	"github.com/uptrace/bun"
)

// Repository is every persistence contract the tournament module needs.
type Repository interface {
	EventRepository
	TeamRepository
	MatchRepository
	LockRepository
}

// Impl implements Repository using Bun ORM.
type Impl struct {
	db *bun.DB
}

var _ Repository = (*Impl)(nil)

// NewRepository creates a new tournament repository.
func NewRepository(db *bun.DB) *Impl {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}
