package sqlite

import (
	"database/sql"

	"github.com/creamcroissant/orderwatch/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db            *sql.DB
	watchSessions repository.WatchSessionRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		watchSessions: newWatchSessionRepo(db),
	}
}

func (s *Store) WatchSessions() repository.WatchSessionRepository {
	return s.watchSessions
}
