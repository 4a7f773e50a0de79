package main

import (
	"fmt"
	"io"

	"github.com/dominicf2001/comfyforum/internal/auth"
	"github.com/dominicf2001/comfyforum/internal/config"
	"github.com/dominicf2001/comfyforum/internal/database"
)

func openStore(cfg config.StoreConfig) (database.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return database.OpenSQLite(cfg.Path, database.ForumDesign)
	case "badger":
		return database.OpenBadger(cfg.Path, database.ForumDesign)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSessionStore returns the store and a closer for it.
func openSessionStore(cfg config.SessionConfig) (auth.SessionStore, io.Closer, error) {
	switch cfg.Store {
	case "memory":
		return auth.NewMemorySessions(), nopCloser{}, nil
	case "badger":
		s, err := auth.OpenBadgerSessions(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
