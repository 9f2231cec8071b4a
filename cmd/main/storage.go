package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/CTAG07/Babbler/pkg/corpus"
)

// storage bundles the SQL database (always used for API keys and usage
// stats) with the corpus store selected by the config.
type storage struct {
	db     *sql.DB
	corpus corpus.Store
}

// openStorage opens the database and the configured corpus backend and sets
// up every schema the server needs.
func openStorage(cfg *ServerConfig, logger *slog.Logger) (*storage, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err = setupAuthSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup auth schema: %w", err)
	}
	if err = setupStatsSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup stats schema: %w", err)
	}

	var store corpus.Store
	switch cfg.CorpusBackend {
	case backendBolt:
		store, err = corpus.NewBoltStore(cfg.BoltPath)
	default:
		var sqliteStore *corpus.SQLiteStore
		sqliteStore, err = corpus.NewSQLiteStore(db)
		if err == nil {
			sqliteStore.SetLogger(logger)
			store = sqliteStore
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s corpus store: %w", cfg.CorpusBackend, err)
	}

	return &storage{db: db, corpus: store}, nil
}

// Close closes the corpus store before the database it may depend on.
func (s *storage) Close() error {
	storeErr := s.corpus.Close()
	dbErr := s.db.Close()
	if storeErr != nil {
		return storeErr
	}
	return dbErr
}
