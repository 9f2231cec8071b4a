package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// SetupSchema initializes the corpus tables in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaBlocks = `
CREATE TABLE IF NOT EXISTS corpus_blocks (
    block_id INTEGER PRIMARY KEY,
    source TEXT NOT NULL,
    text TEXT NOT NULL,
    added_at INTEGER NOT NULL
);
`
	if _, err := db.Exec(schemaBlocks); err != nil {
		return fmt.Errorf("could not create corpus schema: %w", err)
	}
	return nil
}

// SQLiteStore is a Store backed by a SQL database. It holds prepared statements
// for every operation; the database handle itself is owned by the caller.
type SQLiteStore struct {
	db         *sql.DB
	stmtAdd    *sql.Stmt
	stmtGet    *sql.Stmt
	stmtDelete *sql.Stmt
	stmtList   *sql.Stmt
	stmtTexts  *sql.Stmt
	logger     *slog.Logger
}

// NewSQLiteStore sets up the schema and pre-compiles all necessary SQL
// statements, returning an error if any preparation fails.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if err := SetupSchema(db); err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var err error
	if s.stmtAdd, err = db.Prepare(`INSERT INTO corpus_blocks (source, text, added_at) VALUES (?, ?, ?) RETURNING block_id;`); err != nil {
		return nil, err
	}
	if s.stmtGet, err = db.Prepare(`SELECT source, text, added_at FROM corpus_blocks WHERE block_id = ?;`); err != nil {
		return nil, err
	}
	if s.stmtDelete, err = db.Prepare(`DELETE FROM corpus_blocks WHERE block_id = ?;`); err != nil {
		return nil, err
	}
	if s.stmtList, err = db.Prepare(`SELECT block_id, source, length(CAST(text AS BLOB)), added_at FROM corpus_blocks ORDER BY block_id;`); err != nil {
		return nil, err
	}
	if s.stmtTexts, err = db.Prepare(`SELECT text FROM corpus_blocks ORDER BY block_id;`); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLiteStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Add inserts a new block.
func (s *SQLiteStore) Add(ctx context.Context, source, text string) (Block, error) {
	addedAt := time.Now().UTC().Truncate(time.Second)
	var id int64
	if err := s.stmtAdd.QueryRowContext(ctx, source, text, addedAt.Unix()).Scan(&id); err != nil {
		return Block{}, fmt.Errorf("could not insert block from '%s': %w", source, err)
	}

	s.logger.DebugContext(ctx, "Corpus block added",
		slog.Int64("block_id", id),
		slog.String("source", source),
		slog.Int("size", len(text)),
	)

	return Block{ID: id, Source: source, Text: text, Size: len(text), AddedAt: addedAt}, nil
}

// Get returns a single block including its text.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (Block, error) {
	block := Block{ID: id}
	var addedAt int64
	err := s.stmtGet.QueryRowContext(ctx, id).Scan(&block.Source, &block.Text, &addedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Block{}, fmt.Errorf("block %d: %w", id, ErrBlockNotFound)
		}
		return Block{}, fmt.Errorf("could not get block %d: %w", id, err)
	}
	block.Size = len(block.Text)
	block.AddedAt = time.Unix(addedAt, 0).UTC()
	return block, nil
}

// Delete removes a block.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.stmtDelete.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("could not delete block %d: %w", id, err)
	}
	if rowsAffected, _ := res.RowsAffected(); rowsAffected == 0 {
		return fmt.Errorf("block %d: %w", id, ErrBlockNotFound)
	}
	s.logger.DebugContext(ctx, "Corpus block deleted", slog.Int64("block_id", id))
	return nil
}

// List returns block metadata in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]Block, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	blocks := make([]Block, 0)
	for rows.Next() {
		var block Block
		var addedAt int64
		if err = rows.Scan(&block.ID, &block.Source, &block.Size, &addedAt); err != nil {
			return nil, err
		}
		block.AddedAt = time.Unix(addedAt, 0).UTC()
		blocks = append(blocks, block)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Texts streams every block text to fn in insertion order, stopping at the
// first error fn returns.
func (s *SQLiteStore) Texts(ctx context.Context, fn func(text string) error) error {
	rows, err := s.stmtTexts.QueryContext(ctx)
	if err != nil {
		return err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var text string
		if err = rows.Scan(&text); err != nil {
			return err
		}
		if err = fn(text); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close releases all prepared SQL statements. The database handle stays open.
func (s *SQLiteStore) Close() error {
	_ = s.stmtAdd.Close()
	_ = s.stmtGet.Close()
	_ = s.stmtDelete.Close()
	_ = s.stmtList.Close()
	_ = s.stmtTexts.Close()
	return nil
}
