package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const statsSchema = `
CREATE TABLE IF NOT EXISTS stats_client (
    ip_address    TEXT PRIMARY KEY,
    total_hits    INTEGER NOT NULL DEFAULT 1,
    first_seen    INTEGER NOT NULL,
    last_seen     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS stats_route (
    route         TEXT PRIMARY KEY,
    total_hits    INTEGER NOT NULL DEFAULT 1,
    first_seen    INTEGER NOT NULL,
    last_seen     INTEGER NOT NULL
);
`

// UsageEntry is one row of a top-N usage listing.
type UsageEntry struct {
	Key       string    `json:"key"`
	TotalHits int64     `json:"total_hits"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// UsageSummary provides a high-level overview of API usage.
type UsageSummary struct {
	TotalRequests int64 `json:"total_requests"`
	UniqueClients int64 `json:"unique_clients"`
	UniqueRoutes  int64 `json:"unique_routes"`
}

// StatsAPI records API usage per client and per route, and serves it back.
type StatsAPI struct {
	db     *sql.DB
	logger *slog.Logger
}

func setupStatsSchema(db *sql.DB) error {
	_, err := db.Exec(statsSchema)
	return err
}

func NewStatsAPI(db *sql.DB, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		db:     db,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/stats endpoints.
func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/summary", s.handleSummary)
	mux.HandleFunc("/api/stats/top_clients", s.handleTopClients)
	mux.HandleFunc("/api/stats/top_routes", s.handleTopRoutes)
}

// Record counts one request from ip against route in a single transaction.
func (s *StatsAPI) Record(ctx context.Context, ip, route string) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	_, err = tx.ExecContext(ctx, `
        INSERT INTO stats_client (ip_address, first_seen, last_seen) VALUES (?, ?, ?)
        ON CONFLICT(ip_address) DO UPDATE SET total_hits = total_hits + 1, last_seen = excluded.last_seen
    `, ip, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert stats_client: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO stats_route (route, first_seen, last_seen) VALUES (?, ?, ?)
        ON CONFLICT(route) DO UPDATE SET total_hits = total_hits + 1, last_seen = excluded.last_seen
    `, route, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert stats_route: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stats transaction: %w", err)
	}
	return nil
}

// Summary totals all recorded usage.
func (s *StatsAPI) Summary(ctx context.Context) (UsageSummary, error) {
	var summary UsageSummary
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(total_hits), 0), COUNT(*) FROM stats_client").Scan(&summary.TotalRequests, &summary.UniqueClients); err != nil {
		return summary, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stats_route").Scan(&summary.UniqueRoutes); err != nil {
		return summary, err
	}
	return summary, nil
}

// top lists the busiest rows of a usage table. table and column are
// constants from this file, never user input.
func (s *StatsAPI) top(ctx context.Context, table, column string) ([]UsageEntry, error) {
	query := fmt.Sprintf("SELECT %s, total_hits, first_seen, last_seen FROM %s ORDER BY total_hits DESC, %s LIMIT 100", column, table, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	results := make([]UsageEntry, 0)
	for rows.Next() {
		var entry UsageEntry
		var first, last int64
		if err = rows.Scan(&entry.Key, &entry.TotalHits, &first, &last); err != nil {
			return nil, err
		}
		entry.FirstSeen = time.Unix(first, 0).UTC()
		entry.LastSeen = time.Unix(last, 0).UTC()
		results = append(results, entry)
	}
	return results, rows.Err()
}

func (s *StatsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeStatsRead) {
		return
	}
	summary, err := s.Summary(r.Context())
	if err != nil {
		s.logger.Error("Failed to query usage summary", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (s *StatsAPI) handleTopClients(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeStatsRead) {
		return
	}
	results, err := s.top(r.Context(), "stats_client", "ip_address")
	if err != nil {
		s.logger.Error("Failed to query top clients", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}

func (s *StatsAPI) handleTopRoutes(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeStatsRead) {
		return
	}
	results, err := s.top(r.Context(), "stats_route", "route")
	if err != nil {
		s.logger.Error("Failed to query top routes", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}
