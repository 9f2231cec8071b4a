package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/Babbler/pkg/markov"
)

// maxRequestLength caps max_length on generation requests.
const maxRequestLength = 10000

// MarkovAPI holds the dependencies for the Markov model API handlers.
type MarkovAPI struct {
	svc    *ModelService
	cm     *ConfigManager
	logger *slog.Logger
}

// NewMarkovAPI creates a new instance of the MarkovAPI.
func NewMarkovAPI(svc *ModelService, cm *ConfigManager, logger *slog.Logger) *MarkovAPI {
	return &MarkovAPI{
		svc:    svc,
		cm:     cm,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/markov endpoints.
func (m *MarkovAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/markov/generate", m.handleGenerate)
	mux.HandleFunc("/api/markov/stream", m.handleStream)
	mux.HandleFunc("/api/markov/transitions/", m.handleTransitions)
	mux.HandleFunc("/api/markov/stats", m.handleStats)
	mux.HandleFunc("/api/markov/prune", m.handlePrune)
	mux.HandleFunc("/api/markov/rebuild", m.handleRebuild)
}

type PruneRequest struct {
	MinFreq int `json:"minFreq"`
}

// GenerateResponse is the JSON body returned by /api/markov/generate.
type GenerateResponse struct {
	Tokens []string `json:"tokens"`
	Text   string   `json:"text"`
}

// TransitionsResponse is the JSON body returned by /api/markov/transitions/{token}.
type TransitionsResponse struct {
	Token       string              `json:"token"`
	Total       int                 `json:"total"`
	Transitions []markov.Transition `json:"transitions"`
}

// generateParams parses max_length and seed from the query string.
func (m *MarkovAPI) generateParams(r *http.Request) (int, []markov.GenerateOption, error) {
	query := r.URL.Query()

	maxLength := m.cm.Get().Markov.MaxLength
	if v := query.Get("max_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRequestLength {
			return 0, nil, fmt.Errorf("max_length must be an integer between 1 and %d", maxRequestLength)
		}
		maxLength = n
	}

	var opts []markov.GenerateOption
	if v := query.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("seed must be an unsigned integer")
		}
		opts = append(opts, markov.WithSeed(seed))
	}
	return maxLength, opts, nil
}

// respondWithGenerateError maps generator errors onto status codes.
func (m *MarkovAPI) respondWithGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, markov.ErrEmptyModel):
		respondWithError(w, http.StatusConflict, "Model is empty; add corpus text first")
	case errors.Is(err, markov.ErrInvalidArgument):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		m.logger.Error("Failed to generate", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err))
	}
}

// handleGenerate produces a single sentence from the served model.
func (m *MarkovAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeMarkovRead) {
		return
	}

	maxLength, opts, err := m.generateParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := m.svc.Generator().Generate(r.Context(), m.svc.Model(), maxLength, opts...)
	if err != nil {
		m.respondWithGenerateError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, GenerateResponse{Tokens: tokens, Text: markov.FormatSentence(tokens)})
}

// handleStream writes tokens as they are generated, one JSON string per line.
func (m *MarkovAPI) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeMarkovRead) {
		return
	}

	maxLength, opts, err := m.generateParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := m.svc.Generator().GenerateStream(r.Context(), m.svc.Model(), maxLength, opts...)
	if err != nil {
		m.respondWithGenerateError(w, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for token := range tokens {
		if err = enc.Encode(token); err != nil {
			m.logger.Debug("Client went away during stream", "error", err)
			// Drain so the generating goroutine can observe cancellation and exit.
			for range tokens {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// handleTransitions returns the ordered outgoing transitions of one token.
func (m *MarkovAPI) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeMarkovRead) {
		return
	}

	token := strings.TrimPrefix(r.URL.Path, "/api/markov/transitions/")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "Token not specified")
		return
	}

	transitions, ok := m.svc.Model().Transitions(token)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Token has no transitions")
		return
	}
	total := 0
	for _, t := range transitions {
		total += t.Count
	}
	respondWithJSON(w, http.StatusOK, TransitionsResponse{Token: token, Total: total, Transitions: transitions})
}

// handleStats returns aggregate statistics for the served model.
func (m *MarkovAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeMarkovRead) {
		return
	}
	respondWithJSON(w, http.StatusOK, m.svc.Model().Stats())
}

// handlePrune replaces the served model with a copy that only keeps
// transitions seen more than minFreq times. The corpus is untouched, so the
// next rebuild restores the full model.
func (m *MarkovAPI) handlePrune(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeMarkovWrite) {
		return
	}
	var req PruneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.MinFreq < 0 {
		respondWithError(w, http.StatusBadRequest, "minFreq must not be negative")
		return
	}

	pruned := m.svc.Prune(req.MinFreq)
	m.logger.Info("Served model pruned", "min_freq", req.MinFreq, "source_tokens", pruned.Len())
	respondWithJSON(w, http.StatusOK, pruned.Stats())
}

// handleRebuild retrains the served model from the corpus store.
func (m *MarkovAPI) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeMarkovWrite) {
		return
	}
	summary, err := m.svc.Rebuild(r.Context())
	if err != nil {
		m.logger.Error("Failed to rebuild model", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Rebuild failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
