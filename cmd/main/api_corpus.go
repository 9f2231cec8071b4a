package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/Babbler/pkg/corpus"
	"github.com/CTAG07/Babbler/pkg/markov"
)

// maxBlockBytes limits the size of a single uploaded corpus block.
const maxBlockBytes = 10 << 20

// CorpusAPI holds the dependencies for the corpus API handlers.
type CorpusAPI struct {
	store  corpus.Store
	svc    *ModelService
	logger *slog.Logger
}

// NewCorpusAPI creates a new instance of the CorpusAPI.
func NewCorpusAPI(store corpus.Store, svc *ModelService, logger *slog.Logger) *CorpusAPI {
	return &CorpusAPI{
		store:  store,
		svc:    svc,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/corpus endpoints.
func (c *CorpusAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/corpus", c.handleCorpus)
	mux.HandleFunc("/api/corpus/", c.handleBlockByID)
}

// BlockResponse is returned after a change to the corpus, together with the
// summary of the retraining it triggered.
type BlockResponse struct {
	Block    *corpus.Block          `json:"block,omitempty"`
	Training markov.TrainingSummary `json:"training"`
}

func (c *CorpusAPI) handleCorpus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !requireScope(w, r, scopeCorpusRead) {
			return
		}
		blocks, err := c.store.List(r.Context())
		if err != nil {
			c.logger.Error("Failed to list corpus blocks", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list corpus: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, blocks)

	case http.MethodPost:
		if !requireScope(w, r, scopeCorpusWrite) {
			return
		}
		c.addBlock(w, r)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// addBlock stores the raw request body as one block and retrains the model.
func (c *CorpusAPI) addBlock(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBlockBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Block exceeds %d bytes", maxErr.Limit))
			return
		}
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		respondWithError(w, http.StatusBadRequest, "Request body is empty")
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}

	block, err := c.store.Add(r.Context(), source, text)
	if err != nil {
		c.logger.Error("Failed to add corpus block", "source", source, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store block: %v", err))
		return
	}

	summary, err := c.svc.Rebuild(r.Context())
	if err != nil {
		c.logger.Error("Failed to rebuild model after adding block", "block_id", block.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Block stored but retraining failed: %v", err))
		return
	}

	block.Text = ""
	respondWithJSON(w, http.StatusCreated, BlockResponse{Block: &block, Training: summary})
}

func (c *CorpusAPI) handleBlockByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/corpus/"), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid block ID format in URL")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !requireScope(w, r, scopeCorpusRead) {
			return
		}
		block, err := c.store.Get(r.Context(), id)
		if err != nil {
			c.respondWithStoreError(w, id, err)
			return
		}
		respondWithJSON(w, http.StatusOK, block)

	case http.MethodDelete:
		if !requireScope(w, r, scopeCorpusWrite) {
			return
		}
		if err = c.store.Delete(r.Context(), id); err != nil {
			c.respondWithStoreError(w, id, err)
			return
		}
		summary, err := c.svc.Rebuild(r.Context())
		if err != nil {
			c.logger.Error("Failed to rebuild model after deleting block", "block_id", id, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Block deleted but retraining failed: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, BlockResponse{Training: summary})

	default:
		w.Header().Set("Allow", "GET, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (c *CorpusAPI) respondWithStoreError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, corpus.ErrBlockNotFound) {
		respondWithError(w, http.StatusNotFound, "Block not found")
		return
	}
	c.logger.Error("Corpus store error", "block_id", id, "error", err)
	respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
}
