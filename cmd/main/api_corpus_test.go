package main

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/CTAG07/Babbler/pkg/corpus"
)

func TestCorpusLifecycle(t *testing.T) {
	for _, backend := range corpusBackends {
		t.Run(backend, func(t *testing.T) {
			s := setupTestServer(t, backend)

			first := s.addCorpus(t, "One fish two fish.")
			second := s.addCorpus(t, "Red fish blue fish.")
			if first.Block == nil || second.Block == nil {
				t.Fatal("expected the created block in the response")
			}
			if first.Block.Text != "" {
				t.Error("expected the response to omit the block text")
			}
			if first.Block.Source != "test" {
				t.Errorf("Source = %q, want test", first.Block.Source)
			}

			rr := s.do(t, http.MethodGet, "/api/corpus", nil, nil)
			var blocks []corpus.Block
			decodeBody(t, rr, &blocks)
			if len(blocks) != 2 || blocks[0].ID != first.Block.ID || blocks[1].ID != second.Block.ID {
				t.Fatalf("GET /api/corpus = %+v", blocks)
			}

			rr = s.do(t, http.MethodGet, fmt.Sprintf("/api/corpus/%d", second.Block.ID), nil, nil)
			var block corpus.Block
			decodeBody(t, rr, &block)
			if block.Text != "Red fish blue fish." {
				t.Errorf("GET block text = %q", block.Text)
			}

			if _, ok := s.svc.Model().Transitions("red"); !ok {
				t.Error("expected the model to learn from the second block")
			}

			rr = s.do(t, http.MethodDelete, fmt.Sprintf("/api/corpus/%d", second.Block.ID), nil, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("DELETE status = %d, body = %s", rr.Code, rr.Body.String())
			}
			if _, ok := s.svc.Model().Transitions("red"); ok {
				t.Error("expected deleting a block to retrain the model without it")
			}
			if _, ok := s.svc.Model().Transitions("one"); !ok {
				t.Error("expected the remaining block to stay in the model")
			}

			rr = s.do(t, http.MethodDelete, fmt.Sprintf("/api/corpus/%d", second.Block.ID), nil, nil)
			if rr.Code != http.StatusNotFound {
				t.Errorf("second DELETE status = %d, want 404", rr.Code)
			}
			rr = s.do(t, http.MethodGet, fmt.Sprintf("/api/corpus/%d", second.Block.ID), nil, nil)
			if rr.Code != http.StatusNotFound {
				t.Errorf("GET deleted block status = %d, want 404", rr.Code)
			}
		})
	}
}

func TestCorpusBadRequests(t *testing.T) {
	s := setupTestServer(t, backendSQLite)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"empty body", http.MethodPost, "/api/corpus", "", http.StatusBadRequest},
		{"whitespace body", http.MethodPost, "/api/corpus", " \n\t ", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/corpus/abc", "", http.StatusBadRequest},
		{"bad method", http.MethodPut, "/api/corpus", "", http.StatusMethodNotAllowed},
		{"bad block method", http.MethodPost, "/api/corpus/1", "", http.StatusMethodNotAllowed},
		{"too large", http.MethodPost, "/api/corpus", strings.Repeat("a", maxBlockBytes+1), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.path, []byte(tt.body), nil)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}
