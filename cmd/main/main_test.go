package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// testServer is a fully wired Server on temporary storage.
type testServer struct {
	*Server
	actionChan chan string
}

// setupTestServer creates a Server backed by a fresh database and the given
// corpus backend. It uses t.Cleanup to ensure resources are released.
func setupTestServer(t *testing.T, backend string) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfgManager, err := NewConfigManager(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("NewConfigManager() error = %v", err)
	}
	cfg := cfgManager.Get()
	cfg.Server.DataDir = dir
	cfg.Server.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Server.BoltPath = filepath.Join(dir, "test.bolt")
	cfg.Server.CorpusBackend = backend
	cfg.Server.TrustedProxies = []string{"10.0.0.1"}
	cfg.Markov.MaxLength = 20
	if err = cfgManager.Update(cfg); err != nil {
		t.Fatalf("ConfigManager.Update() error = %v", err)
	}

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfgManager.SetLogger(testLogger)

	st, err := openStorage(cfg.Server, testLogger)
	if err != nil {
		t.Fatalf("openStorage() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc := NewModelService(st.corpus, cfg.Markov, testLogger)
	if _, err = svc.Rebuild(t.Context()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	actionChan := make(chan string, 1)
	return &testServer{
		Server:     NewServer(cfgManager, testLogger, st, svc, actionChan),
		actionChan: actionChan,
	}
}

// do sends a request through the full handler tree and returns the recorder.
func (s *testServer) do(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

// addCorpus posts text as a new corpus block and fails the test unless it is accepted.
func (s *testServer) addCorpus(t *testing.T, text string) BlockResponse {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/corpus?source=test", []byte(text), nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /api/corpus status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp BlockResponse
	decodeBody(t, rr, &resp)
	return resp
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
}

var corpusBackends = []string{backendSQLite, backendBolt}
