package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServerActions(t *testing.T) {
	for _, action := range []string{actionShutdown, actionRestart} {
		t.Run(action, func(t *testing.T) {
			s := setupTestServer(t, backendSQLite)
			if rr := s.do(t, http.MethodGet, "/api/server/"+action, nil, nil); rr.Code != http.StatusMethodNotAllowed {
				t.Errorf("GET status = %d, want 405", rr.Code)
			}
			rr := s.do(t, http.MethodPost, "/api/server/"+action, nil, nil)
			if rr.Code != http.StatusAccepted {
				t.Fatalf("POST status = %d, want 202", rr.Code)
			}
			if got := <-s.actionChan; got != action {
				t.Errorf("action sent = %q, want %q", got, action)
			}
		})
	}
}

func TestServerVersion(t *testing.T) {
	s := setupTestServer(t, backendSQLite)
	rr := s.do(t, http.MethodGet, "/api/server/version", nil, nil)
	var info VersionInfo
	decodeBody(t, rr, &info)
	if info.Version != Version || info.Commit != Commit || info.BuildDate != BuildDate {
		t.Errorf("version = %+v", info)
	}
}

func TestServerConfigAPI(t *testing.T) {
	s := setupTestServer(t, backendSQLite)

	rr := s.do(t, http.MethodGet, "/api/server/config", nil, nil)
	var cfg Config
	decodeBody(t, rr, &cfg)
	if cfg.Markov == nil || cfg.Markov.MaxLength != 20 {
		t.Fatalf("GET config = %+v", cfg)
	}

	cfg.Markov.MaxLength = 7
	body, _ := json.Marshal(cfg)
	rr = s.do(t, http.MethodPut, "/api/server/config", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT config status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := s.cm.Get().Markov.MaxLength; got != 7 {
		t.Errorf("MaxLength after update = %d, want 7", got)
	}

	cfg.Server.CorpusBackend = "mongo"
	body, _ = json.Marshal(cfg)
	if rr = s.do(t, http.MethodPut, "/api/server/config", body, nil); rr.Code != http.StatusBadRequest {
		t.Errorf("PUT invalid config status = %d, want 400", rr.Code)
	}
	if got := s.cm.Get().Server.CorpusBackend; got != backendSQLite {
		t.Errorf("invalid update changed the backend to %q", got)
	}
}

func TestUsageStats(t *testing.T) {
	s := setupTestServer(t, backendSQLite)
	s.addCorpus(t, "The cat sat.")
	for range 3 {
		s.do(t, http.MethodGet, "/api/markov/generate", nil, nil)
	}

	rr := s.do(t, http.MethodGet, "/api/stats/summary", nil, nil)
	var summary UsageSummary
	decodeBody(t, rr, &summary)
	// addCorpus and three generate calls; the summary request is recorded after it is served.
	if summary.TotalRequests != 4 || summary.UniqueClients != 1 || summary.UniqueRoutes != 2 {
		t.Errorf("summary = %+v", summary)
	}

	rr = s.do(t, http.MethodGet, "/api/stats/top_routes", nil, nil)
	var routes []UsageEntry
	decodeBody(t, rr, &routes)
	if len(routes) == 0 || routes[0].Key != "GET /api/markov/generate" || routes[0].TotalHits != 3 {
		t.Errorf("top routes = %+v", routes)
	}
}

func TestGetClientIP(t *testing.T) {
	s := setupTestServer(t, backendSQLite)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"untrusted forwarded", "192.0.2.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "192.0.2.1"},
		{"trusted real ip", "10.0.0.1:80", map[string]string{"X-Real-Ip": "203.0.113.7"}, "203.0.113.7"},
		{"trusted forwarded", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"trusted without headers", "10.0.0.1:80", nil, "10.0.0.1"},
		{"no port", "192.0.2.5", nil, "192.0.2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := s.getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUsageStatsIgnoresUnmatchedPaths(t *testing.T) {
	s := setupTestServer(t, backendSQLite)
	master := createTestKey(t, s, nil, "*")

	countRoutes := func() int {
		t.Helper()
		var n int
		if err := s.statsAPI.db.QueryRow(`SELECT COUNT(*) FROM stats_route`).Scan(&n); err != nil {
			t.Fatalf("count stats_route: %v", err)
		}
		return n
	}
	before := countRoutes()

	for i := range 50 {
		s.do(t, http.MethodGet, fmt.Sprintf("/junk/%d", i), nil, nil)
		s.do(t, http.MethodGet, fmt.Sprintf("/api/junk/%d", i), nil, map[string]string{authHeader: master.RawKey})
	}
	s.do(t, http.MethodGet, "/api/health", nil, nil)

	if after := countRoutes(); after != before {
		t.Errorf("stats_route rows = %d after unmatched requests, want %d", after, before)
	}
}

func TestServerActionPending(t *testing.T) {
	s := setupTestServer(t, backendSQLite)
	if rr := s.do(t, http.MethodPost, "/api/server/shutdown", nil, nil); rr.Code != http.StatusAccepted {
		t.Fatalf("first POST status = %d, want 202", rr.Code)
	}
	// Nobody reads the channel, so the second action must not block.
	if rr := s.do(t, http.MethodPost, "/api/server/restart", nil, nil); rr.Code != http.StatusConflict {
		t.Errorf("second POST status = %d, want 409", rr.Code)
	}
	if got := <-s.actionChan; got != actionShutdown {
		t.Errorf("pending action = %q, want %q", got, actionShutdown)
	}
}
