package main

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Server wires the model service, the storage and the API handlers together.
type Server struct {
	cm        *ConfigManager
	store     *storage
	logger    *slog.Logger
	svc       *ModelService
	authAPI   *AuthAPI
	markovAPI *MarkovAPI
	corpusAPI *CorpusAPI
	statsAPI  *StatsAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
	handler   http.Handler
}

// NewServer builds the API handler tree. The caller owns st and svc.
func NewServer(cm *ConfigManager, logger *slog.Logger, st *storage, svc *ModelService, actionChan chan string) *Server {
	s := &Server{
		cm:        cm,
		store:     st,
		logger:    logger,
		svc:       svc,
		authAPI:   NewAuthAPI(st.db, logger),
		markovAPI: NewMarkovAPI(svc, cm, logger),
		corpusAPI: NewCorpusAPI(st.corpus, svc, logger),
		statsAPI:  NewStatsAPI(st.db, logger),
		serverAPI: NewServerAPI(cm, actionChan, logger),
		apiMux:    http.NewServeMux(),
	}

	s.authAPI.RegisterRoutes(s.apiMux)
	s.markovAPI.RegisterRoutes(s.apiMux)
	s.corpusAPI.RegisterRoutes(s.apiMux)
	s.statsAPI.RegisterRoutes(s.apiMux)
	s.serverAPI.RegisterRoutes(s.apiMux)

	root := http.NewServeMux()
	root.HandleFunc("/api/health", handleHealth)
	// Every other api route must pass through authentication first.
	root.Handle("/api/", s.authAPI.Authenticate(s.apiMux))

	s.handler = s.logRequests(root)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// logRequests logs every request. Requests matching an API route are also
// recorded in the usage stats under that route's pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		clientIP := s.getClientIP(r)
		_, pattern := s.apiMux.Handler(r)

		s.logger.Debug("Request served",
			"remote_addr", clientIP,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
		// Paths outside the API routes are not counted.
		if pattern == "" {
			return
		}
		if err := s.statsAPI.Record(r.Context(), clientIP, r.Method+" "+pattern); err != nil {
			s.logger.Warn("Failed to record usage stats", "error", err)
		}
	})
}

// getClientIP returns the address of the client. Forwarding headers are only
// honored when the direct peer is a trusted proxy.
func (s *Server) getClientIP(r *http.Request) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// No port, use the address as is.
		remoteIP = r.RemoteAddr
	}

	if !s.cm.IsTrusted(remoteIP) {
		return remoteIP
	}

	// The X-Real-Ip header contains the forwarded IP in some cases (like from nginx)
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}

	// The first IP in X-Forwarded-For is the original client.
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}

	return remoteIP
}
