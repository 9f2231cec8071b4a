package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Train a model from the stored corpus and serve it over HTTP until a
shutdown is requested by signal or through the API. A restart requested
through the API reloads the config file and retrains from scratch.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan
		logger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := run(cmd.Context(), actionChan)
		if err != nil {
			return fmt.Errorf("server run failed: %w", err)
		}
		if action != actionRestart {
			break
		}
		logger.Info("--- Server Restarting ---")

		// Pick up config changes saved through the API.
		if cm, err = NewConfigManager(cfgFile); err != nil {
			return fmt.Errorf("failed to reload config: %w", err)
		}
		logger = newLogger(os.Stderr, cm.Get().Server.LogLevel)
		cm.SetLogger(logger)
	}

	logger.Info("Babbler has shut down.")
	return nil
}

// run hosts the API server for one cycle, and returns whenever the server is
// shut down or restarted.
func run(ctx context.Context, actionChan chan string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := cm.Get()
	logger.Info("Starting server cycle...", "corpus_backend", cfg.Server.CorpusBackend)

	st, err := openStorage(cfg.Server, logger)
	if err != nil {
		return "", err
	}

	svc := NewModelService(st.corpus, cfg.Markov, logger)
	if _, err = svc.Rebuild(ctx); err != nil {
		_ = st.Close()
		return "", fmt.Errorf("failed to train initial model: %w", err)
	}

	server := NewServer(cm, logger, st, svc, actionChan)
	apiHttpServer := &http.Server{
		Addr:              cfg.Server.ApiAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Api server failed", "error", err)
			select {
			case actionChan <- actionShutdown:
			default:
			}
		}
	}()

	action := <-actionChan // Block here until API or OS signal sends an action.

	logger.Info("Stopping server for " + action + "...")
	timeout := time.Duration(cfg.Server.ShutdownTimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = apiHttpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Api server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")

	logger.Info("Closing storage.")
	if err = st.Close(); err != nil {
		logger.Error("Failed to close storage", "error", err)
	}

	return action, nil
}
