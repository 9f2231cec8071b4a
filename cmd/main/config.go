package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/CTAG07/Babbler/pkg/markov"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the configuration for the HTTP server and storage.
type ServerConfig struct {
	ApiAddr          string   `json:"api_addr" yaml:"api_addr"`
	LogLevel         string   `json:"log_level" yaml:"log_level"`
	TrustedProxies   []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	DataDir          string   `json:"data_dir" yaml:"data_dir"`
	DatabasePath     string   `json:"database_path" yaml:"database_path"`
	CorpusBackend    string   `json:"corpus_backend" yaml:"corpus_backend"`
	BoltPath         string   `json:"bolt_path" yaml:"bolt_path"`
	CorpusIncludes   []string `json:"corpus_includes" yaml:"corpus_includes"`
	CorpusExcludes   []string `json:"corpus_excludes" yaml:"corpus_excludes"`
	ShutdownTimeoutS int      `json:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// MarkovConfig holds settings for training and generation.
type MarkovConfig struct {
	MaxLength     int    `json:"max_length" yaml:"max_length"`
	PruneMinFreq  int    `json:"prune_min_freq" yaml:"prune_min_freq"`
	SentenceRegex string `json:"sentence_regex,omitempty" yaml:"sentence_regex,omitempty"`
	WordRegex     string `json:"word_regex,omitempty" yaml:"word_regex,omitempty"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config" yaml:"server_config"`
	Markov *MarkovConfig `json:"markov_config" yaml:"markov_config"`
}

const (
	backendSQLite = "sqlite"
	backendBolt   = "bolt"
)

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:          ":7380",
		LogLevel:         "info",
		TrustedProxies:   []string{},
		DataDir:          "./data",
		DatabasePath:     "./data/babbler.db",
		CorpusBackend:    backendSQLite,
		BoltPath:         "./data/corpus.bolt",
		CorpusIncludes:   []string{"**/*.txt"},
		CorpusExcludes:   []string{"**/.git/**"},
		ShutdownTimeoutS: 10,
	}
}

// DefaultMarkovConfig creates a markov configuration with default values.
func DefaultMarkovConfig() *MarkovConfig {
	return &MarkovConfig{
		MaxLength:    markov.DefaultMaxLength,
		PruneMinFreq: 0,
	}
}

// DefaultConfig returns a full configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: DefaultServerConfig(),
		Markov: DefaultMarkovConfig(),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

func unmarshalConfig(path string, data []byte, config *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, config)
	}
	return json.Unmarshal(data, config)
}

// Validate checks the values a server cannot start without.
func (c *Config) Validate() error {
	if c.Server == nil || c.Markov == nil {
		return fmt.Errorf("config is missing a section")
	}
	switch c.Server.CorpusBackend {
	case backendSQLite, backendBolt:
	default:
		return fmt.Errorf("unknown corpus backend %q", c.Server.CorpusBackend)
	}
	if c.Markov.MaxLength < 1 {
		return fmt.Errorf("max_length must be at least 1, got %d", c.Markov.MaxLength)
	}
	if c.Markov.PruneMinFreq < 0 {
		return fmt.Errorf("prune_min_freq must not be negative, got %d", c.Markov.PruneMinFreq)
	}
	for _, expr := range []string{c.Markov.SentenceRegex, c.Markov.WordRegex} {
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("invalid tokenizer regex %q: %w", expr, err)
		}
	}
	return nil
}

// LoadConfig reads the configuration from a JSON or YAML file at the given
// path, chosen by file extension. If the file doesn't exist, it creates one
// with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = unmarshalConfig(path, file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Markov == nil {
		config.Markov = DefaultMarkovConfig()
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// parseLogLevel maps a config log level onto slog, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigManager handles thread-safe access to configuration and derived state (trusted proxies).
type ConfigManager struct {
	config       *Config
	mu           sync.RWMutex
	trustedCIDRs []*net.IPNet
	trustedIPs   []net.IP
	configPath   string
	logger       *slog.Logger
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	cm := &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stderr before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{})),
	}
	cm.refreshCache()

	return cm, nil
}

// SetLogger sets the logger.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns a copy of the current configuration. The sections are copied
// as well, so callers may modify the result freely.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.clone()
}

// clone deep-copies a validated config.
func (c *Config) clone() Config {
	server := *c.Server
	server.TrustedProxies = slices.Clone(server.TrustedProxies)
	server.CorpusIncludes = slices.Clone(server.CorpusIncludes)
	server.CorpusExcludes = slices.Clone(server.CorpusExcludes)
	markovCfg := *c.Markov
	return Config{Server: &server, Markov: &markovCfg}
}

// Update validates the configuration, saves it to disk, and refreshes derived state.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := marshalConfig(cm.configPath, &newConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	stored := newConfig.clone()
	cm.config = &stored
	cm.refreshCache()
	return nil
}

// IsTrusted checks if an IP is in the trusted proxies list using the cache.
func (cm *ConfigManager) IsTrusted(ipAddr string) bool {
	parsedIP := net.ParseIP(ipAddr)
	if parsedIP == nil {
		return false
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, ipNet := range cm.trustedCIDRs {
		if ipNet.Contains(parsedIP) {
			return true
		}
	}

	for _, trustedIP := range cm.trustedIPs {
		if trustedIP.Equal(parsedIP) {
			return true
		}
	}

	return false
}

// refreshCache rebuilds the binary IP lists from the config strings.
func (cm *ConfigManager) refreshCache() {
	var cidrs []*net.IPNet
	var ips []net.IP

	for _, t := range cm.config.Server.TrustedProxies {
		if strings.Contains(t, "/") {
			_, ipNet, err := net.ParseCIDR(t)
			if err == nil {
				cidrs = append(cidrs, ipNet)
			} else {
				cm.logger.Warn("Failed to parse trusted proxy CIDR", "cidr", t, "error", err)
			}
		} else {
			ip := net.ParseIP(t)
			if ip != nil {
				ips = append(ips, ip)
			} else {
				cm.logger.Warn("Failed to parse trusted proxy IP", "ip", t)
			}
		}
	}
	cm.trustedCIDRs = cidrs
	cm.trustedIPs = ips
}
