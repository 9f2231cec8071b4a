package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg.Server.ApiAddr != DefaultServerConfig().ApiAddr {
				t.Errorf("ApiAddr = %q, want default", cfg.Server.ApiAddr)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("expected a default config file to be written: %v", err)
			}
			if isYAML(path) != strings.Contains(string(data), "server_config:") {
				t.Errorf("config file written in the wrong format:\n%s", data)
			}

			reloaded, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("reload error = %v", err)
			}
			if reloaded.Server.ApiAddr != cfg.Server.ApiAddr || *reloaded.Markov != *cfg.Markov {
				t.Errorf("reloaded config differs from defaults: %+v", reloaded)
			}
		})
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "babbler.yml")
	content := `server_config:
  api_addr: ":9000"
  corpus_backend: bolt
markov_config:
  max_length: 12
  prune_min_freq: 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.ApiAddr != ":9000" || cfg.Server.CorpusBackend != backendBolt {
		t.Errorf("server config = %+v", cfg.Server)
	}
	if cfg.Markov.MaxLength != 12 || cfg.Markov.PruneMinFreq != 2 {
		t.Errorf("markov config = %+v", cfg.Markov)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "config.json", `{"server_config":`},
		{"bad backend", "config.json", `{"server_config":{"corpus_backend":"mongo"}}`},
		{"bad max length", "config.json", `{"markov_config":{"max_length":0}}`},
		{"negative prune", "config.yaml", "markov_config:\n  max_length: 5\n  prune_min_freq: -1\n"},
		{"bad regex", "config.json", `{"markov_config":{"max_length":5,"word_regex":"[a-"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestConfigManagerUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cm, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager() error = %v", err)
	}

	cfg := cm.Get()
	cfg.Markov.MaxLength = 33
	cfg.Server.CorpusIncludes = append(cfg.Server.CorpusIncludes, "**/*.md")
	if err = cm.Update(cfg); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// Get returns copies.
	got := cm.Get()
	got.Markov.MaxLength = 1
	got.Server.CorpusIncludes[0] = "changed"
	if again := cm.Get(); again.Markov.MaxLength != 33 || again.Server.CorpusIncludes[0] == "changed" {
		t.Error("modifying the result of Get changed the managed config")
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if reloaded.Markov.MaxLength != 33 || len(reloaded.Server.CorpusIncludes) != 2 {
		t.Errorf("update was not persisted: %+v %+v", reloaded.Server, reloaded.Markov)
	}

	bad := cm.Get()
	bad.Markov.MaxLength = 0
	if err = cm.Update(bad); err == nil {
		t.Error("expected Update to reject an invalid config")
	}
	if cm.Get().Markov.MaxLength != 33 {
		t.Error("a rejected update changed the managed config")
	}
}

func TestConfigManagerIsTrusted(t *testing.T) {
	cm, err := NewConfigManager(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewConfigManager() error = %v", err)
	}
	cm.SetLogger(slog.New(slog.DiscardHandler))

	cfg := cm.Get()
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.5", "bogus", "300.0.0.0/8"}
	if err = cm.Update(cfg); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tests := map[string]bool{
		"10.1.2.3":        true,
		"192.168.1.5":     true,
		"192.168.1.6":     false,
		"not-an-ip":       false,
		"11.0.0.1":        false,
		"::ffff:10.0.0.1": true,
	}
	for ip, want := range tests {
		if got := cm.IsTrusted(ip); got != want {
			t.Errorf("IsTrusted(%q) = %v, want %v", ip, got, want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level:\n%s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "key=value") {
		t.Errorf("warn record missing from output:\n%s", out)
	}
}
