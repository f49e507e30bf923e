package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Flags beat env, env beats the config file, the file beats defaults.
func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gosummarize.yaml")
	yml := "addr: \":7000\"\nsearch:\n  topN: 4\nchunk:\n  maxSize: 1200\nllm:\n  model: file-model\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TOP_N", "6")
	t.Setenv("LLM_MODEL", "env-model")

	cfg, err := loadConfig([]string{
		"-config", cfgPath,
		"-env-file", filepath.Join(dir, "missing.env"),
		"-llm.model", "flag-model",
	}, io.Discard)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":7000" || cfg.MaxChunkSize != 1200 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.TopN != 6 {
		t.Fatalf("env must override file: TopN=%d", cfg.TopN)
	}
	if cfg.LLMModel != "flag-model" {
		t.Fatalf("flag must override env: LLMModel=%q", cfg.LLMModel)
	}
	if cfg.FetchTimeout != 10*time.Second || cfg.SummaryWords != 200 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

// A flag left at its default must not clobber a value from the environment.
func TestLoadConfig_UnsetFlagKeepsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ADDR", ":9100")
	cfg, err := loadConfig([]string{"-env-file", filepath.Join(dir, "none.env")}, io.Discard)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("Addr=%q, want :9100 from env", cfg.Addr)
	}
}

func TestLoadConfig_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("BING_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("BING_API_KEY", "")
	os.Unsetenv("BING_API_KEY")
	cfg, err := loadConfig([]string{"-env-file", envPath}, io.Discard)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.BingAPIKey != "from-dotenv" {
		t.Fatalf("BingAPIKey=%q, want from-dotenv", cfg.BingAPIKey)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadConfig([]string{"-env-file", filepath.Join(dir, "x"), "-search.engine", "yahoo"}, io.Discard); err == nil {
		t.Fatalf("expected unknown engine to be rejected")
	}
	if _, err := loadConfig([]string{"-no-such-flag"}, io.Discard); err == nil {
		t.Fatalf("expected unknown flag to be rejected")
	}
}
