package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
hub:
  repo: karpathy/tinyllamas
compress:
  prune_amount: 0.2
  rank: 10
generate:
  max_new_tokens: 512
synthesis:
  chunk_size: 4096
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Hub.Repo != "karpathy/tinyllamas" {
		t.Errorf("repo = %q", cfg.Hub.Repo)
	}
	if cfg.Compress.PruneAmount != 0.2 || cfg.Compress.Rank != 10 {
		t.Errorf("compress = %+v", cfg.Compress)
	}
	if cfg.Generate.MaxNewTokens != 512 {
		t.Errorf("max_new_tokens = %d", cfg.Generate.MaxNewTokens)
	}
	if cfg.Synthesis.ChunkSize != 4096 {
		t.Errorf("chunk_size = %d", cfg.Synthesis.ChunkSize)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "hub:\n  repo: someone/some-model\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Generate.MaxNewTokens != 2048 {
		t.Errorf("default max_new_tokens = %d, want 2048", cfg.Generate.MaxNewTokens)
	}
	if cfg.Generate.TopK != 50 {
		t.Errorf("default top_k = %d, want 50", cfg.Generate.TopK)
	}
	if cfg.Synthesis.ChunkSize != 8192 || cfg.Synthesis.BatchSize != 4 {
		t.Errorf("synthesis defaults = %+v", cfg.Synthesis)
	}
	if cfg.Compress.PruneBatchSize != 5 || cfg.Compress.PruneDelay() != time.Second {
		t.Errorf("compress defaults = %+v", cfg.Compress)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestHubTokenFromEnv(t *testing.T) {
	t.Setenv(hubTokenEnv, "hf_test_token")

	cfg := &Config{}
	token, err := cfg.HubToken()
	if err != nil {
		t.Fatalf("token lookup failed: %v", err)
	}
	if token != "hf_test_token" {
		t.Errorf("token = %q", token)
	}
}

func TestHubTokenFromConfigFile(t *testing.T) {
	t.Setenv(hubTokenEnv, "")

	cfg := &Config{Hub: HubConfig{Token: "hf_from_yaml"}}
	token, err := cfg.HubToken()
	if err != nil {
		t.Fatalf("token lookup failed: %v", err)
	}
	if token != "hf_from_yaml" {
		t.Errorf("token = %q", token)
	}
}

func TestHubTokenMissingIsError(t *testing.T) {
	t.Setenv(hubTokenEnv, "")

	cfg := &Config{}
	if _, err := cfg.HubToken(); err == nil {
		t.Error("expected error when no credential is available")
	}
}
