package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const hubTokenEnv = "HUGGINGFACEHUB_API_TOKEN"

type Config struct {
	Hub       HubConfig       `yaml:"hub"`
	Compress  CompressConfig  `yaml:"compress"`
	Generate  GenerateConfig  `yaml:"generate"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	RemoteLLM LLMConfig       `yaml:"remote_llm"`
	EmbedLLM  LLMConfig       `yaml:"embed_llm"`
	Database  DatabaseConfig  `yaml:"database"`
	VectorDB  VectorDBConfig  `yaml:"vector_db"`
}

type HubConfig struct {
	// Model repository on the hub, e.g. "karpathy/tinyllamas".
	Repo     string `yaml:"repo"`
	Token    string `yaml:"token"`
	CacheDir string `yaml:"cache_dir"`
	// Artifact names inside the repo. Hubs name checkpoints freely, so
	// these must match the repo's actual file listing.
	CheckpointFile string `yaml:"checkpoint_file"`
	TokenizerFile  string `yaml:"tokenizer_file"`
}

type CompressConfig struct {
	// Fraction of weights zeroed per linear layer, 0 disables pruning.
	PruneAmount float64 `yaml:"prune_amount"`
	// Layers pruned per batch before memory is reclaimed.
	PruneBatchSize int `yaml:"prune_batch_size"`
	// Pause between batches, in seconds.
	PruneDelaySeconds int `yaml:"prune_delay_seconds"`
	// Target rank for low-rank factorization, 0 disables it.
	Rank int `yaml:"rank"`
}

type GenerateConfig struct {
	MaxNewTokens int     `yaml:"max_new_tokens"`
	Temperature  float64 `yaml:"temperature"`
	TopP         float64 `yaml:"top_p"`
	TopK         int     `yaml:"top_k"`
}

type SynthesisConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	BatchSize int `yaml:"batch_size"`
}

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Key     string `yaml:"key"`
}

type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Key     string `yaml:"key"`
	Debug   bool   `yaml:"debug"`
}

type VectorDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	InMemory      bool   `yaml:"in_memory"`
	EncryptionKey string `yaml:"encryption_key"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Generate.MaxNewTokens == 0 {
		c.Generate.MaxNewTokens = 2048
	}
	if c.Generate.Temperature == 0 {
		c.Generate.Temperature = 1.0
	}
	if c.Generate.TopP == 0 {
		c.Generate.TopP = 1.0
	}
	if c.Generate.TopK == 0 {
		c.Generate.TopK = 50
	}
	if c.Synthesis.ChunkSize == 0 {
		c.Synthesis.ChunkSize = 8192
	}
	if c.Synthesis.BatchSize == 0 {
		c.Synthesis.BatchSize = 4
	}
	if c.Compress.PruneBatchSize == 0 {
		c.Compress.PruneBatchSize = 5
	}
	if c.Compress.PruneDelaySeconds == 0 {
		c.Compress.PruneDelaySeconds = 1
	}
}

// PruneDelay converts the configured pause into a duration.
func (c *CompressConfig) PruneDelay() time.Duration {
	return time.Duration(c.PruneDelaySeconds) * time.Second
}

// HubToken resolves the hub credential: a .env file if present, then the
// process environment, then the config file. Absence is an error because
// the model download cannot authenticate without it.
func (c *Config) HubToken() (string, error) {
	_ = godotenv.Load()

	if token := os.Getenv(hubTokenEnv); token != "" {
		return token, nil
	}
	if c.Hub.Token != "" {
		return c.Hub.Token, nil
	}
	return "", fmt.Errorf("%s is not set", hubTokenEnv)
}
