// Package config loads the agent's configuration from an HCL file and
// layers environment variable overrides on top, the way
// cmd/hermes-indexer/main.go's loadConfig decodes its HCL config before
// the indexer consumer starts.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the full set of settings recognized by spec.md §6.3.
type Config struct {
	Server   *ServerConfig   `hcl:"server,block"`
	Database *DatabaseConfig `hcl:"database,block"`
	Board    *BoardConfig    `hcl:"board,block"`
	LLM      *LLMConfig      `hcl:"llm,block"`
	Vector   *VectorConfig   `hcl:"vector,block"`
	Upload   *UploadConfig   `hcl:"upload,block"`
	Crypto   *CryptoConfig   `hcl:"crypto,block"`
	Analysis *AnalysisConfig `hcl:"analysis,block"`
}

type ServerConfig struct {
	Host string `hcl:"host,optional"`
	Port int    `hcl:"port,optional"`
}

type DatabaseConfig struct {
	URL string `hcl:"url,optional"`
}

type BoardConfig struct {
	APIKey string `hcl:"api_key,optional"`
}

type LLMConfig struct {
	APIKey string `hcl:"api_key,optional"`
	Model  string `hcl:"model,optional"`
}

type VectorConfig struct {
	DBPath     string `hcl:"db_path,optional"`
	Collection string `hcl:"collection,optional"`
}

type UploadConfig struct {
	Folder           string `hcl:"folder,optional"`
	MaxContentLength int64  `hcl:"max_content_length,optional"`
}

type CryptoConfig struct {
	SecretKey string `hcl:"secret_key,optional"`
}

type AnalysisConfig struct {
	BatchSize int `hcl:"batch_size,optional"`
}

const defaultMaxContentLength = 16 * 1024 * 1024 // 16 MiB, spec.md §6.3

// Load decodes the HCL file at path, if non-empty, then applies
// environment variable overrides (spec.md §6.3's recognized variables),
// the way hermes's zero-config mode layers env-derived values over a
// decoded or synthesized base Config.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:   &ServerConfig{},
		Database: &DatabaseConfig{},
		Board:    &BoardConfig{},
		LLM:      &LLMConfig{},
		Vector:   &VectorConfig{},
		Upload:   &UploadConfig{},
		Crypto:   &CryptoConfig{},
		Analysis: &AnalysisConfig{},
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
				return nil, fmt.Errorf("decode config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOARD_API_KEY"); v != "" {
		cfg.Board.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DB_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("VECTOR_DB_PATH"); v != "" {
		cfg.Vector.DBPath = v
	}
	if v := os.Getenv("VECTOR_COLLECTION"); v != "" {
		cfg.Vector.Collection = v
	}
	if v := os.Getenv("UPLOAD_FOLDER"); v != "" {
		cfg.Upload.Folder = v
	}
	if v := os.Getenv("MAX_CONTENT_LENGTH"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxContentLength = n
		}
	}
	if v := os.Getenv("CRYPTO_SECRET_KEY"); v != "" {
		cfg.Crypto.SecretKey = v
	}
	if v := os.Getenv("ANALYSIS_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.BatchSize = n
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = ".kanban-agent/kanban-agent.db"
	}
	if cfg.Upload.MaxContentLength == 0 {
		cfg.Upload.MaxContentLength = defaultMaxContentLength
	}
	if cfg.Analysis.BatchSize == 0 {
		cfg.Analysis.BatchSize = 8
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"
	}
}

// Addr returns the host:port the HTTP edge should bind to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
