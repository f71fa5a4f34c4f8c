// Package config holds the configuration surface for indexing and review.
// Values come from the environment (a .env file is loaded when present) and
// may be overridden by CLI flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for the chunking and retrieval parameters.
const (
	DefaultChunkSize    = 1500
	DefaultOverlapLines = 10
	DefaultMaxFileSize  = 1 << 20 // 1 MB
	DefaultBatchSize    = 32
	DefaultTopK         = 10
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultEmbedModel   = "nomic-embed-text"
	DefaultChatModel    = "qwen3:8b"
)

// DefaultExcludedDirs are skipped during file discovery.
var DefaultExcludedDirs = []string{
	".git", ".svn", ".hg",
	"node_modules", "vendor", "__pycache__",
	".idea", ".vscode", "dist", "build",
	".ragindex",
}

// Config is the full configuration for one run.
type Config struct {
	ChunkMode    string // "structural" or "windowed"
	ChunkSize    int    // characters per chunk
	OverlapLines int    // lines shared between consecutive windowed chunks
	MaxFileSize  int64  // bytes
	ExcludedDirs []string
	BatchSize    int // texts per embedding call
	TopK         int // similarity result count

	OllamaURL  string
	EmbedModel string
	ChatModel  string
}

// Load reads configuration from the environment, loading a .env file from
// the working directory first when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ChunkMode:    envStr("RAGREV_CHUNK_MODE", "structural"),
		ChunkSize:    envInt("RAGREV_CHUNK_SIZE", DefaultChunkSize),
		OverlapLines: envInt("RAGREV_OVERLAP_LINES", DefaultOverlapLines),
		MaxFileSize:  int64(envInt("RAGREV_MAX_FILE_SIZE", DefaultMaxFileSize)),
		ExcludedDirs: envList("RAGREV_EXCLUDED_DIRS", DefaultExcludedDirs),
		BatchSize:    envInt("RAGREV_BATCH_SIZE", DefaultBatchSize),
		TopK:         envInt("RAGREV_TOP_K", DefaultTopK),
		OllamaURL:    envStr("RAGREV_OLLAMA_URL", DefaultOllamaURL),
		EmbedModel:   envStr("RAGREV_EMBED_MODEL", DefaultEmbedModel),
		ChatModel:    envStr("RAGREV_CHAT_MODEL", DefaultChatModel),
	}
}

// Validate checks the parameter ranges.
func (c Config) Validate() error {
	if c.ChunkMode != "structural" && c.ChunkMode != "windowed" {
		return fmt.Errorf("chunk mode must be structural or windowed, got %q", c.ChunkMode)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.OverlapLines < 0 {
		return fmt.Errorf("overlap lines must not be negative, got %d", c.OverlapLines)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top-k must be positive, got %d", c.TopK)
	}
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
