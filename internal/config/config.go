package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalEmbedderConfig configures the deterministic local embedder.
type LocalEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	Dimension   int    `yaml:"dimension"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Local  *LocalEmbedderConfig  `yaml:"local,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// SegmenterConfig configures chunk word-count bounds.
type SegmenterConfig struct {
	MinWords       int `yaml:"min_words"`
	MaxWords       int `yaml:"max_words"`
	ShortUnitWords int `yaml:"short_unit_words"`
}

// QdrantConfig contains connection details for a Qdrant vector index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorIndexConfig selects and configures the vector index backend.
type VectorIndexConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// ChatConfig configures the chat history store.
type ChatConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig configures query behavior.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Segmenter   SegmenterConfig   `yaml:"segmenter"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Chat        ChatConfig        `yaml:"chat"`
	Search      SearchConfig      `yaml:"search"`
	LogLevel    string            `yaml:"log_level"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdfsearch/config.yaml.
// If neither exists, it writes defaults to ~/.config/pdfsearch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfsearch", "config.yaml"), nil
}

func defaultChatPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chat.db"
	}
	return filepath.Join(home, ".config", "pdfsearch", "chat.db")
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Embedder:    EmbedderConfig{Type: "local"},
		Segmenter:   SegmenterConfig{MinWords: 5, MaxWords: 15, ShortUnitWords: 5},
		VectorIndex: VectorIndexConfig{Type: "memory"},
		Chat:        ChatConfig{Path: defaultChatPath()},
		Search:      SearchConfig{TopK: 3},
		LogLevel:    "info",
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Segmenter.MinWords == 0 {
		cfg.Segmenter.MinWords = 5
	}
	if cfg.Segmenter.MaxWords == 0 {
		cfg.Segmenter.MaxWords = 15
	}
	if cfg.Segmenter.ShortUnitWords == 0 {
		cfg.Segmenter.ShortUnitWords = 5
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 3
	}
	if cfg.Chat.Path == "" {
		cfg.Chat.Path = defaultChatPath()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 100
		}
	}
	if cfg.VectorIndex.Type == "qdrant" && cfg.VectorIndex.Qdrant != nil {
		if cfg.VectorIndex.Qdrant.URL == "" {
			cfg.VectorIndex.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorIndex.Qdrant.TimeoutSecs == 0 {
			cfg.VectorIndex.Qdrant.TimeoutSecs = 15
		}
	}
}
