package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Templates struct {
		Dir     string `yaml:"dir"`
		Catalog string `yaml:"catalog"` // optional extra block catalog (YAML)
	} `yaml:"templates"`
	Store struct {
		Path string `yaml:"path"` // SQLite database file
	} `yaml:"store"`
	AI struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"ai"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	cfg.Templates.Dir = "templates"
	cfg.Store.Path = "labz.db"
	cfg.AI.Model = "gemini-2.0-flash"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config; a missing file keeps the defaults
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("LABZ_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if provider := os.Getenv("LABZ_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if dir := os.Getenv("LABZ_TEMPLATES_DIR"); dir != "" {
		cfg.Templates.Dir = dir
	}
	if store := os.Getenv("LABZ_STORE_PATH"); store != "" {
		cfg.Store.Path = store
	}

	return cfg, nil
}
