package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
}

type StorageConfig struct {
	Root string `yaml:"root"`
}

type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// PipelineConfig sizes the Image Pipeline's worker pool (§4.G, §5): a
// number of workers per logical queue, plus defaults handed to the
// Dicomizer collaborator when a project does not override them.
type PipelineConfig struct {
	DefaultQueueWorkers int  `yaml:"default_queue_workers"`
	HighQueueWorkers    int  `yaml:"high_queue_workers"`
	QueueCapacity       int  `yaml:"queue_capacity"`
	DicomizerTileSize   int  `yaml:"dicomizer_tile_size"`
	ThumbnailSize       int  `yaml:"thumbnail_size"`
	UsePseudonyms       bool `yaml:"use_pseudonyms"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Root: "",
		},
		Cache: CacheConfig{
			TTL:        5 * time.Minute,
			MaxEntries: 256,
		},
		Pipeline: PipelineConfig{
			DefaultQueueWorkers: 2,
			HighQueueWorkers:    2,
			QueueCapacity:       256,
			DicomizerTileSize:   512,
			ThumbnailSize:       512,
			UsePseudonyms:       true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup function.
// This allows tests to provide isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables override config file
	if root := getenv("SLIDETAP_STORAGE_ROOT"); root != "" {
		cfg.Storage.Root = root
	}

	return cfg, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "slidetap", "config.yaml")
	}

	// Fall back to ~/.config
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "slidetap", "config.yaml")
}
