package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/apexhq/apex/internal/file"
)

var defaultConfig = Config{
	GeminiAPIKey:   "API_KEY",
	RequestTimeout: 60,
	Database:       "~/.config/apex/conversations.db",
	DownloadDir:    "~/Downloads",

	Models: &ModelsConfig{
		Chat:  "gemini-2.5-flash",
		Image: "imagen-4.0-generate-001",
		Video: "veo-2.0-generate-001",
		Title: "gemini-2.5-flash",
	},
}

// Config holds configuration for the apex tool.
type Config struct {
	GeminiAPIKey   string `json:"gemini_api_key"`
	RequestTimeout int    `json:"request_timeout"`
	// Database is the path of the conversation snapshot database.
	Database string `json:"database"`
	// DownloadDir receives generated image/video payloads.
	DownloadDir string `json:"download_dir"`

	Models *ModelsConfig `json:"models"`
	User   *UserConfig   `json:"user"`
}

// ModelsConfig names the backend model for each capability.
type ModelsConfig struct {
	Chat  string `json:"chat"`
	Image string `json:"image"`
	Video string `json:"video"`
	Title string `json:"title"`
}

// UserConfig holds the signed-in identity.
type UserConfig struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	Provider    string `json:"provider"`
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	if config.Models == nil {
		config.Models = defaultConfig.Models
	}

	expandedDatabasePath, err := file.ExpandPath(config.Database)
	if err != nil {
		return nil, errors.Wrap(err, "expanding database path")
	}
	config.Database = expandedDatabasePath
	return config, nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	exists, err := file.Exists(path)
	if err != nil {
		return errors.Wrap(err, "checking for existing config")
	}
	if exists {
		return nil
	}

	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := defaultConfig.save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
