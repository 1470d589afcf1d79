package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInitializesMissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	config, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig.GeminiAPIKey, config.GeminiAPIKey)
	assert.Equal(t, defaultConfig.RequestTimeout, config.RequestTimeout)
	require.NotNil(t, config.Models)
	assert.Equal(t, defaultConfig.Models.Chat, config.Models.Chat)

	// The default file was written for the user to edit.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestParseExistingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	existing := &Config{
		GeminiAPIKey:   "secret",
		RequestTimeout: 30,
		Database:       filepath.Join(dir, "conversations.db"),
		DownloadDir:    dir,
		User: &UserConfig{
			ID:          "u1",
			DisplayName: "Ada",
			Provider:    "google",
		},
	}
	bytes, err := json.Marshal(existing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bytes, 0644))

	config, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", config.GeminiAPIKey)
	assert.Equal(t, 30, config.RequestTimeout)
	assert.Equal(t, existing.Database, config.Database)
	require.NotNil(t, config.User)
	assert.Equal(t, "Ada", config.User.DisplayName)
	// An absent models section falls back to the defaults.
	require.NotNil(t, config.Models)
	assert.Equal(t, defaultConfig.Models.Chat, config.Models.Chat)
}
