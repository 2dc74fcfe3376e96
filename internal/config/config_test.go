package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "config.yaml"), []byte(body), 0o644))
	return root
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "5050", c.Server.Port)
	assert.Equal(t, 30*time.Second, c.Gateway.Timeout)
	assert.Equal(t, 3, c.Interview.StartCountdown)
	assert.Equal(t, 3, c.Interview.AnswerCountdown)
	assert.Equal(t, 45, c.Interview.DefaultSuggestedSec)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, "whisper-1", c.Provider.TranscriptionModel)
}

func TestLoadFromFile(t *testing.T) {
	root := writeConfig(t, `
server:
  port: "9000"
gateway:
  url: http://gateway.internal:9000
  timeout: 5s
interview:
  answer_countdown: 5
`)
	c, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "9000", c.Server.Port)
	assert.Equal(t, "http://gateway.internal:9000", c.Gateway.URL)
	assert.Equal(t, 5*time.Second, c.Gateway.Timeout)
	assert.Equal(t, 5, c.Interview.AnswerCountdown)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	root := writeConfig(t, "server:\n  port: \"9000\"\n")
	t.Setenv("PREPAI_SERVER_PORT", "9100")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "9100", c.Server.Port)
	assert.Equal(t, "sk-test", c.Provider.APIKey)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	root := writeConfig(t, "database:\n  driver: mysql\n")
	_, err := Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	root := writeConfig(t, "server: [unterminated\n")
	_, err := Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}
