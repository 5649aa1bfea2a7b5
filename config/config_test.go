package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-ada-002", c.Provider.EmbeddingModel)
	assert.Equal(t, "gpt-4o", c.Provider.ChatModel)
	assert.Equal(t, 60*time.Second, c.Provider.Timeout)
	assert.InDelta(t, 0.7, c.Matcher.Threshold, 1e-9)
	assert.InDelta(t, 1.2, c.Matcher.CategoryBoost, 1e-9)
	assert.Equal(t, 3, c.Generation.MaxRetries)
	assert.Equal(t, "sqlite", c.Store.Driver)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, "slidesmith.yaml", `
provider:
  chat_model: gpt-4o-mini
  dimensions: 1536
  timeout: 30s
matcher:
  threshold: 0.8
store:
  driver: postgres
  dsn: postgres://file
output_dir: /tmp/out
`)
	t.Setenv("SLIDESMITH_MATCHER_CATEGORY_BOOST", "1.5")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("DATABASE_URI", "postgres://env")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.Provider.ChatModel)
	assert.Equal(t, 1536, c.Provider.Dimensions)
	assert.Equal(t, 30*time.Second, c.Provider.Timeout)
	assert.InDelta(t, 0.8, c.Matcher.Threshold, 1e-9)
	assert.InDelta(t, 1.5, c.Matcher.CategoryBoost, 1e-9)
	assert.Equal(t, "sk-fallback", c.Provider.APIKey)
	assert.Equal(t, "postgres://env", c.Store.DSN)
	assert.Equal(t, "/tmp/out", c.OutputDir)
}

func TestPrefixedEnvWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("SLIDESMITH_PROVIDER_API_KEY", "sk-prefixed")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-prefixed", c.Provider.APIKey)
}

func TestBindFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output", "", "")
	require.NoError(t, fs.Parse([]string{"--output", "decks"}))

	l := NewLoader()
	require.NoError(t, l.BindFlag("output_dir", fs.Lookup("output")))
	assert.Error(t, l.BindFlag("store.dsn", fs.Lookup("missing")))

	c, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "decks", c.OutputDir)
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
matcher:
  threshold: 2
generation:
  max_retries: 0
store:
  driver: mysql
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matcher.threshold")
	assert.Contains(t, err.Error(), "max_retries")
	assert.Contains(t, err.Error(), `"mysql"`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "SLIDESMITH_OUTPUT_DIR=from-dotenv\n")
	os.Unsetenv("SLIDESMITH_OUTPUT_DIR")
	t.Cleanup(func() { os.Unsetenv("SLIDESMITH_OUTPUT_DIR") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.OutputDir)
}
