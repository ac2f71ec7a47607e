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
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
storage:
  type: none
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Retrieval.TopK)
	assert.Equal(t, 1024, cfg.Retrieval.ChunkSize)
	assert.InDelta(t, 0.3, cfg.Retrieval.ChunkOverlap, 1e-9)
	assert.Equal(t, DefaultFallbackPhrases, cfg.Pipeline.FallbackPhrases)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.PersistTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, dir, cfg.Path)
}

func TestLoadConfig_FallbackPhrasesOverride(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
storage:
  type: none
pipeline:
  fallback_phrases:
    - "unable to help"
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"unable to help"}, cfg.Pipeline.FallbackPhrases)
}

func TestLoadConfig_ReleaseRequiresStrongSecret(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
database:
  driver: sqlite
storage:
  type: none
jwt:
  secret: short
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret is too short")
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "oracle"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadOverlap(t *testing.T) {
	cfg := &Config{
		Database:  DatabaseConfig{Driver: "sqlite"},
		Retrieval: RetrievalConfig{ChunkOverlap: 1},
	}
	assert.Error(t, cfg.Validate())
}
