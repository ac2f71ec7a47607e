package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"solveit_backend/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchConfig_ReloadsFallbackPhrases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	write := func(phrase string) {
		body := "database:\n  driver: sqlite\nstorage:\n  type: none\npipeline:\n  fallback_phrases:\n    - \"" + phrase + "\"\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write("first phrase")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, dir, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// 等待 watcher 就绪
	time.Sleep(200 * time.Millisecond)
	write("second phrase")

	select {
	case cfg := <-reloaded:
		require.Equal(t, []string{"second phrase"}, cfg.Pipeline.FallbackPhrases)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
