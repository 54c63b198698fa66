package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean("./image/original"), cfg.Paths.Original)
	assert.Equal(t, "zh-cn", cfg.Remote.Language)
	assert.Equal(t, 3, cfg.Remote.MaxRetries)
	assert.Equal(t, 1500, cfg.Remote.WaitMS)
	assert.Equal(t, 1, cfg.Reconcile.Workers)
	assert.Equal(t, "largest", cfg.Reconcile.ConflictPolicy)
	assert.Equal(t, -1, cfg.Reconcile.MaxSanityLevel)
	assert.Zero(t, cfg.Reconcile.Preview.Width)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "collection", cfg.Storage.Bucket)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "public", cfg.Reconcile.Visibility)
	assert.Empty(t, cfg.Log.Output)
	assert.Equal(t, "debug", cfg.Log.FileLevel)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("REMOTE_USER_ID", "12345")
	t.Setenv("RECONCILE_WORKERS", "4")
	t.Setenv("RECONCILE_PREVIEW_WIDTH", "1600")
	t.Setenv("RECONCILE_THUMBNAIL_QUALITY", "55.5")
	t.Setenv("PATHS_ORIGINAL", `data\original`)
	t.Setenv("RECONCILE_VISIBILITY", "both")
	t.Setenv("LOG_OUTPUT", "./logs/example_{time}.log")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.Remote.UserID)
	assert.Equal(t, 4, cfg.Reconcile.Workers)
	assert.Equal(t, uint(1600), cfg.Reconcile.Preview.Width)
	assert.InDelta(t, 55.5, cfg.Reconcile.Thumbnail.Quality, 0.001)
	assert.Equal(t, filepath.Join("data", "original"), cfg.Paths.Original)
	assert.Equal(t, "both", cfg.Reconcile.Visibility)
	assert.Equal(t, "./logs/example_{time}.log", cfg.Log.Output)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_API_KEY=from-dotenv\nSTORAGE_PREFIX=site\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SERVER_API_KEY")
		os.Unsetenv("STORAGE_PREFIX")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Server.ApiKey)
	assert.Equal(t, "site", cfg.Storage.Prefix)
}

func TestBindValues(t *testing.T) {
	v := viper.New()
	bindValues(v, Config{}, "")

	assert.True(t, v.IsSet("reconcile.preview.quality"))
	assert.Equal(t, "https://app-api.pixiv.net", v.GetString("remote.api_url"))
	assert.Equal(t, "*.part,*.tmp,*.crdownload", v.GetString("paths.ignore"))
}
