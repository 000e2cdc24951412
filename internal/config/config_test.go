package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SYNC_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "data", cfg.CacheDir)
	require.Equal(t, "atr2026", cfg.SyncDocID)
	require.Equal(t, 900_000, cfg.SyncChunkBudget)
	require.Equal(t, 450, cfg.SyncMaxBatchOps)
	require.Equal(t, 45*time.Second, cfg.SyncPollInterval)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SYNC_ENABLED", "false")
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_CHUNK_BUDGET", "500000")
	t.Setenv("SYNC_POLL_INTERVAL", "2m")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 500_000, cfg.SyncChunkBudget)
	require.Equal(t, 2*time.Minute, cfg.SyncPollInterval)
	require.Equal(t, "demo", cfg.CloudinaryCloudName)
}

func TestLoadConfig_SyncRequiresCredentials(t *testing.T) {
	t.Setenv("SYNC_ENABLED", "true")
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "FIREBASE_PROJECT_ID")

	t.Setenv("FIREBASE_PROJECT_ID", "atr2026-demo")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "GOOGLE_APPLICATION_CREDENTIALS")

	t.Setenv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "e30=")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "atr2026-demo", cfg.FirebaseProjectID)
}

func TestLoadConfig_ValidatesSyncBounds(t *testing.T) {
	t.Setenv("SYNC_ENABLED", "false")

	t.Setenv("SYNC_MAX_BATCH_OPS", "501")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "SYNC_MAX_BATCH_OPS")
	t.Setenv("SYNC_MAX_BATCH_OPS", "450")

	t.Setenv("SYNC_CHUNK_BUDGET", "0")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "SYNC_CHUNK_BUDGET")
}
