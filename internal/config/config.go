// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port      string `mapstructure:"PORT"`
	GinMode   string `mapstructure:"GIN_MODE"`
	ClientURL string `mapstructure:"CLIENT_URL"`

	// Local persistent cache directory for the runtime database snapshot
	// and the last sync status.
	CacheDir string `mapstructure:"CACHE_DIR"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	// Cloud replication. ChunkBudget is the maximum serialized size of one
	// chunk document in characters, chosen safely below Firestore's 1 MiB
	// document limit. MaxBatchOps bounds one remote write batch; Firestore
	// caps batches at 500 operations.
	SyncEnabled      bool          `mapstructure:"SYNC_ENABLED"`
	SyncDocID        string        `mapstructure:"SYNC_DOC_ID"`
	SyncChunkBudget  int           `mapstructure:"SYNC_CHUNK_BUDGET"`
	SyncMaxBatchOps  int           `mapstructure:"SYNC_MAX_BATCH_OPS"`
	SyncPollInterval time.Duration `mapstructure:"SYNC_POLL_INTERVAL"`

	CloudinaryCloudName    string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryUploadPreset string `mapstructure:"CLOUDINARY_UPLOAD_PRESET"`
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("CACHE_DIR", "data")
	viper.SetDefault("SYNC_ENABLED", true)
	viper.SetDefault("SYNC_DOC_ID", "atr2026")
	viper.SetDefault("SYNC_CHUNK_BUDGET", 900_000)
	viper.SetDefault("SYNC_MAX_BATCH_OPS", 450)
	viper.SetDefault("SYNC_POLL_INTERVAL", 45*time.Second)

	// Bind environment variables
	for _, key := range []string{
		"PORT", "GIN_MODE", "CLIENT_URL", "CACHE_DIR",
		"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
		"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
		"SYNC_ENABLED", "SYNC_DOC_ID", "SYNC_CHUNK_BUDGET",
		"SYNC_MAX_BATCH_OPS", "SYNC_POLL_INTERVAL",
		"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_UPLOAD_PRESET",
	} {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Validate required fields
	if cfg.SyncEnabled {
		if cfg.FirebaseProjectID == "" {
			return nil, errors.New("FIREBASE_PROJECT_ID is required when SYNC_ENABLED is true")
		}
		if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
			return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required when SYNC_ENABLED is true")
		}
	}
	if cfg.SyncChunkBudget <= 0 {
		return nil, errors.New("SYNC_CHUNK_BUDGET must be positive")
	}
	if cfg.SyncMaxBatchOps <= 0 || cfg.SyncMaxBatchOps > 500 {
		return nil, errors.New("SYNC_MAX_BATCH_OPS must be in (0, 500]")
	}
	if cfg.SyncPollInterval <= 0 {
		return nil, errors.New("SYNC_POLL_INTERVAL must be positive")
	}

	return &cfg, nil
}
