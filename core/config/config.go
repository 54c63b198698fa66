package config

import (
	"path/filepath"
	"reflect"
	"strings"

	"collection-manager/core/database"
	"collection-manager/core/logger"
	"collection-manager/core/paths"
	"collection-manager/core/reconcile"
	"collection-manager/core/remote"
	"collection-manager/core/server"
	"collection-manager/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Paths holds the filesystem layout of the collection.
	Paths paths.Config `mapstructure:"paths"`
	// Remote holds configuration for the remote illustration API.
	Remote remote.Config `mapstructure:"remote"`
	// Reconcile holds configuration for reconciliation passes.
	Reconcile reconcile.Config `mapstructure:"reconcile"`
	// Storage holds configuration for the object storage mirror.
	Storage storage.Config `mapstructure:"storage"`
	// Database holds configuration for the catalog database.
	Database database.Config `mapstructure:"database"`
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := ".env"
	if path != "." && path != "" {
		envPath = filepath.Join(path, ".env")
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. PATHS_ORIGINAL -> paths.original)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Paths = config.Paths.Clean()

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
