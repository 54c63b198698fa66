// Package config provides configuration management for the collection manager.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file loaded through godotenv.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Log: Logging level and format
//   - Paths: Original, preview and thumbnail directories, snapshot and export files
//   - Remote: OAuth refresh token, bookmark owner, retry and timeout settings
//   - Reconcile: Worker count, conflict policy, pagination, export filter, derivative bounds
//   - Storage: S3/MinIO credentials and bucket for publishing
//   - Database: Catalog database driver and connection details
//   - Server: HTTP port and API key
//
// Every key maps to an environment variable by upper-casing it and replacing
// dots with underscores, e.g. reconcile.preview.width -> RECONCILE_PREVIEW_WIDTH.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Paths.Original)
package config
