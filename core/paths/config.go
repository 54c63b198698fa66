package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Config holds the filesystem layout of the collection.
type Config struct {
	// Original is the directory holding the downloaded original assets.
	Original string `mapstructure:"original" default:"./image/original"`
	// Preview is the directory holding preview derivatives.
	Preview string `mapstructure:"preview" default:"./image/preview"`
	// Thumbnail is the directory holding thumbnail derivatives.
	Thumbnail string `mapstructure:"thumbnail" default:"./image/thumbnail"`
	// DataFile is the persisted collection snapshot.
	DataFile string `mapstructure:"data_file" default:"./collection.json"`
	// ExportFile is the denormalized export written by the export pass.
	ExportFile string `mapstructure:"export_file" default:"./images.json"`
	// Ignore is a comma separated list of glob patterns skipped when scanning originals.
	Ignore string `mapstructure:"ignore" default:"*.part,*.tmp,*.crdownload"`
}

// Clean normalizes separators so Windows-style paths from .env files still work.
func (c Config) Clean() Config {
	return Config{
		Original:   filepath.Clean(filepath.FromSlash(toSlash(c.Original))),
		Preview:    filepath.Clean(filepath.FromSlash(toSlash(c.Preview))),
		Thumbnail:  filepath.Clean(filepath.FromSlash(toSlash(c.Thumbnail))),
		DataFile:   filepath.Clean(filepath.FromSlash(toSlash(c.DataFile))),
		ExportFile: filepath.Clean(filepath.FromSlash(toSlash(c.ExportFile))),
		Ignore:     c.Ignore,
	}
}

// IgnorePatterns splits Ignore into trimmed, non-empty patterns.
func (c Config) IgnorePatterns() []string {
	var patterns []string
	for _, p := range strings.Split(c.Ignore, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Ensure creates the three asset directories if they do not exist yet.
func (c Config) Ensure(fs afero.Fs) error {
	for _, dir := range []string{c.Original, c.Preview, c.Thumbnail} {
		if dir == "" {
			return fmt.Errorf("asset directory not configured")
		}
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
