package reconcile

import "collection-manager/core/derivative"

// Config holds configuration for reconciliation passes.
type Config struct {
	// Workers bounds concurrent downloads and derivative generation.
	Workers int `mapstructure:"workers" default:"1"`
	// ConflictPolicy selects the resolver for name conflicts (largest, first, interactive).
	ConflictPolicy string `mapstructure:"conflict_policy" default:"largest"`
	// Visibility selects the bookmark listing: public, private or both.
	Visibility string `mapstructure:"visibility" default:"public"`
	// MaxPages bounds bookmark pagination.
	MaxPages int `mapstructure:"max_pages" default:"1"`
	// MaxSanityLevel filters the export; -1 disables the filter.
	MaxSanityLevel int `mapstructure:"max_sanity_level" default:"-1"`
	// Preview bounds preview derivatives. Zero values fall back to 2000x2000 at quality 80.
	Preview derivative.Options `mapstructure:"preview"`
	// Thumbnail bounds thumbnail derivatives. Zero values fall back to 500x1000 at quality 70.
	Thumbnail derivative.Options `mapstructure:"thumbnail"`
}
