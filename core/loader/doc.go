// Package loader registers the HTTP features served by the start command.
//
// Each feature implements the Feature interface:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager loads enabled features in registration order and stops at the
// first one that fails to load.
package loader
