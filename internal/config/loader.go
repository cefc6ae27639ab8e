package config

import (
	"context"
)

// Loader provides configuration loading capabilities. It abstracts the source
// of configuration to allow for different implementations like files or
// environment variables.
type Loader interface {
	// Load retrieves, parses and validates the campaign configuration.
	Load(ctx context.Context) (*Campaign, error)
}
