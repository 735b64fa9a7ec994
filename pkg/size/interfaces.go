package size

import "context"

// Catalog lists the machine sizes a provider offers in the configured
// location.
type Catalog interface {
	ListSizes(ctx context.Context) ([]string, error)
}
