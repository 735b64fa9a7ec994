package image

import "context"

// Lookup finds provider images by the two supported addressing schemes.
// Implementations report a missing image with an error satisfying
// errors.Is(err, errors.NotFound) from github.com/juju/errors.
type Lookup interface {
	LookupManagedImage(ctx context.Context, resourceGroup, imageName string) (string, error)
	LookupClassicImage(ctx context.Context, location, publisher, offer, sku, version string) (string, error)
}
