// Package mocks provides testify-based mock implementations for testing
// image resolution without a cloud connection.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Lookup is a mock for image.Lookup.
type Lookup struct {
	mock.Mock
}

func (m *Lookup) LookupManagedImage(ctx context.Context, resourceGroup, imageName string) (string, error) {
	args := m.Called(ctx, resourceGroup, imageName)
	return args.String(0), args.Error(1)
}

func (m *Lookup) LookupClassicImage(ctx context.Context, location, publisher, offer, sku, version string) (string, error) {
	args := m.Called(ctx, location, publisher, offer, sku, version)
	return args.String(0), args.Error(1)
}
