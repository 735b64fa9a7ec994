// Package mocks provides testify-based mock implementations for testing
// without a real cloud connection.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/template"
)

// Backend is a mock for bootstrap.Backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) LookupManagedImage(ctx context.Context, resourceGroup, imageName string) (string, error) {
	args := m.Called(ctx, resourceGroup, imageName)
	return args.String(0), args.Error(1)
}

func (m *Backend) LookupClassicImage(ctx context.Context, location, publisher, offer, sku, version string) (string, error) {
	args := m.Called(ctx, location, publisher, offer, sku, version)
	return args.String(0), args.Error(1)
}

func (m *Backend) ListSizes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	sizes, _ := args.Get(0).([]string)
	return sizes, args.Error(1)
}

func (m *Backend) Submit(ctx context.Context, req template.Request) (node.Metadata, error) {
	args := m.Called(ctx, req)
	md, _ := args.Get(0).(node.Metadata)
	return md, args.Error(1)
}

func (m *Backend) NodeMetadata(ctx context.Context, nodeID string) (node.Metadata, error) {
	args := m.Called(ctx, nodeID)
	md, _ := args.Get(0).(node.Metadata)
	return md, args.Error(1)
}
