// Package mocks provides a testify mock of size.Catalog.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Catalog is a mock for size.Catalog.
type Catalog struct {
	mock.Mock
}

func (m *Catalog) ListSizes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	sizes, _ := args.Get(0).([]string)
	return sizes, args.Error(1)
}
