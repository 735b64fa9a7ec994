package bootstrap

import (
	"context"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/image"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/size"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/template"
)

// Provisioner creates nodes and reports their metadata.
// The real implementation is pkg/azure; tests inject a mock.
type Provisioner interface {
	// Submit creates the node described by req and returns the metadata
	// observed right after creation.
	Submit(ctx context.Context, req template.Request) (node.Metadata, error)
	// NodeMetadata queries the current metadata of a node by provider id.
	NodeMetadata(ctx context.Context, nodeID string) (node.Metadata, error)
}

// Backend bundles every capability a provisioning run needs from a cloud.
type Backend interface {
	image.Lookup
	size.Catalog
	Provisioner
}
