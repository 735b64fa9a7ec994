package bootstrap

import (
	"context"
	"fmt"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/template"
)

// Node is a successfully provisioned node.
type Node struct {
	ref         node.Ref
	imageID     string
	request     template.Request
	initial     node.Metadata
	provisioner Provisioner
}

// Ref identifies the node and its provider.
func (n *Node) Ref() node.Ref { return n.ref }

// InitialMetadata returns the metadata captured at submission time.
func (n *Node) InitialMetadata() node.Metadata { return n.initial.Clone() }

// FreshMetadata queries the provider for the node's current metadata.
// Nothing is cached; every call is a new query.
func (n *Node) FreshMetadata(ctx context.Context) (node.Metadata, error) {
	md, err := n.provisioner.NodeMetadata(ctx, n.initial.ID)
	if err != nil {
		return node.Metadata{}, fmt.Errorf("fetching metadata for %s: %w", n.ref, err)
	}
	return md, nil
}

// ResolvedImageName returns the provider image id the node was created from.
func (n *Node) ResolvedImageName() string { return n.imageID }

// Request returns the submitted provisioning request.
func (n *Node) Request() template.Request { return n.request }
