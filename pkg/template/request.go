// Package template assembles the immutable provisioning request submitted to
// the cloud backend.
package template

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

// Request is a fully validated provisioning request. The zero value is not
// usable; build one with Builder.
type Request struct {
	id            string
	nodeName      string
	provider      string
	imageID       string
	size          string
	osFamily      node.OSFamily
	loginUser     string
	loginPassword string
	sshPublicKey  string
	inboundPorts  []int
}

// ID is the unique request id, also used as an idempotency tag.
func (r Request) ID() string { return r.id }

func (r Request) NodeName() string { return r.nodeName }

// Ref returns the node reference the request was built for.
func (r Request) Ref() node.Ref { return node.Ref{Name: r.nodeName, Provider: r.provider} }

func (r Request) ImageID() string { return r.imageID }

// Size is the requested size id, or "" for the provider default.
func (r Request) Size() string { return r.size }

func (r Request) OSFamily() node.OSFamily { return r.osFamily }

func (r Request) LoginUser() string { return r.loginUser }

func (r Request) LoginPassword() string { return r.loginPassword }

// SSHPublicKey returns the optional authorized key in canonical form.
func (r Request) SSHPublicKey() string { return r.sshPublicKey }

// InboundPorts returns a copy of the ports to open, in declaration order.
func (r Request) InboundPorts() []int { return slices.Clone(r.inboundPorts) }

// String renders the request for logs and error messages. The password is
// never included.
func (r Request) String() string {
	ports := make([]string, len(r.inboundPorts))
	for i, p := range r.inboundPorts {
		ports[i] = fmt.Sprint(p)
	}
	size := r.size
	if size == "" {
		size = "(default)"
	}
	return fmt.Sprintf("{id: %s, node: %s, image: %s, size: %s, os: %s, user: %s, password: ***, ports: [%s]}",
		r.id, r.nodeName, r.imageID, size, r.osFamily, r.loginUser, strings.Join(ports, ","))
}
