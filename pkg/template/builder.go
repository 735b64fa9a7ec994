package template

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Bibi40k/azure-vm-bootstrap/internal/utils"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/image"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

// Builder turns a NodeSpec and its resolved image into a Request.
type Builder struct {
	newID func() string
}

// NewBuilder returns a Builder that assigns random UUIDs as request ids.
func NewBuilder() *Builder {
	return &Builder{newID: uuid.NewString}
}

// Build validates the authentication and exposure settings of spec and
// returns the request. size may be empty.
func (b *Builder) Build(spec node.NodeSpec, resolved image.Resolved, size string) (Request, error) {
	ref := spec.Ref
	if resolved.IsZero() {
		return Request{}, node.Missing(ref, node.KeyImageName, "resolved image")
	}
	if spec.LoginUser == "" {
		return Request{}, node.Missing(ref, node.KeySSHUser, "login user")
	}
	if spec.LoginPassword == "" {
		return Request{}, node.Missing(ref, node.KeySSHPassword, "login password")
	}

	ports, err := ParseInboundPorts(ref, spec.InboundPorts)
	if err != nil {
		return Request{}, err
	}

	var sshKey string
	if spec.SSHPublicKey != "" {
		sshKey, err = utils.NormalizeSSHKey(spec.SSHPublicKey)
		if err != nil {
			return Request{}, node.Invalid(ref, node.KeySSHPublicKey, truncate(spec.SSHPublicKey, 24),
				"is not a valid authorized key")
		}
	}

	osFamily := spec.OSFamily
	if osFamily == "" {
		osFamily = node.Linux
	}

	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	return Request{
		id:            newID(),
		nodeName:      ref.Name,
		provider:      ref.Provider,
		imageID:       resolved.ID(),
		size:          size,
		osFamily:      osFamily,
		loginUser:     spec.LoginUser,
		loginPassword: spec.LoginPassword,
		sshPublicKey:  sshKey,
		inboundPorts:  ports,
	}, nil
}

// ParseInboundPorts parses a comma-separated port list. Empty tokens are
// skipped and duplicates keep their first position.
func ParseInboundPorts(ref node.Ref, raw string) ([]int, error) {
	ports := []int{}
	seen := make(map[int]bool)
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		p, err := strconv.Atoi(tok)
		if err != nil {
			return nil, node.Invalid(ref, node.KeyInboundPorts, tok, "is not a port number")
		}
		if p < 1 || p > 65535 {
			return nil, node.Invalid(ref, node.KeyInboundPorts, tok, "is out of range (1-65535)")
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		ports = append(ports, p)
	}
	return ports, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
