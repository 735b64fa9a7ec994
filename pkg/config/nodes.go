// Package config loads node definition files and reads and writes
// provisioning results.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/azure"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/properties"
)

// NodeFile is the on-disk definition of one provider and its nodes.
//
//	provider:
//	  name: azure-dev
//	  subscription_id: ${AZURE_SUBSCRIPTION_ID}
//	defaults:
//	  ssh-user: azureuser
//	nodes:
//	  web-01:
//	    resource-group: rg1
//	    image-name: img1
type NodeFile struct {
	Provider azure.Config                 `yaml:"provider"`
	Defaults map[string]string            `yaml:"defaults"`
	Nodes    map[string]map[string]string `yaml:"nodes"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} references with environment values. A lone
// "$" is kept, so passwords may contain it.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// LoadNodeFile reads and validates a node file. String values undergo
// ${ENV} expansion after parsing.
func LoadNodeFile(path string) (*NodeFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node file %s: %w", path, err)
	}
	var f NodeFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse node file %s: %w", path, err)
	}
	f.expand()
	if f.Provider.Name == "" {
		f.Provider.Name = "azure"
	}
	if len(f.Nodes) == 0 {
		return nil, errors.NewNotValid(nil, fmt.Sprintf("node file %s defines no nodes", path))
	}
	return &f, nil
}

func (f *NodeFile) expand() {
	p := &f.Provider
	for _, s := range []*string{
		&p.Name, &p.Cloud, &p.SubscriptionID, &p.TenantID, &p.ClientID, &p.ClientSecret,
		&p.Location, &p.ResourceGroup, &p.SubnetID, &p.DefaultSize,
	} {
		*s = expandEnv(*s)
	}
	for k, v := range f.Defaults {
		f.Defaults[k] = expandEnv(v)
	}
	for _, props := range f.Nodes {
		for k, v := range props {
			props[k] = expandEnv(v)
		}
	}
}

// NodeNames returns the defined node names in sorted order.
func (f *NodeFile) NodeNames() []string {
	names := make([]string, 0, len(f.Nodes))
	for name := range f.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ref returns the reference of a node in this file's provider.
func (f *NodeFile) Ref(name string) node.Ref {
	return node.Ref{Name: name, Provider: f.Provider.Name}
}

// NodeProperties layers file defaults, the node's own properties and
// overrides, later layers winning.
func (f *NodeFile) NodeProperties(name string, overrides map[string]string) (properties.Properties, error) {
	own, ok := f.Nodes[name]
	if !ok {
		return properties.Properties{}, errors.NotFoundf("node %q in provider %q", name, f.Provider.Name)
	}
	return properties.New(f.Defaults).With(own).With(overrides), nil
}

// ParseOverrides parses key=value pairs as given to --set.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.NewNotValid(nil, fmt.Sprintf("override %q must be key=value", pair))
		}
		out[k] = v
	}
	return out, nil
}
