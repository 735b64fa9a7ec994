package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

const nodeFileYAML = `provider:
  name: azure-dev
  subscription_id: ${TEST_AZ_SUB}
  location: westeurope
  resource_group: nodes
  subnet_id: /subscriptions/sub/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/vnet/subnets/default
defaults:
  ssh-user: azureuser
  ssh-password: ${TEST_AZ_PASSWORD}
  inbound-ports: "22"
nodes:
  web-01:
    resource-group: rg1
    image-name: img1
    inbound-ports: "22,443"
  db-01:
    image-selection-mode: classic-vm
    location: westeurope
    publisher: Canonical
    offer: ubuntu-24_04-lts
    sku: server
    ssh-password: lit$eral
`

func writeNodeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadNodeFile(t *testing.T) {
	t.Setenv("TEST_AZ_SUB", "sub-123")
	t.Setenv("TEST_AZ_PASSWORD", "S3cret!pass")

	f, err := LoadNodeFile(writeNodeFile(t, nodeFileYAML))
	require.NoError(t, err)

	assert.Equal(t, "sub-123", f.Provider.SubscriptionID)
	assert.Equal(t, "azure-dev", f.Provider.Name)
	assert.NoError(t, f.Provider.Validate())
	assert.Equal(t, []string{"db-01", "web-01"}, f.NodeNames())
	assert.Equal(t, node.Ref{Name: "web-01", Provider: "azure-dev"}, f.Ref("web-01"))
}

func TestNodeProperties_layering(t *testing.T) {
	t.Setenv("TEST_AZ_PASSWORD", "S3cret!pass")
	f, err := LoadNodeFile(writeNodeFile(t, nodeFileYAML))
	require.NoError(t, err)

	props, err := f.NodeProperties("web-01", map[string]string{"size": "Standard_B2s"})
	require.NoError(t, err)
	assert.Equal(t, "azureuser", props.GetOr("ssh-user", ""))
	assert.Equal(t, "S3cret!pass", props.GetOr("ssh-password", ""))
	assert.Equal(t, "22,443", props.GetOr("inbound-ports", ""))
	assert.Equal(t, "Standard_B2s", props.GetOr("size", ""))

	props, err = f.NodeProperties("db-01", map[string]string{"inbound-ports": ""})
	require.NoError(t, err)
	assert.Equal(t, "lit$eral", props.GetOr("ssh-password", ""))
	v, ok := props.Get("inbound-ports")
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestNodeProperties_unknownNode(t *testing.T) {
	f, err := LoadNodeFile(writeNodeFile(t, nodeFileYAML))
	require.NoError(t, err)

	_, err = f.NodeProperties("nope", nil)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestLoadNodeFile_errors(t *testing.T) {
	_, err := LoadNodeFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadNodeFile(writeNodeFile(t, "provider: [unclosed"))
	assert.Error(t, err)

	_, err = LoadNodeFile(writeNodeFile(t, "provider:\n  name: x\nnodes: {}\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestLoadNodeFile_defaultProviderName(t *testing.T) {
	f, err := LoadNodeFile(writeNodeFile(t, "nodes:\n  a:\n    image-name: x\n"))
	require.NoError(t, err)
	assert.Equal(t, "azure", f.Provider.Name)
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"size=Standard_B2s", "inbound-ports=22,443", "ssh-password=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"size":          "Standard_B2s",
		"inbound-ports": "22,443",
		"ssh-password":  "a=b",
		"empty":         "",
	}, got)

	for _, bad := range []string{"novalue", "=x", " =x"} {
		_, err := ParseOverrides([]string{bad})
		assert.Error(t, err, "ParseOverrides(%q)", bad)
	}
}
