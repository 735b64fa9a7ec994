package azure

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/image"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/image/mocks"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/template"
)

const (
	rgPath  = "/subscriptions/sub/resourcegroups/nodes"
	vmID    = "/subscriptions/sub/resourceGroups/nodes/providers/Microsoft.Compute/virtualMachines/web-01"
	nicID   = "/subscriptions/sub/resourceGroups/nodes/providers/Microsoft.Network/networkInterfaces/web-01-nic"
	pipID   = "/subscriptions/sub/resourceGroups/nodes/providers/Microsoft.Network/publicIPAddresses/web-01-ip"
	nsgID   = "/subscriptions/sub/resourceGroups/nodes/providers/Microsoft.Network/networkSecurityGroups/web-01-nsg"
	imgPath = "/subscriptions/sub/providers/microsoft.compute/locations/westeurope/publishers/canonical/artifacttypes/vmimage/offers/ubuntu/skus/server/versions"
)

// fakeCredential satisfies azcore.TokenCredential without contacting Entra ID.
type fakeCredential struct{}

func (fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

type route struct {
	method string
	suffix string // lower-case URL path suffix
	status int
	body   string
}

// fakeTransport answers ARM requests from a route table and records what
// was sent. Unmatched requests get a 404.
type fakeTransport struct {
	mu     sync.Mutex
	routes []route
	calls  []string
	bodies map[string]string
}

func (f *fakeTransport) on(method, suffix string, status int, body string) *fakeTransport {
	f.routes = append(f.routes, route{method, strings.ToLower(suffix), status, body})
	return f
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.ToLower(req.URL.Path)
	key := req.Method + " " + path
	f.calls = append(f.calls, key)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		if f.bodies == nil {
			f.bodies = make(map[string]string)
		}
		f.bodies[key] = string(b)
	}

	status, body := http.StatusNotFound, `{"error":{"code":"NotFound","message":"resource not found"}}`
	for _, r := range f.routes {
		if r.method == req.Method && strings.HasSuffix(path, r.suffix) {
			status, body = r.status, r.body
			break
		}
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func (f *fakeTransport) body(t *testing.T, method, suffix string) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range f.bodies {
		if strings.HasPrefix(k, method+" ") && strings.HasSuffix(k, strings.ToLower(suffix)) {
			var out map[string]any
			require.NoError(t, json.Unmarshal([]byte(v), &out))
			return out
		}
	}
	t.Fatalf("no %s request ending in %s; calls: %v", method, suffix, f.calls)
	return nil
}

func testConfig() Config {
	return Config{
		Name:           "azure-dev",
		SubscriptionID: "sub",
		Location:       "westeurope",
		ResourceGroup:  "nodes",
		SubnetID:       "/subscriptions/sub/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/vnet/subnets/default",
	}
}

func newTestClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	c, err := NewClient(testConfig(), &Options{
		Credential:    fakeCredential{},
		Transport:     ft,
		PollFrequency: time.Millisecond,
		MaxRetries:    -1,
	})
	require.NoError(t, err)
	return c
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no subscription", func(c *Config) { c.SubscriptionID = "" }, "subscription_id is required"},
		{"no location", func(c *Config) { c.Location = " " }, "location is required"},
		{"no resource group", func(c *Config) { c.ResourceGroup = "" }, "resource_group is required"},
		{"no subnet", func(c *Config) { c.SubnetID = "" }, "subnet_id is required"},
		{"bad subnet", func(c *Config) { c.SubnetID = "default" }, "subnet_id"},
		{"secret without tenant", func(c *Config) { c.ClientSecret = "s" }, "needs tenant_id"},
		{"unknown cloud", func(c *Config) { c.Cloud = "mars" }, "mars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mod(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, errors.NotValid))
		})
	}
}

func TestNewClientAppliesDefaults(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})
	assert.Equal(t, "public", c.Config().Cloud)
	assert.Equal(t, "Standard_B2s", c.Config().DefaultSize)
}

func TestLookupManagedImage(t *testing.T) {
	ft := (&fakeTransport{}).on(http.MethodGet, "/providers/microsoft.compute/images/img1", 200,
		`{"id":"/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1","name":"img1"}`)

	id, err := newTestClient(t, ft).LookupManagedImage(context.Background(), "rg1", "img1")

	require.NoError(t, err)
	assert.Equal(t, "/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1", id)
}

func TestLookupManagedImage_notFound(t *testing.T) {
	_, err := newTestClient(t, &fakeTransport{}).LookupManagedImage(context.Background(), "rg1", "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestLookupManagedImage_forbidden(t *testing.T) {
	ft := (&fakeTransport{}).on(http.MethodGet, "/images/img1", 403, `{"error":{"code":"AuthorizationFailed","message":"no"}}`)

	_, err := newTestClient(t, ft).LookupManagedImage(context.Background(), "rg1", "img1")

	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.NotFound))
	assert.Contains(t, err.Error(), "AuthorizationFailed")
}

func TestLookupClassicImage_latest(t *testing.T) {
	ft := (&fakeTransport{}).on(http.MethodGet, imgPath, 200, `[
		{"name":"1.0.9","id":"`+imgPath+`/1.0.9"},
		{"name":"1.0.10","id":"`+imgPath+`/1.0.10"},
		{"name":"0.9.99","id":"`+imgPath+`/0.9.99"}
	]`)

	id, err := newTestClient(t, ft).LookupClassicImage(context.Background(), "westeurope", "Canonical", "ubuntu", "server", "latest")

	require.NoError(t, err)
	assert.Equal(t, imgPath+"/1.0.10", id)
}

func TestLookupClassicImage_latestEmptyList(t *testing.T) {
	ft := (&fakeTransport{}).on(http.MethodGet, imgPath, 200, `[]`)

	_, err := newTestClient(t, ft).LookupClassicImage(context.Background(), "westeurope", "Canonical", "ubuntu", "server", "")

	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestLookupClassicImage_explicitVersion(t *testing.T) {
	ft := (&fakeTransport{}).on(http.MethodGet, imgPath+"/2.0.1", 200, `{"name":"2.0.1","id":"`+imgPath+`/2.0.1"}`)
	c := newTestClient(t, ft)

	id, err := c.LookupClassicImage(context.Background(), "westeurope", "Canonical", "ubuntu", "server", "2.0.1")
	require.NoError(t, err)
	assert.Equal(t, imgPath+"/2.0.1", id)

	_, err = c.LookupClassicImage(context.Background(), "westeurope", "Canonical", "ubuntu", "server", "9.9.9")
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.10", "1.0.9", 1},
		{"1.0.9", "1.0.10", -1},
		{"24.04.202409120", "24.04.202409120", 0},
		{"1.0", "1.0.0", 0},
		{"1.0.1", "1.0", 1},
		{"1.0.beta", "1.0.alpha", 1},
		{"2", "10", -1},
	}
	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestListSizes(t *testing.T) {
	ft := (&fakeTransport{}).on(http.MethodGet, "/locations/westeurope/vmsizes", 200,
		`{"value":[{"name":"Standard_B1s"},{"name":"Standard_B2s"},{}]}`)

	sizes, err := newTestClient(t, ft).ListSizes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Standard_B1s", "Standard_B2s"}, sizes)
}

func TestListSizes_error(t *testing.T) {
	ft := (&fakeTransport{}).on(http.MethodGet, "/vmsizes", 400, `{"error":{"code":"InvalidLocation","message":"bad"}}`)

	_, err := newTestClient(t, ft).ListSizes(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "westeurope")
}

func TestImageReference(t *testing.T) {
	marketplace := "/Subscriptions/sub/Providers/Microsoft.Compute/Locations/westeurope/Publishers/Canonical/ArtifactTypes/VMImage/Offers/ubuntu/Skus/server/Versions/1.0.10"
	ref := imageReference(marketplace)
	assert.Nil(t, ref.ID)
	assert.Equal(t, "Canonical", toValue(ref.Publisher))
	assert.Equal(t, "ubuntu", toValue(ref.Offer))
	assert.Equal(t, "server", toValue(ref.SKU))
	assert.Equal(t, "1.0.10", toValue(ref.Version))

	ref = imageReference("Canonical:ubuntu:server:latest")
	assert.Equal(t, "latest", toValue(ref.Version))

	managed := "/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1"
	ref = imageReference(managed)
	assert.Equal(t, managed, toValue(ref.ID))
	assert.Nil(t, ref.Publisher)
}

// buildRequest builds a request through the real resolver and builder.
func buildRequest(t *testing.T, spec node.NodeSpec, imageID, size string) template.Request {
	t.Helper()
	lookup := new(mocks.Lookup)
	lookup.On("LookupManagedImage", mock.Anything, mock.Anything, mock.Anything).Return(imageID, nil)
	resolved, err := image.NewResolver(lookup, nil).Resolve(context.Background(), spec.Ref,
		node.ManagedImage{ResourceGroup: "rg1", ImageName: "img1"})
	require.NoError(t, err)
	req, err := template.NewBuilder().Build(spec, resolved, size)
	require.NoError(t, err)
	return req
}

func submitTransport() *fakeTransport {
	return (&fakeTransport{}).
		on(http.MethodHead, rgPath, 204, ``).
		on(http.MethodPut, "/networksecuritygroups/web-01-nsg", 200,
			`{"id":"`+nsgID+`","properties":{"provisioningState":"Succeeded"}}`).
		on(http.MethodPut, "/publicipaddresses/web-01-ip", 200,
			`{"id":"`+pipID+`","properties":{"provisioningState":"Succeeded","ipAddress":"20.1.2.3"}}`).
		on(http.MethodPut, "/networkinterfaces/web-01-nic", 200,
			`{"id":"`+nicID+`","properties":{"provisioningState":"Succeeded","ipConfigurations":[{"name":"primary","properties":{"privateIPAddress":"10.0.0.4"}}]}}`).
		on(http.MethodPut, "/virtualmachines/web-01", 200,
			`{"id":"`+vmID+`","name":"web-01","location":"westeurope","tags":{"azbootstrap-node":"web-01"},
			  "properties":{"provisioningState":"Succeeded","hardwareProfile":{"vmSize":"Standard_B2s"},
			  "storageProfile":{"imageReference":{"id":"/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1"}}}}`)
}

func TestSubmit_linux(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	key := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))

	req := buildRequest(t, node.NodeSpec{
		Ref:           node.Ref{Name: "web-01", Provider: "azure-dev"},
		LoginUser:     "azureuser",
		LoginPassword: "S3cret!pass",
		InboundPorts:  "22,443",
		OSFamily:      node.Linux,
		SSHPublicKey:  key,
	}, "/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1", "")
	ft := submitTransport()

	md, err := newTestClient(t, ft).Submit(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, vmID, md.ID)
	assert.Equal(t, "web-01", md.Name)
	assert.Equal(t, "succeeded", md.Status)
	assert.Equal(t, "Standard_B2s", md.Size)
	assert.Equal(t, []string{"20.1.2.3"}, md.PublicAddresses)
	assert.Equal(t, []string{"10.0.0.4"}, md.PrivateAddresses)
	assert.Equal(t, "/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1", md.ImageID)
	assert.NotContains(t, ft.calls, "PUT "+rgPath)

	nsg := ft.body(t, http.MethodPut, "/networksecuritygroups/web-01-nsg")
	rules := nsg["properties"].(map[string]any)["securityRules"].([]any)
	require.Len(t, rules, 2)
	first := rules[0].(map[string]any)["properties"].(map[string]any)
	second := rules[1].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "22", first["destinationPortRange"])
	assert.Equal(t, float64(1000), first["priority"])
	assert.Equal(t, "443", second["destinationPortRange"])
	assert.Equal(t, float64(1001), second["priority"])
	assert.Equal(t, "Inbound", first["direction"])
	assert.Equal(t, "Tcp", first["protocol"])

	vm := ft.body(t, http.MethodPut, "/virtualmachines/web-01")
	props := vm["properties"].(map[string]any)
	assert.Equal(t, "Standard_B2s", props["hardwareProfile"].(map[string]any)["vmSize"])
	osProfile := props["osProfile"].(map[string]any)
	assert.Equal(t, "azureuser", osProfile["adminUsername"])
	assert.Equal(t, "S3cret!pass", osProfile["adminPassword"])
	linux := osProfile["linuxConfiguration"].(map[string]any)
	assert.Equal(t, false, linux["disablePasswordAuthentication"])
	keys := linux["ssh"].(map[string]any)["publicKeys"].([]any)
	require.Len(t, keys, 1)
	assert.Equal(t, "/home/azureuser/.ssh/authorized_keys", keys[0].(map[string]any)["path"])
	assert.Equal(t, key, keys[0].(map[string]any)["keyData"])
	imgRef := props["storageProfile"].(map[string]any)["imageReference"].(map[string]any)
	assert.Equal(t, "/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1", imgRef["id"])
	tags := vm["tags"].(map[string]any)
	assert.Equal(t, "web-01", tags["azbootstrap-node"])
	assert.Equal(t, req.ID(), tags["azbootstrap-request"])

	nic := ft.body(t, http.MethodPut, "/networkinterfaces/web-01-nic")
	nicProps := nic["properties"].(map[string]any)
	assert.Equal(t, nsgID, nicProps["networkSecurityGroup"].(map[string]any)["id"])
	ipCfg := nicProps["ipConfigurations"].([]any)[0].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, testConfig().SubnetID, ipCfg["subnet"].(map[string]any)["id"])
	assert.Equal(t, pipID, ipCfg["publicIPAddress"].(map[string]any)["id"])
}

func TestSubmit_windowsMarketplace(t *testing.T) {
	marketplace := "/Subscriptions/sub/Providers/Microsoft.Compute/Locations/westeurope/Publishers/MicrosoftWindowsServer/ArtifactTypes/VMImage/Offers/WindowsServer/Skus/2022-datacenter/Versions/20348.1.1"
	req := buildRequest(t, node.NodeSpec{
		Ref:           node.Ref{Name: "web-01-with-a-long-name", Provider: "azure-dev"},
		LoginUser:     "winadmin",
		LoginPassword: "S3cret!pass",
		InboundPorts:  "3389",
		OSFamily:      node.Windows,
	}, marketplace, "Standard_D4s_v5")
	ft := (&fakeTransport{}).
		on(http.MethodHead, rgPath, 404, ``).
		on(http.MethodPut, rgPath, 201, `{"id":"/subscriptions/sub/resourceGroups/nodes","name":"nodes","location":"westeurope"}`).
		on(http.MethodPut, "-nsg", 200, `{"id":"`+nsgID+`","properties":{"provisioningState":"Succeeded"}}`).
		on(http.MethodPut, "-ip", 200, `{"id":"`+pipID+`","properties":{"provisioningState":"Succeeded"}}`).
		on(http.MethodPut, "-nic", 200, `{"id":"`+nicID+`","properties":{"provisioningState":"Succeeded"}}`).
		on(http.MethodPut, "/virtualmachines/web-01-with-a-long-name", 200,
			`{"id":"`+vmID+`","name":"web-01-with-a-long-name","properties":{"provisioningState":"Succeeded"}}`)

	md, err := newTestClient(t, ft).Submit(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, marketplace, md.ImageID)
	assert.Empty(t, md.PublicAddresses)

	rg := ft.body(t, http.MethodPut, rgPath)
	assert.Equal(t, "westeurope", rg["location"])

	vm := ft.body(t, http.MethodPut, "/virtualmachines/web-01-with-a-long-name")
	props := vm["properties"].(map[string]any)
	assert.Equal(t, "Standard_D4s_v5", props["hardwareProfile"].(map[string]any)["vmSize"])
	osProfile := props["osProfile"].(map[string]any)
	assert.Equal(t, "web-01-with-a-l", osProfile["computerName"])
	assert.NotNil(t, osProfile["windowsConfiguration"])
	assert.Nil(t, osProfile["linuxConfiguration"])
	imgRef := props["storageProfile"].(map[string]any)["imageReference"].(map[string]any)
	assert.Equal(t, "MicrosoftWindowsServer", imgRef["publisher"])
	assert.Equal(t, "WindowsServer", imgRef["offer"])
	assert.Equal(t, "2022-datacenter", imgRef["sku"])
	assert.Equal(t, "20348.1.1", imgRef["version"])
	assert.Nil(t, imgRef["id"])
}

func TestSubmit_vmRejected(t *testing.T) {
	req := buildRequest(t, node.NodeSpec{
		Ref:           node.Ref{Name: "web-01", Provider: "azure-dev"},
		LoginUser:     "azureuser",
		LoginPassword: "pw",
		InboundPorts:  "22",
	}, "/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/images/img1", "")
	ft := submitTransport()
	ft.routes = append([]route{{http.MethodPut, "/virtualmachines/web-01", 400,
		`{"error":{"code":"InvalidParameter","message":"password does not meet complexity"}}`}}, ft.routes...)

	_, err := newTestClient(t, ft).Submit(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidParameter")
	assert.Contains(t, err.Error(), "web-01")
}

func TestNodeMetadata(t *testing.T) {
	ft := (&fakeTransport{}).
		on(http.MethodGet, "/virtualmachines/web-01", 200, `{"id":"`+vmID+`","name":"web-01","location":"westeurope",
			"properties":{"provisioningState":"Succeeded","hardwareProfile":{"vmSize":"Standard_B2s"},
			"storageProfile":{"imageReference":{"publisher":"Canonical","offer":"ubuntu","sku":"server","version":"latest","exactVersion":"1.0.10"}},
			"networkProfile":{"networkInterfaces":[{"id":"`+nicID+`"}]},
			"instanceView":{"statuses":[{"code":"ProvisioningState/succeeded"},{"code":"PowerState/deallocated"}]}}}`).
		on(http.MethodGet, "/networkinterfaces/web-01-nic", 200, `{"id":"`+nicID+`","properties":{"ipConfigurations":[
			{"name":"primary","properties":{"privateIPAddress":"10.0.0.4","publicIPAddress":{"id":"`+pipID+`"}}}]}}`).
		on(http.MethodGet, "/publicipaddresses/web-01-ip", 200, `{"id":"`+pipID+`","properties":{"ipAddress":"20.1.2.3"}}`)

	md, err := newTestClient(t, ft).NodeMetadata(context.Background(), vmID)

	require.NoError(t, err)
	assert.Equal(t, node.Metadata{
		ID:               vmID,
		Name:             "web-01",
		Status:           "deallocated",
		Location:         "westeurope",
		Size:             "Standard_B2s",
		ImageID:          "Canonical:ubuntu:server:1.0.10",
		PublicAddresses:  []string{"20.1.2.3"},
		PrivateAddresses: []string{"10.0.0.4"},
	}, md)
}

func TestNodeMetadata_errors(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})

	_, err := c.NodeMetadata(context.Background(), "not-an-id")
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	_, err = c.NodeMetadata(context.Background(), vmID)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}
