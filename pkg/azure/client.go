// Package azure implements image lookup, size catalog and node provisioning
// on Azure Resource Manager.
package azure

import (
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/juju/errors"

	"github.com/Bibi40k/azure-vm-bootstrap/configs"
)

// Config holds the Azure connection and placement settings of one provider.
type Config struct {
	// Name is the provider name used in messages and node references.
	Name string `yaml:"name" json:"name"`
	// Cloud is one of public, china or usgovernment.
	Cloud          string `yaml:"cloud" json:"cloud"`
	SubscriptionID string `yaml:"subscription_id" json:"subscription_id"`
	TenantID       string `yaml:"tenant_id" json:"tenant_id"`
	ClientID       string `yaml:"client_id" json:"client_id"`
	// ClientSecret selects client secret auth; empty uses the default
	// credential chain (environment, managed identity, Azure CLI).
	ClientSecret string `yaml:"client_secret" json:"-"`
	// Location is the region for new resources and the size catalog.
	Location      string `yaml:"location" json:"location"`
	ResourceGroup string `yaml:"resource_group" json:"resource_group"`
	// SubnetID is the full ARM id of an existing subnet for new NICs.
	SubnetID    string `yaml:"subnet_id" json:"subnet_id"`
	DefaultSize string `yaml:"default_size" json:"default_size"`
}

// SetDefaults fills empty fields from configs.Defaults.
func (c *Config) SetDefaults() {
	if c.Cloud == "" {
		c.Cloud = configs.Defaults.Azure.Cloud
	}
	if c.DefaultSize == "" {
		c.DefaultSize = configs.Defaults.Azure.DefaultSize
	}
}

// Validate checks that every field needed for provisioning is set.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"subscription_id", c.SubscriptionID},
		{"location", c.Location},
		{"resource_group", c.ResourceGroup},
		{"subnet_id", c.SubnetID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.NewNotValid(nil, fmt.Sprintf("azure provider %q: %s is required", c.Name, r.name))
		}
	}
	if c.ClientSecret != "" && (c.TenantID == "" || c.ClientID == "") {
		return errors.NewNotValid(nil, fmt.Sprintf("azure provider %q: client_secret needs tenant_id and client_id", c.Name))
	}
	if _, err := cloudConfig(c.Cloud); err != nil {
		return err
	}
	if _, err := arm.ParseResourceID(c.SubnetID); err != nil {
		return errors.NewNotValid(err, fmt.Sprintf("azure provider %q: subnet_id %q", c.Name, c.SubnetID))
	}
	return nil
}

func cloudConfig(name string) (cloud.Configuration, error) {
	switch strings.ToLower(name) {
	case "", "public", "azurepublic":
		return cloud.AzurePublic, nil
	case "china", "azurechina":
		return cloud.AzureChina, nil
	case "usgovernment", "azuregovernment":
		return cloud.AzureGovernment, nil
	}
	return cloud.Configuration{}, errors.NotValidf("azure cloud %q", name)
}

// Options customise client construction. The zero value builds a production
// client.
type Options struct {
	// Credential overrides the credential built from Config.
	Credential azcore.TokenCredential
	// Transport overrides the HTTP transport of every ARM client.
	Transport policy.Transporter
	// PollFrequency bounds long-running operation polling (default 5s).
	PollFrequency time.Duration
	// MaxRetries is passed to the ARM retry policy; negative disables retries.
	MaxRetries int32
}

// Client talks to Azure Resource Manager on behalf of one provider config.
type Client struct {
	cfg           Config
	pollFrequency time.Duration

	images    *armcompute.ImagesClient
	vmImages  *armcompute.VirtualMachineImagesClient
	sizes     *armcompute.VirtualMachineSizesClient
	vms       *armcompute.VirtualMachinesClient
	groups    *armresources.ResourceGroupsClient
	nsgs      *armnetwork.SecurityGroupsClient
	publicIPs *armnetwork.PublicIPAddressesClient
	nics      *armnetwork.InterfacesClient
}

// NewClient validates cfg and builds the ARM clients. No request is sent.
func NewClient(cfg Config, opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cloudCfg, err := cloudConfig(cfg.Cloud)
	if err != nil {
		return nil, err
	}

	clientOpts := policy.ClientOptions{Cloud: cloudCfg}
	if opts.Transport != nil {
		clientOpts.Transport = opts.Transport
	}
	if opts.MaxRetries != 0 {
		clientOpts.Retry.MaxRetries = opts.MaxRetries
	}

	cred := opts.Credential
	if cred == nil {
		cred, err = newCredential(cfg, clientOpts)
		if err != nil {
			return nil, err
		}
	}

	armOpts := &arm.ClientOptions{ClientOptions: clientOpts}
	c := &Client{cfg: cfg, pollFrequency: opts.PollFrequency}
	if c.pollFrequency <= 0 {
		c.pollFrequency = 5 * time.Second
	}

	sub := cfg.SubscriptionID
	if c.images, err = armcompute.NewImagesClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating images client")
	}
	if c.vmImages, err = armcompute.NewVirtualMachineImagesClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating virtual machine images client")
	}
	if c.sizes, err = armcompute.NewVirtualMachineSizesClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating virtual machine sizes client")
	}
	if c.vms, err = armcompute.NewVirtualMachinesClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating virtual machines client")
	}
	if c.groups, err = armresources.NewResourceGroupsClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating resource groups client")
	}
	if c.nsgs, err = armnetwork.NewSecurityGroupsClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating network security groups client")
	}
	if c.publicIPs, err = armnetwork.NewPublicIPAddressesClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating public IP addresses client")
	}
	if c.nics, err = armnetwork.NewInterfacesClient(sub, cred, armOpts); err != nil {
		return nil, errors.Annotate(err, "creating network interfaces client")
	}
	return c, nil
}

// Config returns the effective provider configuration.
func (c *Client) Config() Config { return c.cfg }

func newCredential(cfg Config, clientOpts policy.ClientOptions) (azcore.TokenCredential, error) {
	if cfg.ClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: clientOpts})
		if err != nil {
			return nil, fmt.Errorf("client secret credential: %w", err)
		}
		return cred, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: clientOpts,
		TenantID:      cfg.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("default azure credential: %w", err)
	}
	return cred, nil
}
