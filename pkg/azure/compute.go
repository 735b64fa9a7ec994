package azure

import (
	"context"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/juju/errors"

	"github.com/Bibi40k/azure-vm-bootstrap/configs"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/template"
)

// Submit creates the node's network resources and virtual machine, waits
// for the VM deployment to finish and returns its metadata. Nothing is
// retried or rolled back on failure.
func (c *Client) Submit(ctx context.Context, req template.Request) (node.Metadata, error) {
	d := configs.Defaults.Azure
	name := req.NodeName()
	tags := c.tags(req)

	if err := c.ensureResourceGroup(ctx, tags); err != nil {
		return node.Metadata{}, err
	}

	nsg, err := c.createSecurityGroup(ctx, name+d.NSGSuffix, req.InboundPorts(), tags)
	if err != nil {
		return node.Metadata{}, err
	}

	pip, err := c.createPublicIP(ctx, name+d.PublicIPSuffix, tags)
	if err != nil {
		return node.Metadata{}, err
	}

	nic, err := c.createNIC(ctx, name+d.NICSuffix, toValue(nsg.ID), toValue(pip.ID), tags)
	if err != nil {
		return node.Metadata{}, err
	}

	poller, err := c.vms.BeginCreateOrUpdate(ctx, c.cfg.ResourceGroup, name, c.virtualMachine(req, toValue(nic.ID), tags), nil)
	if err != nil {
		return node.Metadata{}, errors.Annotatef(err, "creating virtual machine %s", name)
	}
	resp, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: c.pollFrequency})
	if err != nil {
		return node.Metadata{}, errors.Annotatef(err, "waiting for virtual machine %s", name)
	}

	md := vmMetadata(resp.VirtualMachine)
	if md.ImageID == "" {
		md.ImageID = req.ImageID()
	}
	if ip := publicIPAddress(pip); ip != "" {
		md.PublicAddresses = []string{ip}
	}
	md.PrivateAddresses = privateAddresses(nic)
	return md, nil
}

func (c *Client) tags(req template.Request) map[string]*string {
	prefix := configs.Defaults.Azure.TagPrefix
	return map[string]*string{
		prefix + "-node":    to.Ptr(req.NodeName()),
		prefix + "-request": to.Ptr(req.ID()),
	}
}

func (c *Client) ensureResourceGroup(ctx context.Context, tags map[string]*string) error {
	rg := c.cfg.ResourceGroup
	exists, err := c.groups.CheckExistence(ctx, rg, nil)
	if err != nil {
		return errors.Annotatef(err, "checking resource group %s", rg)
	}
	if exists.Success {
		return nil
	}
	if _, err := c.groups.CreateOrUpdate(ctx, rg, armresources.ResourceGroup{
		Location: to.Ptr(c.cfg.Location),
		Tags:     tags,
	}, nil); err != nil {
		return errors.Annotatef(err, "creating resource group %s", rg)
	}
	return nil
}

// securityRules opens each port for inbound TCP, one rule per port with
// consecutive priorities.
func securityRules(ports []int) []*armnetwork.SecurityRule {
	base := configs.Defaults.Azure.NSGBasePriority
	rules := make([]*armnetwork.SecurityRule, 0, len(ports))
	for i, p := range ports {
		port := strconv.Itoa(p)
		rules = append(rules, &armnetwork.SecurityRule{
			Name: to.Ptr("allow-tcp-" + port),
			Properties: &armnetwork.SecurityRulePropertiesFormat{
				Protocol:                 to.Ptr(armnetwork.SecurityRuleProtocolTCP),
				SourcePortRange:          to.Ptr("*"),
				DestinationPortRange:     to.Ptr(port),
				SourceAddressPrefix:      to.Ptr("*"),
				DestinationAddressPrefix: to.Ptr("*"),
				Access:                   to.Ptr(armnetwork.SecurityRuleAccessAllow),
				Direction:                to.Ptr(armnetwork.SecurityRuleDirectionInbound),
				Priority:                 to.Ptr(base + int32(i)),
			},
		})
	}
	return rules
}

func (c *Client) createSecurityGroup(ctx context.Context, name string, ports []int, tags map[string]*string) (armnetwork.SecurityGroup, error) {
	poller, err := c.nsgs.BeginCreateOrUpdate(ctx, c.cfg.ResourceGroup, name, armnetwork.SecurityGroup{
		Location: to.Ptr(c.cfg.Location),
		Tags:     tags,
		Properties: &armnetwork.SecurityGroupPropertiesFormat{
			SecurityRules: securityRules(ports),
		},
	}, nil)
	if err != nil {
		return armnetwork.SecurityGroup{}, errors.Annotatef(err, "creating network security group %s", name)
	}
	resp, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: c.pollFrequency})
	if err != nil {
		return armnetwork.SecurityGroup{}, errors.Annotatef(err, "waiting for network security group %s", name)
	}
	return resp.SecurityGroup, nil
}

func (c *Client) createPublicIP(ctx context.Context, name string, tags map[string]*string) (armnetwork.PublicIPAddress, error) {
	poller, err := c.publicIPs.BeginCreateOrUpdate(ctx, c.cfg.ResourceGroup, name, armnetwork.PublicIPAddress{
		Location: to.Ptr(c.cfg.Location),
		Tags:     tags,
		SKU:      &armnetwork.PublicIPAddressSKU{Name: to.Ptr(armnetwork.PublicIPAddressSKUNameStandard)},
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
		},
	}, nil)
	if err != nil {
		return armnetwork.PublicIPAddress{}, errors.Annotatef(err, "creating public IP %s", name)
	}
	resp, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: c.pollFrequency})
	if err != nil {
		return armnetwork.PublicIPAddress{}, errors.Annotatef(err, "waiting for public IP %s", name)
	}
	return resp.PublicIPAddress, nil
}

func (c *Client) createNIC(ctx context.Context, name, nsgID, publicIPID string, tags map[string]*string) (armnetwork.Interface, error) {
	ipConfig := &armnetwork.InterfaceIPConfigurationPropertiesFormat{
		Subnet:                    &armnetwork.Subnet{ID: to.Ptr(c.cfg.SubnetID)},
		PrivateIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodDynamic),
	}
	if publicIPID != "" {
		ipConfig.PublicIPAddress = &armnetwork.PublicIPAddress{ID: to.Ptr(publicIPID)}
	}
	props := &armnetwork.InterfacePropertiesFormat{
		IPConfigurations: []*armnetwork.InterfaceIPConfiguration{{
			Name:       to.Ptr("primary"),
			Properties: ipConfig,
		}},
	}
	if nsgID != "" {
		props.NetworkSecurityGroup = &armnetwork.SecurityGroup{ID: to.Ptr(nsgID)}
	}

	poller, err := c.nics.BeginCreateOrUpdate(ctx, c.cfg.ResourceGroup, name, armnetwork.Interface{
		Location:   to.Ptr(c.cfg.Location),
		Tags:       tags,
		Properties: props,
	}, nil)
	if err != nil {
		return armnetwork.Interface{}, errors.Annotatef(err, "creating network interface %s", name)
	}
	resp, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: c.pollFrequency})
	if err != nil {
		return armnetwork.Interface{}, errors.Annotatef(err, "waiting for network interface %s", name)
	}
	return resp.Interface, nil
}

func (c *Client) virtualMachine(req template.Request, nicID string, tags map[string]*string) armcompute.VirtualMachine {
	d := configs.Defaults.Azure

	size := req.Size()
	if size == "" {
		size = c.cfg.DefaultSize
	}

	osProfile := &armcompute.OSProfile{
		ComputerName:  to.Ptr(req.NodeName()),
		AdminUsername: to.Ptr(req.LoginUser()),
		AdminPassword: to.Ptr(req.LoginPassword()),
	}
	switch req.OSFamily() {
	case node.Windows:
		osProfile.ComputerName = to.Ptr(truncate(req.NodeName(), d.WindowsComputerNameMax))
		osProfile.WindowsConfiguration = &armcompute.WindowsConfiguration{
			ProvisionVMAgent:       to.Ptr(true),
			EnableAutomaticUpdates: to.Ptr(true),
		}
	default:
		linux := &armcompute.LinuxConfiguration{
			DisablePasswordAuthentication: to.Ptr(false),
		}
		if key := req.SSHPublicKey(); key != "" {
			linux.SSH = &armcompute.SSHConfiguration{
				PublicKeys: []*armcompute.SSHPublicKey{{
					Path:    to.Ptr(strings.ReplaceAll(d.LinuxSSHKeyPath, "{user}", req.LoginUser())),
					KeyData: to.Ptr(key),
				}},
			}
		}
		osProfile.LinuxConfiguration = linux
	}

	return armcompute.VirtualMachine{
		Location: to.Ptr(c.cfg.Location),
		Tags:     tags,
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(size)),
			},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: imageReference(req.ImageID()),
				OSDisk: &armcompute.OSDisk{
					Name:         to.Ptr(req.NodeName() + "-osdisk"),
					CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
					ManagedDisk: &armcompute.ManagedDiskParameters{
						StorageAccountType: to.Ptr(armcompute.StorageAccountTypes(d.OSDiskType)),
					},
				},
			},
			OSProfile: osProfile,
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{{
					ID:         to.Ptr(nicID),
					Properties: &armcompute.NetworkInterfaceReferenceProperties{Primary: to.Ptr(true)},
				}},
			},
		},
	}
}

// imageReference turns a resolved image id into an ARM image reference.
// Marketplace ids and publisher:offer:sku:version URNs become platform
// image references; anything else is passed as a resource id.
func imageReference(id string) *armcompute.ImageReference {
	if ref, ok := parseMarketplaceID(id); ok {
		return ref
	}
	if parts := strings.Split(id, ":"); len(parts) == 4 && !strings.Contains(id, "/") {
		return &armcompute.ImageReference{
			Publisher: to.Ptr(parts[0]),
			Offer:     to.Ptr(parts[1]),
			SKU:       to.Ptr(parts[2]),
			Version:   to.Ptr(parts[3]),
		}
	}
	return &armcompute.ImageReference{ID: to.Ptr(id)}
}

// parseMarketplaceID parses ids of the form
// /Subscriptions/s/Providers/Microsoft.Compute/Locations/l/Publishers/p/ArtifactTypes/VMImage/Offers/o/Skus/k/Versions/v.
func parseMarketplaceID(id string) (*armcompute.ImageReference, bool) {
	segments := strings.Split(strings.Trim(id, "/"), "/")
	values := make(map[string]string)
	for i := 0; i+1 < len(segments); i += 2 {
		values[strings.ToLower(segments[i])] = segments[i+1]
	}
	pub, offer, sku, version := values["publishers"], values["offers"], values["skus"], values["versions"]
	if pub == "" || offer == "" || sku == "" || version == "" {
		return nil, false
	}
	return &armcompute.ImageReference{
		Publisher: to.Ptr(pub),
		Offer:     to.Ptr(offer),
		SKU:       to.Ptr(sku),
		Version:   to.Ptr(version),
	}, true
}

func publicIPAddress(pip armnetwork.PublicIPAddress) string {
	if pip.Properties == nil {
		return ""
	}
	return toValue(pip.Properties.IPAddress)
}

func privateAddresses(nic armnetwork.Interface) []string {
	if nic.Properties == nil {
		return nil
	}
	var out []string
	for _, cfg := range nic.Properties.IPConfigurations {
		if cfg == nil || cfg.Properties == nil || cfg.Properties.PrivateIPAddress == nil {
			continue
		}
		out = append(out, *cfg.Properties.PrivateIPAddress)
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
