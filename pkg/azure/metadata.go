package azure

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/juju/errors"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

// NodeMetadata queries the VM by its ARM id, following its network
// interfaces and public IPs for addresses.
func (c *Client) NodeMetadata(ctx context.Context, nodeID string) (node.Metadata, error) {
	rid, err := arm.ParseResourceID(nodeID)
	if err != nil {
		return node.Metadata{}, errors.NewNotValid(err, "virtual machine id "+nodeID)
	}

	resp, err := c.vms.Get(ctx, rid.ResourceGroupName, rid.Name, &armcompute.VirtualMachinesClientGetOptions{
		Expand: to.Ptr(armcompute.InstanceViewTypesInstanceView),
	})
	if err != nil {
		return node.Metadata{}, classify(err, "virtual machine %s", rid.Name)
	}
	md := vmMetadata(resp.VirtualMachine)

	if resp.Properties == nil || resp.Properties.NetworkProfile == nil {
		return md, nil
	}
	for _, ref := range resp.Properties.NetworkProfile.NetworkInterfaces {
		if ref == nil || ref.ID == nil {
			continue
		}
		public, private, err := c.interfaceAddresses(ctx, *ref.ID)
		if err != nil {
			return node.Metadata{}, err
		}
		md.PublicAddresses = append(md.PublicAddresses, public...)
		md.PrivateAddresses = append(md.PrivateAddresses, private...)
	}
	return md, nil
}

func (c *Client) interfaceAddresses(ctx context.Context, nicID string) (public, private []string, err error) {
	rid, err := arm.ParseResourceID(nicID)
	if err != nil {
		return nil, nil, errors.NewNotValid(err, "network interface id "+nicID)
	}
	nic, err := c.nics.Get(ctx, rid.ResourceGroupName, rid.Name, nil)
	if err != nil {
		return nil, nil, classify(err, "network interface %s", rid.Name)
	}
	private = privateAddresses(nic.Interface)

	if nic.Properties == nil {
		return nil, private, nil
	}
	for _, cfg := range nic.Properties.IPConfigurations {
		if cfg == nil || cfg.Properties == nil || cfg.Properties.PublicIPAddress == nil || cfg.Properties.PublicIPAddress.ID == nil {
			continue
		}
		pipID, err := arm.ParseResourceID(*cfg.Properties.PublicIPAddress.ID)
		if err != nil {
			return nil, nil, errors.NewNotValid(err, "public IP id "+*cfg.Properties.PublicIPAddress.ID)
		}
		pip, err := c.publicIPs.Get(ctx, pipID.ResourceGroupName, pipID.Name, nil)
		if err != nil {
			return nil, nil, classify(err, "public IP %s", pipID.Name)
		}
		if ip := publicIPAddress(pip.PublicIPAddress); ip != "" {
			public = append(public, ip)
		}
	}
	return public, private, nil
}

// vmMetadata copies the fields of vm that do not require further queries.
func vmMetadata(vm armcompute.VirtualMachine) node.Metadata {
	md := node.Metadata{
		ID:       toValue(vm.ID),
		Name:     toValue(vm.Name),
		Location: toValue(vm.Location),
	}
	if len(vm.Tags) > 0 {
		md.Tags = make(map[string]string, len(vm.Tags))
		for k, v := range vm.Tags {
			md.Tags[k] = toValue(v)
		}
	}
	props := vm.Properties
	if props == nil {
		return md
	}
	if props.HardwareProfile != nil && props.HardwareProfile.VMSize != nil {
		md.Size = string(*props.HardwareProfile.VMSize)
	}
	if props.StorageProfile != nil && props.StorageProfile.ImageReference != nil {
		md.ImageID = imageID(props.StorageProfile.ImageReference)
	}
	md.Status = vmStatus(props)
	return md
}

func imageID(ref *armcompute.ImageReference) string {
	if ref.ID != nil {
		return *ref.ID
	}
	if ref.Publisher == nil {
		return ""
	}
	version := toValue(ref.ExactVersion)
	if version == "" {
		version = toValue(ref.Version)
	}
	return strings.Join([]string{*ref.Publisher, toValue(ref.Offer), toValue(ref.SKU), version}, ":")
}

// vmStatus prefers the power state from the instance view and falls back
// to the provisioning state.
func vmStatus(props *armcompute.VirtualMachineProperties) string {
	if props.InstanceView != nil {
		for _, s := range props.InstanceView.Statuses {
			if s == nil {
				continue
			}
			code := toValue(s.Code)
			if after, ok := strings.CutPrefix(code, "PowerState/"); ok {
				return after
			}
		}
	}
	return strings.ToLower(toValue(props.ProvisioningState))
}
