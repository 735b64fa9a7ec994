package node

import (
	"github.com/Bibi40k/azure-vm-bootstrap/configs"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/properties"
)

// Property keys recognised in a node's configuration.
const (
	KeyImageSelectionMode = "image-selection-mode"
	KeyResourceGroup      = "resource-group"
	KeyImageName          = "image-name"
	KeyLocation           = "location"
	KeyPublisher          = "publisher"
	KeyOffer              = "offer"
	KeySKU                = "sku"
	KeyVersion            = "version"
	KeySize               = "size"
	KeySSHUser            = "ssh-user"
	KeySSHPassword        = "ssh-password"
	KeySSHPublicKey       = "ssh-public-key"
	KeyInboundPorts       = "inbound-ports"
	KeyImageIsWindows     = "image-is-windows"
)

// FromProperties reads a NodeSpec from props. Required image fields are not
// checked here; the image resolver validates them before any lookup.
func FromProperties(ref Ref, props properties.Properties) (NodeSpec, error) {
	d := configs.Defaults.Node

	mode := Mode(props.GetOr(KeyImageSelectionMode, d.ImageSelectionMode))
	if mode == "" {
		mode = Mode(d.ImageSelectionMode)
	}

	var sel ImageSelection
	switch mode {
	case ModeManaged:
		sel = ManagedImage{
			ResourceGroup: props.GetOr(KeyResourceGroup, ""),
			ImageName:     props.GetOr(KeyImageName, ""),
		}
	case ModeClassic:
		version := props.GetOr(KeyVersion, "")
		if version == "" {
			version = d.ClassicImageVersion
		}
		sel = ClassicImage{
			Location:  props.GetOr(KeyLocation, ""),
			Publisher: props.GetOr(KeyPublisher, ""),
			Offer:     props.GetOr(KeyOffer, ""),
			SKU:       props.GetOr(KeySKU, ""),
			Version:   version,
		}
	default:
		return NodeSpec{}, Invalid(ref, KeyImageSelectionMode, string(mode),
			"is not supported (use \"image\" or \"classic-vm\")")
	}

	windows, err := props.Bool(KeyImageIsWindows, false)
	if err != nil {
		v, _ := props.Get(KeyImageIsWindows)
		return NodeSpec{}, Invalid(ref, KeyImageIsWindows, v, "is not a boolean")
	}
	osFamily := Linux
	if windows {
		osFamily = Windows
	}

	return NodeSpec{
		Ref:           ref,
		Image:         sel,
		Size:          props.GetOr(KeySize, ""),
		LoginUser:     props.GetOr(KeySSHUser, ""),
		LoginPassword: props.GetOr(KeySSHPassword, ""),
		InboundPorts:  props.GetOr(KeyInboundPorts, d.InboundPorts),
		OSFamily:      osFamily,
		SSHPublicKey:  props.GetOr(KeySSHPublicKey, ""),
	}, nil
}
