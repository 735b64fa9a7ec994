// Package node defines the declarative description of a node to provision,
// its image selection variants, the metadata returned by a backend and the
// error taxonomy shared by the provisioning packages.
package node

import (
	"fmt"
	"strings"
)

// Ref identifies a node within a cloud provider configuration. It is carried
// by every error so failures can be traced back to the configuration entry.
type Ref struct {
	Name     string
	Provider string
}

func (r Ref) String() string {
	if r.Provider == "" {
		return fmt.Sprintf("node %q", r.Name)
	}
	return fmt.Sprintf("node %q in cloud provider %q", r.Name, r.Provider)
}

// Mode is the image-selection-mode property value.
type Mode string

const (
	// ModeManaged selects a managed image by resource group and name.
	ModeManaged Mode = "image"
	// ModeClassic selects a marketplace image by publisher/offer/sku/version.
	ModeClassic Mode = "classic-vm"
)

// Criterion is one named lookup input.
type Criterion struct {
	Key   string
	Value string
}

// Criteria is an ordered list of lookup inputs.
type Criteria []Criterion

// Get returns the value of key, or "".
func (c Criteria) Get(key string) string {
	for _, cr := range c {
		if cr.Key == key {
			return cr.Value
		}
	}
	return ""
}

// Map returns the criteria as a map.
func (c Criteria) Map() map[string]string {
	m := make(map[string]string, len(c))
	for _, cr := range c {
		m[cr.Key] = cr.Value
	}
	return m
}

func (c Criteria) String() string {
	parts := make([]string, 0, len(c))
	for _, cr := range c {
		parts = append(parts, fmt.Sprintf("%s: %q", cr.Key, cr.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ImageSelection is either a ManagedImage or a ClassicImage.
type ImageSelection interface {
	Mode() Mode
	// Criteria lists every lookup input in a stable order.
	Criteria() Criteria
	// Validate reports the first empty required field.
	Validate(ref Ref) error
	imageSelection()
}

// ManagedImage addresses a pre-registered image by resource group and name.
type ManagedImage struct {
	ResourceGroup string
	ImageName     string
}

func (ManagedImage) imageSelection() {}

// Mode implements ImageSelection.
func (ManagedImage) Mode() Mode { return ModeManaged }

// Criteria implements ImageSelection.
func (m ManagedImage) Criteria() Criteria {
	return Criteria{
		{Key: "resourceGroup", Value: m.ResourceGroup},
		{Key: "imageName", Value: m.ImageName},
	}
}

// Validate implements ImageSelection.
func (m ManagedImage) Validate(ref Ref) error {
	switch {
	case m.ResourceGroup == "":
		return Missing(ref, KeyResourceGroup, "managed image resource group")
	case m.ImageName == "":
		return Missing(ref, KeyImageName, "managed image name")
	}
	return nil
}

// ClassicImage addresses a marketplace image. Version "latest" is resolved by
// the backend at lookup time and is therefore not reproducible across runs.
type ClassicImage struct {
	Location  string
	Publisher string
	Offer     string
	SKU       string
	Version   string
}

func (ClassicImage) imageSelection() {}

// Mode implements ImageSelection.
func (ClassicImage) Mode() Mode { return ModeClassic }

// Criteria implements ImageSelection.
func (c ClassicImage) Criteria() Criteria {
	return Criteria{
		{Key: "location", Value: c.Location},
		{Key: "publisher", Value: c.Publisher},
		{Key: "offer", Value: c.Offer},
		{Key: "sku", Value: c.SKU},
		{Key: "version", Value: c.Version},
	}
}

// Validate implements ImageSelection.
func (c ClassicImage) Validate(ref Ref) error {
	switch {
	case c.Location == "":
		return Missing(ref, KeyLocation, "classic image location")
	case c.Publisher == "":
		return Missing(ref, KeyPublisher, "classic image publisher")
	case c.Offer == "":
		return Missing(ref, KeyOffer, "classic image offer")
	case c.SKU == "":
		return Missing(ref, KeySKU, "classic image sku")
	}
	return nil
}

// URN renders the image as publisher:offer:sku:version.
func (c ClassicImage) URN() string {
	return fmt.Sprintf("%s:%s:%s:%s", c.Publisher, c.Offer, c.SKU, c.Version)
}

// OSFamily selects the guest operating system family.
type OSFamily string

const (
	Linux   OSFamily = "linux"
	Windows OSFamily = "windows"
)

// NodeSpec is the declarative, per-node provisioning input.
type NodeSpec struct {
	Ref
	Image ImageSelection
	// Size is the requested hardware size id; empty lets the backend choose.
	Size          string
	LoginUser     string
	LoginPassword string
	// InboundPorts is the raw comma-separated port list.
	InboundPorts string
	OSFamily     OSFamily
	// SSHPublicKey is an optional authorized_keys line for Linux nodes.
	SSHPublicKey string
}

// Metadata is the provider-reported state of a created node.
type Metadata struct {
	ID               string            `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	Status           string            `json:"status" yaml:"status"`
	Location         string            `json:"location,omitempty" yaml:"location,omitempty"`
	Size             string            `json:"size,omitempty" yaml:"size,omitempty"`
	ImageID          string            `json:"image_id,omitempty" yaml:"image_id,omitempty"`
	PublicAddresses  []string          `json:"public_addresses,omitempty" yaml:"public_addresses,omitempty"`
	PrivateAddresses []string          `json:"private_addresses,omitempty" yaml:"private_addresses,omitempty"`
	Tags             map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// PublicAddress returns the first public address, or "".
func (m Metadata) PublicAddress() string {
	if len(m.PublicAddresses) == 0 {
		return ""
	}
	return m.PublicAddresses[0]
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	if m.PublicAddresses != nil {
		out.PublicAddresses = append([]string(nil), m.PublicAddresses...)
	}
	if m.PrivateAddresses != nil {
		out.PrivateAddresses = append([]string(nil), m.PrivateAddresses...)
	}
	if m.Tags != nil {
		out.Tags = make(map[string]string, len(m.Tags))
		for k, v := range m.Tags {
			out.Tags[k] = v
		}
	}
	return out
}
