// Package configs provides library defaults loaded from an embedded YAML file.
// All hardcoded values live in defaults.yaml.
package configs

import (
	_ "embed"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults holds all library default values (loaded from defaults.yaml at startup).
var Defaults LibDefaults

func init() {
	if err := yaml.Unmarshal(defaultsYAML, &Defaults); err != nil {
		panic("azure-vm-bootstrap: invalid defaults.yaml: " + err.Error())
	}
}

// LibDefaults holds all configurable library defaults.
type LibDefaults struct {
	Node     NodeDefaults    `yaml:"node"`
	Azure    AzureDefaults   `yaml:"azure"`
	API      APIDefaults     `yaml:"api"`
	Output   OutputDefaults  `yaml:"output"`
	Timeouts TimeoutDefaults `yaml:"timeouts"`
}

// NodeDefaults holds defaults for node properties that may be omitted.
type NodeDefaults struct {
	ImageSelectionMode  string `yaml:"image_selection_mode"`
	ClassicImageVersion string `yaml:"classic_image_version"`
	InboundPorts        string `yaml:"inbound_ports"`
}

// AzureDefaults holds Azure Resource Manager provisioning defaults.
type AzureDefaults struct {
	Cloud                  string `yaml:"cloud"`
	DefaultSize            string `yaml:"default_size"`
	OSDiskType             string `yaml:"os_disk_type"`
	NSGBasePriority        int32  `yaml:"nsg_base_priority"`
	NSGSuffix              string `yaml:"nsg_suffix"`
	PublicIPSuffix         string `yaml:"public_ip_suffix"`
	NICSuffix              string `yaml:"nic_suffix"`
	LinuxSSHKeyPath        string `yaml:"linux_ssh_key_path"`
	WindowsComputerNameMax int    `yaml:"windows_computer_name_max"`
	TagPrefix              string `yaml:"tag_prefix"`
}

// APIDefaults holds HTTP API defaults.
type APIDefaults struct {
	Listen      string `yaml:"listen"`
	ServiceName string `yaml:"service_name"`
}

// OutputDefaults holds CLI output defaults.
type OutputDefaults struct {
	Enable              bool   `yaml:"enable"`
	ProvisionResultPath string `yaml:"provision_result_path"`
}

// TimeoutDefaults holds caller-side timeouts. The provisioning core itself
// defines none; the CLI and API bound their contexts with these.
type TimeoutDefaults struct {
	ProvisionMinutes int `yaml:"provision_minutes"`
	MetadataSeconds  int `yaml:"metadata_seconds"`
	CatalogSeconds   int `yaml:"catalog_seconds"`
}

// As time.Duration convenience methods.

func (t TimeoutDefaults) Provision() time.Duration {
	return time.Duration(t.ProvisionMinutes) * time.Minute
}
func (t TimeoutDefaults) Metadata() time.Duration {
	return time.Duration(t.MetadataSeconds) * time.Second
}
func (t TimeoutDefaults) Catalog() time.Duration {
	return time.Duration(t.CatalogSeconds) * time.Second
}
