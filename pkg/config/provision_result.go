package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

// ProvisionResult is the normalized output contract of a provisioned node,
// read back by `node show` to query fresh metadata.
type ProvisionResult struct {
	Node              string        `json:"node" yaml:"node"`
	Provider          string        `json:"provider" yaml:"provider"`
	RequestID         string        `json:"request_id" yaml:"request_id"`
	Image             string        `json:"image" yaml:"image"`
	SSHUser           string        `json:"ssh_user,omitempty" yaml:"ssh_user,omitempty"`
	SSHKeyFingerprint string        `json:"ssh_key_fingerprint,omitempty" yaml:"ssh_key_fingerprint,omitempty"`
	CreatedAt         time.Time     `json:"created_at" yaml:"created_at"`
	Metadata          node.Metadata `json:"metadata" yaml:"metadata"`
}

// Validate checks the minimum contract required to query the node again.
func (r ProvisionResult) Validate() error {
	if strings.TrimSpace(r.Node) == "" {
		return fmt.Errorf("provision result node is required")
	}
	if strings.TrimSpace(r.Metadata.ID) == "" {
		return fmt.Errorf("provision result metadata.id is required")
	}
	if strings.TrimSpace(r.Image) == "" {
		return fmt.Errorf("provision result image is required")
	}
	if fp := strings.TrimSpace(r.SSHKeyFingerprint); fp != "" {
		if !strings.HasPrefix(fp, "SHA256:") {
			return fmt.Errorf("provision result ssh_key_fingerprint must be in SHA256:... format")
		}
		if len(fp) < len("SHA256:")+8 {
			return fmt.Errorf("provision result ssh_key_fingerprint is too short")
		}
	}
	return nil
}

// LoadProvisionResult reads ProvisionResult from YAML or JSON.
func LoadProvisionResult(path string) (ProvisionResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("read provision result %s: %w", path, err)
	}

	var out ProvisionResult
	if isJSON(path) {
		err = json.Unmarshal(content, &out)
	} else {
		err = yaml.Unmarshal(content, &out)
	}
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("parse provision result %s: %w", path, err)
	}

	if err := out.Validate(); err != nil {
		return ProvisionResult{}, err
	}
	return out, nil
}

// SaveProvisionResult writes ProvisionResult to YAML or JSON based on file extension.
func SaveProvisionResult(path string, result ProvisionResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	var (
		content []byte
		err     error
	)
	if isJSON(path) {
		content, err = json.MarshalIndent(result, "", "  ")
	} else {
		content, err = yaml.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("marshal provision result %s: %w", path, err)
	}

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write provision result %s: %w", path, err)
	}
	return nil
}

// ResultPath expands the {node} placeholder of the configured result path.
func ResultPath(pattern, nodeName string) string {
	return strings.ReplaceAll(pattern, "{node}", nodeName)
}

func isJSON(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}
