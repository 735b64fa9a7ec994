package api

import "github.com/Bibi40k/azure-vm-bootstrap/pkg/node"

// Response is the envelope returned by every node endpoint.
type Response struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Node      *node.Metadata `json:"node,omitempty"`
	Image     string         `json:"image,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// NodeSummary is one entry of GET /nodes.
type NodeSummary struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Status    string `json:"status"`
	PublicIP  string `json:"public_ip,omitempty"`
	Image     string `json:"image"`
	RequestID string `json:"request_id"`
}

// ListResponse is returned by GET /nodes.
type ListResponse struct {
	Success bool          `json:"success"`
	Nodes   []NodeSummary `json:"nodes"`
}
