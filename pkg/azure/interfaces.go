package azure

import (
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/bootstrap"
)

// compile-time interface compliance check
var _ bootstrap.Backend = (*Client)(nil)
