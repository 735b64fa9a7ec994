package main

import (
	"errors"
	"io/fs"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	jujuerrors "github.com/juju/errors"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

type userError struct {
	msg  string
	hint string
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Hint() string  { return e.hint }

// explain attaches a hint to err based on what failed.
func explain(err error) *userError {
	var ue *userError
	if errors.As(err, &ue) {
		return ue
	}
	out := &userError{msg: err.Error()}

	var authErr *azidentity.AuthenticationFailedError
	switch {
	case errors.As(err, &authErr):
		out.hint = "run 'az login' or set tenant_id, client_id and client_secret in the provider section"
	case errors.Is(err, fs.ErrNotExist):
		out.hint = "create the node file from configs/nodes.example.yaml or pass --config"
	case node.KindOf(err) == node.KindConfiguration:
		out.hint = "fix the node's properties in " + nodeFilePath + " or pass --set key=value"
	case node.KindOf(err) == node.KindNotFound:
		out.hint = "check the image name, resource group and location; the subscription must be able to read the image"
	case node.KindOf(err) == node.KindProvisioning:
		out.hint = "resources created before the failure are kept; inspect the resource group in the Azure portal"
	case jujuerrors.Is(err, jujuerrors.NotValid):
		out.hint = "fix the provider section of " + nodeFilePath
	case jujuerrors.Is(err, jujuerrors.NotFound):
		out.hint = "run 'azbootstrap node list' to see the defined nodes"
	}
	return out
}
