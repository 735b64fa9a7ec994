package azure

import (
	stderrors "errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/juju/errors"
)

// isNotFound reports whether err is an ARM 404 response.
func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if stderrors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}
	return false
}

// classify maps ARM 404s to errors.NotFound and annotates everything else.
func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return errors.NewNotFound(err, errors.Errorf(format, args...).Error())
	}
	return errors.Annotatef(err, format, args...)
}
