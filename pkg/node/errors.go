package node

import (
	"fmt"

	"github.com/juju/errors"
)

// ConfigurationError reports a missing or invalid configuration value. It is
// always detected before any remote call and is never retried.
type ConfigurationError struct {
	Ref    Ref
	Field  string // property key
	Value  string // offending value, empty for missing fields
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid configuration for %s: %s %q %s", e.Ref, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s %s", e.Ref, e.Field, e.Reason)
}

// Is classifies the error as errors.NotValid.
func (e *ConfigurationError) Is(target error) bool {
	return target == errors.NotValid
}

// Missing returns a ConfigurationError for an empty required field.
func Missing(ref Ref, field, what string) *ConfigurationError {
	return &ConfigurationError{
		Ref:    ref,
		Field:  field,
		Reason: fmt.Sprintf("(%s) was not provided", what),
	}
}

// Invalid returns a ConfigurationError for a value that failed validation.
func Invalid(ref Ref, field, value, reason string) *ConfigurationError {
	return &ConfigurationError{Ref: ref, Field: field, Value: value, Reason: reason}
}

// ResourceNotFoundError reports that a referenced image does not exist.
type ResourceNotFoundError struct {
	Ref      Ref
	Kind     string // "managed image" or "classic image"
	Criteria Criteria
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s not found for %s: %s", e.Kind, e.Ref, e.Criteria)
}

// Is classifies the error as errors.NotFound.
func (e *ResourceNotFoundError) Is(target error) bool {
	return target == errors.NotFound
}

// ProvisioningError reports that the backend rejected or failed a request.
type ProvisioningError struct {
	Ref Ref
	// Request is a rendering of the submitted request (password redacted).
	Request string
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("unable to create %s from request %s: %v", e.Ref, e.Request, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Error kinds returned by KindOf.
const (
	KindConfiguration = "configuration"
	KindNotFound      = "not_found"
	KindProvisioning  = "provisioning"
	KindUnknown       = "unknown"
)

// KindOf classifies err into one of the Kind constants.
func KindOf(err error) string {
	var (
		cfgErr  *ConfigurationError
		nfErr   *ResourceNotFoundError
		provErr *ProvisioningError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &nfErr):
		return KindNotFound
	case errors.As(err, &provErr):
		return KindProvisioning
	}
	return KindUnknown
}
