// Package size checks a requested machine size against the provider catalog.
package size

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

// Validator checks sizes against a Catalog. The catalog is fetched on every
// call.
type Validator struct {
	catalog  Catalog
	observer event.Observer
}

// NewValidator returns a Validator. observer may be nil.
func NewValidator(catalog Catalog, observer event.Observer) *Validator {
	return &Validator{catalog: catalog, observer: observer}
}

// Validate returns nil when requested is empty (provider default) or is an
// exact member of the catalog.
func (v *Validator) Validate(ctx context.Context, ref node.Ref, requested string) error {
	if requested == "" {
		return nil
	}

	v.emit(event.Event{
		Type:    event.SizeLookup,
		Node:    ref.Name,
		Message: "Checking machine size",
		Fields:  map[string]string{"size": requested},
	}, ref)

	start := time.Now()
	sizes, err := v.catalog.ListSizes(ctx)
	if err != nil {
		err = fmt.Errorf("listing sizes for %s: %w", ref, err)
		v.fail(ref, requested, err)
		return err
	}

	if !slices.Contains(sizes, requested) {
		err := node.Invalid(ref, node.KeySize, requested, "is not available in the provider catalog")
		v.fail(ref, requested, err)
		return err
	}

	v.emit(event.Event{
		Type:    event.SizeValidated,
		Message: "Machine size is available",
		Fields: map[string]string{
			"size":    requested,
			"catalog": strconv.Itoa(len(sizes)),
		},
		Elapsed: time.Since(start),
	}, ref)
	return nil
}

func (v *Validator) fail(ref node.Ref, requested string, err error) {
	v.emit(event.Event{
		Type:    event.SizeFailed,
		Message: "Size validation failed",
		Fields:  map[string]string{"size": requested, "kind": node.KindOf(err)},
		Err:     err,
	}, ref)
}

func (v *Validator) emit(e event.Event, ref node.Ref) {
	e.Node = ref.Name
	e.Provider = ref.Provider
	event.Emit(v.observer, e)
}
