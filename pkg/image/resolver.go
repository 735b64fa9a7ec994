// Package image resolves a declarative image selection into the identifier
// assigned by the cloud provider.
package image

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
)

// Resolved is a provider-assigned image id. Only Resolver produces non-zero
// values.
type Resolved struct {
	id string
}

// ID returns the id exactly as the provider returned it.
func (r Resolved) ID() string { return r.id }

// IsZero reports whether r was never resolved.
func (r Resolved) IsZero() bool { return r.id == "" }

func (r Resolved) String() string { return r.id }

// Resolver maps an ImageSelection to a Resolved image. It holds no state
// between calls; every Resolve performs a fresh lookup.
type Resolver struct {
	lookup   Lookup
	observer event.Observer
}

// NewResolver returns a Resolver using lookup. observer may be nil.
func NewResolver(lookup Lookup, observer event.Observer) *Resolver {
	return &Resolver{lookup: lookup, observer: observer}
}

// Resolve validates sel and looks it up. Validation failures are returned as
// *node.ConfigurationError without calling the lookup; missing images as
// *node.ResourceNotFoundError.
func (r *Resolver) Resolve(ctx context.Context, ref node.Ref, sel node.ImageSelection) (Resolved, error) {
	if sel == nil {
		err := node.Missing(ref, node.KeyImageSelectionMode, "image selection")
		r.fail(ref, "", err)
		return Resolved{}, err
	}
	if err := sel.Validate(ref); err != nil {
		r.fail(ref, sel.Mode(), err)
		return Resolved{}, err
	}

	criteria := sel.Criteria()
	fields := criteria.Map()
	fields["mode"] = string(sel.Mode())
	event.Emit(r.observer, event.Event{
		Type:     event.ImageLookup,
		Node:     ref.Name,
		Provider: ref.Provider,
		Message:  "Looking up virtual machine image",
		Fields:   fields,
	})

	start := time.Now()
	var (
		id   string
		kind string
		err  error
	)
	switch s := sel.(type) {
	case node.ManagedImage:
		kind = "managed image"
		id, err = r.lookup.LookupManagedImage(ctx, s.ResourceGroup, s.ImageName)
	case node.ClassicImage:
		kind = "classic image"
		id, err = r.lookup.LookupClassicImage(ctx, s.Location, s.Publisher, s.Offer, s.SKU, s.Version)
	default:
		err = node.Invalid(ref, node.KeyImageSelectionMode, string(sel.Mode()), "is not supported")
		r.fail(ref, sel.Mode(), err)
		return Resolved{}, err
	}

	if (err == nil && id == "") || errors.Is(err, errors.NotFound) {
		nf := &node.ResourceNotFoundError{Ref: ref, Kind: kind, Criteria: criteria}
		r.fail(ref, sel.Mode(), nf)
		return Resolved{}, nf
	}
	if err != nil {
		err = fmt.Errorf("looking up %s %s for %s: %w", kind, criteria, ref, err)
		r.fail(ref, sel.Mode(), err)
		return Resolved{}, err
	}

	fields = criteria.Map()
	fields["mode"] = string(sel.Mode())
	fields["image"] = id
	event.Emit(r.observer, event.Event{
		Type:     event.ImageResolved,
		Node:     ref.Name,
		Provider: ref.Provider,
		Message:  "Found virtual machine image",
		Fields:   fields,
		Elapsed:  time.Since(start),
	})
	return Resolved{id: id}, nil
}

func (r *Resolver) fail(ref node.Ref, mode node.Mode, err error) {
	event.Emit(r.observer, event.Event{
		Type:     event.ImageFailed,
		Node:     ref.Name,
		Provider: ref.Provider,
		Message:  "Image resolution failed",
		Fields:   map[string]string{"mode": string(mode), "kind": node.KindOf(err)},
		Err:      err,
	})
}
