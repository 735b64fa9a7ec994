// Package bootstrap provides the main public API for provisioning a node:
// image resolution, size validation, request building and submission.
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/image"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/properties"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/size"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/template"
)

// bootstrapper holds injectable step factories.
// Production code uses defaultBootstrapper(); tests swap individual steps.
type bootstrapper struct {
	newResolver  func(lookup image.Lookup, obs event.Observer) *image.Resolver
	newValidator func(catalog size.Catalog, obs event.Observer) *size.Validator
	newBuilder   func() *template.Builder
}

func defaultBootstrapper() *bootstrapper {
	return &bootstrapper{
		newResolver:  image.NewResolver,
		newValidator: size.NewValidator,
		newBuilder:   template.NewBuilder,
	}
}

// ProvisionNode reads the node's spec from props and provisions it.
// observer may be nil.
func ProvisionNode(ctx context.Context, ref node.Ref, props properties.Properties, backend Backend, observer event.Observer) (*Node, error) {
	spec, err := node.FromProperties(ref, props)
	if err != nil {
		event.Emit(observer, failed(ref, err, 0))
		return nil, err
	}
	return defaultBootstrapper().run(ctx, spec, backend, observer)
}

// ProvisionNodeWithLogger is ProvisionNode with events rendered to logger.
func ProvisionNodeWithLogger(ctx context.Context, ref node.Ref, props properties.Properties, backend Backend, logger *slog.Logger) (*Node, error) {
	return ProvisionNode(ctx, ref, props, backend, event.NewSlogObserver(logger))
}

// Provision provisions a node from an already parsed spec.
func Provision(ctx context.Context, spec node.NodeSpec, backend Backend, observer event.Observer) (*Node, error) {
	return defaultBootstrapper().run(ctx, spec, backend, observer)
}

// run executes the steps strictly in order; the first failure aborts.
func (b *bootstrapper) run(ctx context.Context, spec node.NodeSpec, backend Backend, observer event.Observer) (*Node, error) {
	ref := spec.Ref
	start := time.Now()

	// STEP 1: Resolve image
	resolved, err := b.newResolver(backend, observer).Resolve(ctx, ref, spec.Image)
	if err != nil {
		event.Emit(observer, failed(ref, err, time.Since(start)))
		return nil, err
	}

	// STEP 2: Validate size (only when requested)
	if err := b.newValidator(backend, observer).Validate(ctx, ref, spec.Size); err != nil {
		event.Emit(observer, failed(ref, err, time.Since(start)))
		return nil, err
	}

	// STEP 3: Build request
	req, err := b.newBuilder().Build(spec, resolved, spec.Size)
	if err != nil {
		event.Emit(observer, failed(ref, err, time.Since(start)))
		return nil, err
	}
	event.Emit(observer, event.Event{
		Type:     event.RequestBuilt,
		Node:     ref.Name,
		Provider: ref.Provider,
		Message:  "Provisioning request built",
		Fields:   map[string]string{"request": req.String()},
	})

	// STEP 4: Submit
	event.Emit(observer, event.Event{
		Type:     event.NodeSubmitting,
		Node:     ref.Name,
		Provider: ref.Provider,
		Message:  "Creating node",
		Fields:   map[string]string{"request_id": req.ID(), "image": resolved.ID()},
	})
	md, err := backend.Submit(ctx, req)
	if err != nil {
		perr := &node.ProvisioningError{Ref: ref, Request: req.String(), Err: err}
		event.Emit(observer, failed(ref, perr, time.Since(start)))
		return nil, perr
	}

	event.Emit(observer, event.Event{
		Type:     event.NodeStarted,
		Node:     ref.Name,
		Provider: ref.Provider,
		Message:  "Started node from image",
		Fields: map[string]string{
			"image":     resolved.ID(),
			"public_ip": md.PublicAddress(),
			"id":        md.ID,
		},
		Elapsed: time.Since(start),
	})

	return &Node{
		ref:         ref,
		imageID:     resolved.ID(),
		request:     req,
		initial:     md.Clone(),
		provisioner: backend,
	}, nil
}

func failed(ref node.Ref, err error, elapsed time.Duration) event.Event {
	return event.Event{
		Type:     event.NodeFailed,
		Node:     ref.Name,
		Provider: ref.Provider,
		Message:  "Node provisioning failed",
		Fields:   map[string]string{"kind": node.KindOf(err)},
		Err:      err,
		Elapsed:  elapsed,
	}
}
