// Package event defines the structured events emitted while a node is
// resolved and provisioned. Library code emits events instead of logging, so
// resolution logic stays independent of any particular log sink.
package event

import (
	"time"
)

// Type identifies what happened.
type Type string

const (
	// ImageLookup is emitted right before an image lookup call.
	ImageLookup Type = "image.lookup"
	// ImageResolved is emitted after a lookup returned an image id.
	ImageResolved Type = "image.resolved"
	// ImageFailed is emitted when resolution failed (validation or lookup).
	ImageFailed Type = "image.failed"

	// SizeLookup is emitted before the size catalog is fetched.
	SizeLookup Type = "size.lookup"
	// SizeValidated is emitted when the requested size is in the catalog.
	SizeValidated Type = "size.validated"
	// SizeFailed is emitted when size validation failed.
	SizeFailed Type = "size.failed"

	// RequestBuilt is emitted once a provisioning request was assembled.
	RequestBuilt Type = "request.built"

	// NodeSubmitting is emitted right before the request is submitted.
	NodeSubmitting Type = "node.submitting"
	// NodeStarted is emitted after the backend created the node.
	NodeStarted Type = "node.started"
	// NodeFailed is emitted when any step of a provisioning attempt failed.
	NodeFailed Type = "node.failed"
)

// Event is a single structured observation.
type Event struct {
	Type      Type
	Node      string
	Provider  string
	Message   string
	Fields    map[string]string
	Err       error
	Elapsed   time.Duration
	Timestamp time.Time
}

// Field returns the named field or "".
func (e Event) Field(key string) string {
	return e.Fields[key]
}

// Observer receives events. Implementations must be safe for concurrent use
// when the same observer is shared between provisioning runs.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// Nop discards every event.
var Nop Observer = ObserverFunc(func(Event) {})

// Multi fans an event out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return ObserverFunc(func(e Event) {
		for _, o := range list {
			o.Observe(e)
		}
	})
}

// Emit stamps e and hands it to o. A nil observer is allowed.
func Emit(o Observer, e Event) {
	if o == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	o.Observe(e)
}
