// Package metrics exposes Prometheus metrics for node provisioning.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
)

const (
	namespace = "azbootstrap"

	resultSuccess = "success"
)

// Registry holds every metric of this package plus Go runtime and process
// collectors. It is served by the API's /metrics endpoint.
var Registry = prometheus.NewRegistry()

var (
	provisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_total",
			Help:      "Total number of node provisioning attempts by result",
		},
		[]string{"result"},
	)

	provisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provision_duration_seconds",
			Help:      "Duration of node provisioning attempts in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
		},
	)

	imageResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_resolutions_total",
			Help:      "Total number of image resolutions by selection mode and result",
		},
		[]string{"mode", "result"},
	)

	sizeValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "size_validations_total",
			Help:      "Total number of size validations by result",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		provisionTotal,
		provisionDuration,
		imageResolutionsTotal,
		sizeValidationsTotal,
	)
}

func recordProvision(result string, seconds float64) {
	provisionTotal.WithLabelValues(result).Inc()
	provisionDuration.Observe(seconds)
}

func recordImageResolution(mode, result string) {
	if mode == "" {
		mode = "unknown"
	}
	imageResolutionsTotal.WithLabelValues(mode, result).Inc()
}

func recordSizeValidation(result string) {
	sizeValidationsTotal.WithLabelValues(result).Inc()
}

// Observer records provisioning events as metrics.
type Observer struct{}

// compile-time interface compliance check
var _ event.Observer = Observer{}

// Observe implements event.Observer. Failures are labelled with the error
// kind (configuration, not_found, provisioning, unknown).
func (Observer) Observe(e event.Event) {
	switch e.Type {
	case event.ImageResolved:
		recordImageResolution(e.Field("mode"), resultSuccess)
	case event.ImageFailed:
		recordImageResolution(e.Field("mode"), failureResult(e))
	case event.SizeValidated:
		recordSizeValidation(resultSuccess)
	case event.SizeFailed:
		recordSizeValidation(failureResult(e))
	case event.NodeStarted:
		recordProvision(resultSuccess, e.Elapsed.Seconds())
	case event.NodeFailed:
		recordProvision(failureResult(e), e.Elapsed.Seconds())
	}
}

func failureResult(e event.Event) string {
	if kind := e.Field("kind"); kind != "" {
		return kind
	}
	return "unknown"
}
