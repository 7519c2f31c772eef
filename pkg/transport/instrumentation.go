package transport

import (
	"github.com/rafaelpontezup/stkai-go/pkg/observability"
	"github.com/rafaelpontezup/stkai-go/pkg/observability/noop"
)

// instrumentation holds the tracer and metric instruments every request
// issued by a Transport shares. Instruments are created once at
// construction and reused, the same singleton-metric discipline the
// teacher's httpclient instrumentation follows to avoid redefinition
// errors against the underlying provider.
type instrumentation struct {
	tracer observability.Tracer

	requestCounter   observability.Counter
	errorCounter     observability.Counter
	latencyHistogram observability.Histogram
}

// newInstrumentation builds the instrumentation for one Transport. A nil
// o11y defaults to the no-op provider, so constructing a transport
// without observability wired in costs nothing at request time.
func newInstrumentation(o11y observability.Observability) *instrumentation {
	if o11y == nil {
		o11y = noop.NewProvider()
	}

	metrics := o11y.Metrics()
	return &instrumentation{
		tracer: o11y.Tracer(),

		requestCounter: metrics.Counter(
			"stkai.transport.request.count",
			"Total number of outbound requests issued by the transport",
			"{request}",
		),
		errorCounter: metrics.Counter(
			"stkai.transport.request.errors",
			"Total number of outbound requests that failed before a response was read",
			"{error}",
		),
		latencyHistogram: metrics.Histogram(
			"stkai.transport.request.duration",
			"Duration of outbound requests issued by the transport",
			"ms",
		),
	}
}
