package client

import (
	"github.com/rafaelpontezup/stkai-go/pkg/observability"
)

// instrumentation holds the tracer and metric instruments shared by every
// Do call, built once at construction the same way pkg/transport builds
// its request-level instruments.
type instrumentation struct {
	tracer observability.Tracer

	outcomeCounter   observability.Counter
	attemptHistogram observability.Histogram
}

// newInstrumentation builds the instrumentation for one Client from its
// already-resolved observability facade (New defaults a nil option to the
// no-op provider before this is called).
func newInstrumentation(o11y observability.Observability) *instrumentation {
	metrics := o11y.Metrics()
	return &instrumentation{
		tracer: o11y.Tracer(),

		outcomeCounter: metrics.Counter(
			"stkai.client.request.outcomes",
			"Total number of logical requests by final outcome status",
			"{request}",
		),
		attemptHistogram: metrics.Histogram(
			"stkai.client.request.attempts",
			"Number of attempts spent per logical request",
			"{attempt}",
		),
	}
}
