package agent

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	loggerpkg "github.com/minhyannv/sentry-agent-go/pkg/logger"
)

const instrumentationName = "github.com/minhyannv/sentry-agent-go/pkg/agent"

// Option configures optional runtime dependencies for Agent.
type Option func(*agentDeps)

type agentDeps struct {
	logger  loggerpkg.Logger
	verbose bool
	tracer  trace.TracerProvider
	meter   metric.MeterProvider
}

func resolveDeps(opts []Option) agentDeps {
	deps := agentDeps{
		logger: loggerpkg.NopLogger{},
		tracer: otel.GetTracerProvider(),
		meter:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	return deps
}

// WithLogger injects a logger dependency. Debug lines are emitted only when
// verbose is set.
func WithLogger(l loggerpkg.Logger, verbose bool) Option {
	return func(d *agentDeps) {
		if l != nil {
			d.logger = l
		}
		d.verbose = verbose
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *agentDeps) {
		if tp != nil {
			d.tracer = tp
		}
	}
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(d *agentDeps) {
		if mp != nil {
			d.meter = mp
		}
	}
}
