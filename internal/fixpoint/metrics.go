package fixpoint

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("nullfix.fixpoint")
	meter  = otel.Meter("nullfix.fixpoint")
)

var (
	passLatency   metric.Float64Histogram
	passTotal     metric.Int64Counter
	decisionTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		passLatency, err = meter.Float64Histogram(
			"fixpoint_pass_duration_seconds",
			metric.WithDescription("Duration of one checker pass including patching"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		passTotal, err = meter.Int64Counter(
			"fixpoint_passes_total",
			metric.WithDescription("Total number of completed passes"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		decisionTotal, err = meter.Int64Counter(
			"fixpoint_decisions_total",
			metric.WithDescription("Fix decisions by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startCheckerSpan(ctx context.Context, runID string, pass, attempt int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "fixpoint.Checker",
		trace.WithAttributes(
			attribute.String("fixpoint.run_id", runID),
			attribute.Int("fixpoint.pass", pass),
			attribute.Int("fixpoint.attempt", attempt),
		),
	)
}

func recordPassMetrics(ctx context.Context, r PassReport, final State) {
	if err := initMetrics(); err != nil {
		return
	}

	passLatency.Record(ctx, r.Duration.Seconds(), metric.WithAttributes(attribute.String("state", final.String())))
	passTotal.Add(ctx, 1)

	outcomes := map[string]int{
		"accepted": len(r.Accepted),
		"rejected": len(r.Rejected),
		"applied":  len(r.Applied),
		"failed":   len(r.Failed),
	}
	for outcome, n := range outcomes {
		if n == 0 {
			continue
		}
		decisionTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
