package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/campusar/wayfinder/internal/dispatcher"

// instruments are created on the global meter provider; they are no-ops
// until one is installed.
type instruments struct {
	queueSize metric.Int64ObservableGauge
	handled   metric.Int64Counter
	dropped   metric.Int64Counter
	latency   metric.Float64Histogram
}

func newInstruments(queueLengths func() map[string]int) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}

	var err error
	in.queueSize, err = m.Int64ObservableGauge("wayfinder.dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered command queue"))
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		for cmd, n := range queueLengths() {
			o.ObserveInt64(in.queueSize, int64(n), metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, in.queueSize)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	in.handled, err = m.Int64Counter("wayfinder.dispatcher.events.handled",
		metric.WithDescription("Events handled, by command and outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating handled counter: %w", err)
	}
	in.dropped, err = m.Int64Counter("wayfinder.dispatcher.events.dropped",
		metric.WithDescription("Events dropped because a command queue was full"))
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	in.latency, err = m.Float64Histogram("wayfinder.dispatcher.handle.duration",
		metric.WithDescription("Time spent in a command handler"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}
	return in, nil
}

func (in *instruments) record(command string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ctx := context.Background()
	in.handled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("outcome", outcome)))
	in.latency.Record(ctx, float64(took.Microseconds())/1000,
		metric.WithAttributes(attribute.String("command", command)))
}

func (in *instruments) drop(command string) {
	in.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}
