// ABOUTME: Metric instruments for playback
// ABOUTME: Counts negotiation attempts and stream errors and observes mixer counters
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Resonate-Protocol/playout/pkg/audio/mixer"
	"github.com/Resonate-Protocol/playout/pkg/audio/output"
)

const meterName = "github.com/Resonate-Protocol/playout"

// Metrics holds the instruments shared by the CLI
type Metrics struct {
	meter metric.Meter

	// NegotiationAttempts counts stream build attempts by device, config and outcome
	NegotiationAttempts metric.Int64Counter

	// StreamErrors counts backend errors raised after a stream started
	StreamErrors metric.Int64Counter

	// TracksStarted counts sources handed to the output stream
	TracksStarted metric.Int64Counter
}

// NewMetrics creates the instruments on mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := &Metrics{meter: mp.Meter(meterName)}
	var err error

	if m.NegotiationAttempts, err = m.meter.Int64Counter("playout.negotiation.attempts",
		metric.WithDescription("Output stream build attempts by device, config and outcome."),
	); err != nil {
		return nil, err
	}
	if m.StreamErrors, err = m.meter.Int64Counter("playout.stream.errors",
		metric.WithDescription("Errors reported by the audio backend while playing."),
	); err != nil {
		return nil, err
	}
	if m.TracksStarted, err = m.meter.Int64Counter("playout.tracks.started",
		metric.WithDescription("Sources handed to the output stream."),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordAttempt matches the signature of output.WithAttemptObserver
func (m *Metrics) RecordAttempt(a output.Attempt) {
	outcome := "ok"
	if a.Err != nil {
		outcome = "error"
	}
	m.NegotiationAttempts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("device", a.Device),
		attribute.String("config", a.Config.String()),
		attribute.String("outcome", outcome),
	))
}

// RecordStreamError matches the signature of output.WithErrorHandler
func (m *Metrics) RecordStreamError(device string, _ error) {
	m.StreamErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("device", device),
	))
}

// ObserveMixer registers asynchronous instruments that read stats on every
// collection. Unregister the returned registration when the stream closes.
func (m *Metrics) ObserveMixer(stats func() mixer.Stats) (metric.Registration, error) {
	added, err := m.meter.Int64ObservableCounter("playout.mixer.sources.added",
		metric.WithDescription("Sources registered with the mixer."))
	if err != nil {
		return nil, err
	}
	finished, err := m.meter.Int64ObservableCounter("playout.mixer.sources.finished",
		metric.WithDescription("Sources removed from the mixer after exhausting."))
	if err != nil {
		return nil, err
	}
	active, err := m.meter.Int64ObservableGauge("playout.mixer.sources.active",
		metric.WithDescription("Sources currently being mixed."))
	if err != nil {
		return nil, err
	}
	frames, err := m.meter.Int64ObservableCounter("playout.mixer.frames",
		metric.WithDescription("Output frames produced by the mixer."))
	if err != nil {
		return nil, err
	}

	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(added, int64(s.Added))
		o.ObserveInt64(finished, int64(s.Finished))
		o.ObserveInt64(active, s.Active)
		o.ObserveInt64(frames, int64(s.Frames))
		return nil
	}, added, finished, active, frames)
}
