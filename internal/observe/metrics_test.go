// ABOUTME: Tests for playback metric instruments
// ABOUTME: Reads instruments back through a manual reader
package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Resonate-Protocol/playout/pkg/audio/mixer"
	"github.com/Resonate-Protocol/playout/pkg/audio/output"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumByOutcome(t *testing.T, met *metricdata.Metrics) map[string]int64 {
	t.Helper()
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", met.Name)
	}
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestRecordAttempt(t *testing.T) {
	m, reader := newTestMetrics(t)
	cfg := output.SupportedStreamConfig{Channels: 2, SampleRate: 48000, Format: output.FormatF32}

	m.RecordAttempt(output.Attempt{Device: "dac", Config: cfg, Err: errors.New("busy")})
	m.RecordAttempt(output.Attempt{Device: "dac", Config: cfg, Err: errors.New("busy")})
	m.RecordAttempt(output.Attempt{Device: "dac", Config: cfg})

	met := findMetric(collect(t, reader), "playout.negotiation.attempts")
	if met == nil {
		t.Fatal("metric not found")
	}
	got := sumByOutcome(t, met)
	if got["error"] != 2 || got["ok"] != 1 {
		t.Errorf("expected 2 errors and 1 ok, got %v", got)
	}
}

func TestRecordStreamError(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordStreamError("dac", errors.New("device stopped"))

	met := findMetric(collect(t, reader), "playout.stream.errors")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("unexpected data points %+v", sum.DataPoints)
	}
}

func TestObserveMixer(t *testing.T) {
	m, reader := newTestMetrics(t)
	stats := mixer.Stats{Added: 3, Finished: 1, Active: 2, Frames: 4800}

	reg, err := m.ObserveMixer(func() mixer.Stats { return stats })
	if err != nil {
		t.Fatalf("ObserveMixer: %v", err)
	}
	defer reg.Unregister()

	rm := collect(t, reader)

	counters := []struct {
		name string
		want int64
	}{
		{"playout.mixer.sources.added", 3},
		{"playout.mixer.sources.finished", 1},
		{"playout.mixer.frames", 4800},
	}
	for _, tc := range counters {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatal("metric not found")
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 {
				t.Fatalf("unexpected data %+v", met.Data)
			}
			if sum.DataPoints[0].Value != tc.want {
				t.Errorf("expected %d, got %d", tc.want, sum.DataPoints[0].Value)
			}
		})
	}

	met := findMetric(rm, "playout.mixer.sources.active")
	if met == nil {
		t.Fatal("active gauge not found")
	}
	gauge, ok := met.Data.(metricdata.Gauge[int64])
	if !ok || len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 2 {
		t.Errorf("unexpected gauge %+v", met.Data)
	}
}

func TestObserveMixerUnregister(t *testing.T) {
	m, reader := newTestMetrics(t)
	calls := 0
	reg, err := m.ObserveMixer(func() mixer.Stats {
		calls++
		return mixer.Stats{}
	})
	if err != nil {
		t.Fatalf("ObserveMixer: %v", err)
	}

	collect(t, reader)
	if err := reg.Unregister(); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	collect(t, reader)

	if calls != 1 {
		t.Errorf("expected callback once, got %d", calls)
	}
}
