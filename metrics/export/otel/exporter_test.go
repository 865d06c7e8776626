package otel

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/adminauth"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot adminauth.MetricsSnapshot
	dropped  uint64
	failed   uint64
}

func (f *fakeSource) MetricsSnapshot() adminauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := adminauth.MetricsSnapshot{
		Counters:      make(map[adminauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms:    make(map[adminauth.MetricID][]uint64, len(f.snapshot.Histograms)),
		HistogramSums: make(map[adminauth.MetricID]time.Duration, len(f.snapshot.HistogramSums)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	for k, v := range f.snapshot.HistogramSums {
		out.HistogramSums[k] = v
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) AuditFailed() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.failed
}

func newMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestExporterPublishesCountersAndBuckets(t *testing.T) {
	reader, provider := newMeter(t)
	src := &fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters: map[adminauth.MetricID]uint64{
				adminauth.MetricLoginSuccess: 3,
			},
			Histograms: map[adminauth.MetricID][]uint64{
				adminauth.MetricAuthenticateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
			HistogramSums: map[adminauth.MetricID]time.Duration{
				adminauth.MetricAuthenticateLatency: 500 * time.Millisecond,
			},
		},
		dropped: 1,
		failed:  4,
	}

	exp, err := NewExporterFromSource(provider.Meter("adminauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collect(t, reader)

	login, ok := got["adminauth_login_success_total"].Data.(metricdata.Sum[int64])
	if !ok || len(login.DataPoints) != 1 || login.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected login success data: %+v", got["adminauth_login_success_total"].Data)
	}

	failed, ok := got["adminauth_audit_failed_total"].Data.(metricdata.Sum[int64])
	if !ok || failed.DataPoints[0].Value != 4 {
		t.Fatalf("unexpected audit failed data: %+v", got["adminauth_audit_failed_total"].Data)
	}

	buckets, ok := got["adminauth_authenticate_latency_seconds_bucket"].Data.(metricdata.Gauge[int64])
	if !ok || len(buckets.DataPoints) != 8 {
		t.Fatalf("expected 8 bucket points, got %+v", got["adminauth_authenticate_latency_seconds_bucket"].Data)
	}
	for _, dp := range buckets.DataPoints {
		le, _ := dp.Attributes.Value("le")
		if le.AsString() == "+Inf" && dp.Value != 8 {
			t.Fatalf("expected +Inf bucket 8, got %d", dp.Value)
		}
		if le.AsString() == "0.005" && dp.Value != 1 {
			t.Fatalf("expected 0.005 bucket 1, got %d", dp.Value)
		}
	}

	sum, ok := got["adminauth_authenticate_latency_seconds_sum"].Data.(metricdata.Sum[float64])
	if !ok || sum.DataPoints[0].Value != 0.5 {
		t.Fatalf("unexpected latency sum: %+v", got["adminauth_authenticate_latency_seconds_sum"].Data)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newMeter(t)

	if _, err := NewExporterFromSource(provider.Meter("adminauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporter(provider.Meter("adminauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterCloseIsNilSafe(t *testing.T) {
	var exp *Exporter
	if err := exp.Close(); err != nil {
		t.Fatalf("Close on nil exporter: %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newMeter(t)
	src := &fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters: map[adminauth.MetricID]uint64{
				adminauth.MetricLoginSuccess: 1,
			},
			Histograms: map[adminauth.MetricID][]uint64{
				adminauth.MetricAuthenticateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("adminauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[adminauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
