package adminauth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %d counters", len(snap.Counters))
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	for _, d := range []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
	} {
		m.Observe(MetricAuthenticateLatency, d)
	}
	// Only the authenticate latency has a histogram.
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("latency histogram must not appear among counters")
	}
	if len(snap.Histograms) != 1 {
		t.Fatalf("expected a single histogram, got %d", len(snap.Histograms))
	}
}

func TestEngineRecordsLoginAndAuthenticateMetrics(t *testing.T) {
	te := newTestEngine(t, func(c *Config) { c.Metrics.EnableLatencyHistograms = true })
	ctx := context.Background()

	res, err := te.Login(ctx, testAdminEmail, testAdminPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := te.Login(ctx, testAdminEmail, "Wrong-Passw0rd!"); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if _, err := te.Authenticate(ctx, res.AccessToken); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := te.Authenticate(ctx, "garbage"); err == nil {
		t.Fatal("expected garbage token to fail")
	}

	snap := te.MetricsSnapshot()
	checks := map[MetricID]uint64{
		MetricLoginSuccess:        1,
		MetricLoginFailure:        1,
		MetricSessionCreated:      1,
		MetricAuthenticateSuccess: 1,
		MetricAuthenticateFailure: 1,
		MetricAccountCreated:      1,
	}
	for id, want := range checks {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("metric %d: expected %d, got %d", id, want, got)
		}
	}

	var observed uint64
	for _, v := range snap.Histograms[MetricAuthenticateLatency] {
		observed += v
	}
	if observed != 2 {
		t.Fatalf("expected 2 latency observations, got %d", observed)
	}
}
