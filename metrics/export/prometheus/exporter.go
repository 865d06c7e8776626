package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() adminauth.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
}

type counterDesc struct {
	id   adminauth.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   adminauth.MetricID
	desc *prometheus.Desc
}

// Collector exposes engine metrics as a prometheus.Collector. Values are
// read from the engine snapshot on every scrape; nothing is cached.
type Collector struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prometheus.Desc
	auditFailed  *prometheus.Desc
}

// NewCollector returns a collector reading from engine.
func NewCollector(engine *adminauth.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource returns a collector reading from any snapshot
// source.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		auditFailed:  prometheus.NewDesc(internaldefs.AuditFailedName, internaldefs.AuditFailedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.auditDropped
	ch <- c.auditFailed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, d := range c.counters {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(snapshot.Counters[d.id]))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.UpperBounds))
		for i, le := range internaldefs.UpperBounds {
			buckets[le] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]
		sum := snapshot.HistogramSums[d.id].Seconds()
		ch <- prometheus.MustNewConstHistogram(d.desc, count, sum, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
	ch <- prometheus.MustNewConstMetric(c.auditFailed, prometheus.CounterValue, float64(c.source.AuditFailed()))
}

// Handler registers a Collector for engine in a private registry and
// returns its scrape handler. Use NewCollector with your own registry to
// serve engine metrics next to others.
func Handler(engine *adminauth.Engine) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(engine))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
