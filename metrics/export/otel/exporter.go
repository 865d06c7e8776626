package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() adminauth.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
}

type observedCounter struct {
	id         adminauth.MetricID
	instrument metric.Int64ObservableCounter
}

// observedHistogram flattens one engine histogram into a cumulative bucket
// gauge keyed by an "le" attribute, plus count and sum instruments.
type observedHistogram struct {
	id      adminauth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableCounter
	sum     metric.Float64ObservableCounter
}

// Exporter publishes engine metrics through asynchronous OTel instruments.
// Close unregisters the collection callback.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
	auditFailed  metric.Int64ObservableCounter
	leSets       [internaldefs.BucketCount]metric.MeasurementOption
}

// NewExporter registers instruments for engine on meter.
func NewExporter(meter metric.Meter, engine *adminauth.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers instruments for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}
	for i := range e.leSets {
		le := "+Inf"
		if i < len(internaldefs.UpperBounds) {
			le = strconv.FormatFloat(internaldefs.UpperBounds[i], 'f', -1, 64)
		}
		e.leSets[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*3+2)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		var err error
		if h.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative bucket counts.")); err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		}
		if h.count, err = meter.Int64ObservableCounter(def.Name+"_count",
			metric.WithDescription(def.Help+" Sample count.")); err != nil {
			return nil, fmt.Errorf("create count %s: %w", def.Name, err)
		}
		if h.sum, err = meter.Float64ObservableCounter(def.Name+"_sum",
			metric.WithDescription(def.Help+" Sum of samples."), metric.WithUnit("s")); err != nil {
			return nil, fmt.Errorf("create sum %s: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, h.buckets, h.count, h.sum)
	}

	var err error
	if e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	if e.auditFailed, err = meter.Int64ObservableCounter(internaldefs.AuditFailedName,
		metric.WithDescription(internaldefs.AuditFailedHelp)); err != nil {
		return nil, fmt.Errorf("create audit failed counter: %w", err)
	}
	observables = append(observables, e.auditDropped, e.auditFailed)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cumulative {
			o.ObserveInt64(h.buckets, int64(n), e.leSets[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
		o.ObserveFloat64(h.sum, snapshot.HistogramSums[h.id].Seconds())
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	o.ObserveInt64(e.auditFailed, int64(e.source.AuditFailed()))
	return nil
}

// Close unregisters the callback. Safe on a nil Exporter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
