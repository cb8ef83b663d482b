package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

const (
	attrStatus    = attribute.Key("upload.status")
	attrOperation = attribute.Key("analytics.operation")
	attrResult    = attribute.Key("cache.result")
)

// SalesMetrics holds the ingest and analytics instruments.
type SalesMetrics struct {
	uploads        *Counter
	rowsIngested   *Counter
	rowsDropped    *Counter
	processingTime *Histogram
	cacheLookups   *Counter
}

// NewSalesMetrics registers all instruments on meter.
func NewSalesMetrics(meter metric.Meter) (*SalesMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	uploads, err := NewCounter(meter, "salesinsight.uploads.processed", "Uploads that reached a terminal status", "{upload}")
	if err != nil {
		return nil, err
	}
	rows, err := NewCounter(meter, "salesinsight.rows.ingested", "Fact records persisted", "{row}")
	if err != nil {
		return nil, err
	}
	dropped, err := NewCounter(meter, "salesinsight.rows.dropped", "Rows skipped during parsing", "{row}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "salesinsight.upload.processing.duration",
		Description: "Time from processing start to terminal status",
		Unit:        "s",
		Boundaries:  []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	})
	if err != nil {
		return nil, err
	}
	lookups, err := NewCounter(meter, "salesinsight.analytics.cache.lookups", "Analytics cache lookups", "{lookup}")
	if err != nil {
		return nil, err
	}

	return &SalesMetrics{
		uploads:        uploads,
		rowsIngested:   rows,
		rowsDropped:    dropped,
		processingTime: duration,
		cacheLookups:   lookups,
	}, nil
}

// RecordUpload records one upload reaching status.
func (m *SalesMetrics) RecordUpload(ctx context.Context, status string, rows, dropped int, elapsed time.Duration) {
	m.uploads.Inc(ctx, attrStatus.String(status))
	if rows > 0 {
		m.rowsIngested.Add(ctx, int64(rows))
	}
	if dropped > 0 {
		m.rowsDropped.Add(ctx, int64(dropped))
	}
	m.processingTime.Record(ctx, elapsed.Seconds(), attrStatus.String(status))
}

// RecordCacheLookup records an analytics cache hit or miss for op.
func (m *SalesMetrics) RecordCacheLookup(ctx context.Context, op string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Inc(ctx, attrOperation.String(op), attrResult.String(result))
}
