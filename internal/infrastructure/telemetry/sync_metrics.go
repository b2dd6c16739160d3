package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// SyncMetrics tracks reconciliation run activity: run outcomes, per-item
// throughput, and webhook ingest results.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	runTotal      *Counter
	runDuration   *Histogram
	itemsTotal    *Counter
	webhooksTotal *Counter
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	sm.runTotal, err = NewCounter(
		cfg.Meter,
		"possync_run_total",
		"Total number of finished sync runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	sm.runDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "possync_run_duration_seconds",
		Description: "Duration of sync runs",
		Unit:        "s",
		Boundaries:  SyncRunDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.itemsTotal, err = NewCounter(
		cfg.Meter,
		"possync_items_total",
		"Total number of items processed by sync runs, by outcome",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	sm.webhooksTotal, err = NewCounter(
		cfg.Meter,
		"possync_webhooks_total",
		"Total number of webhook deliveries processed, by outcome",
		"{deliveries}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordRun records one finished sync run with its outcome and duration.
func (sm *SyncMetrics) RecordRun(ctx context.Context, tenantID uuid.UUID, provider, trigger, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrProvider.String(provider),
		AttrSyncTrigger.String(trigger),
		AttrSyncStatus.String(status),
	}
	sm.runTotal.Inc(ctx, attrs...)
	sm.runDuration.RecordDuration(ctx, duration, attrs...)
}

// RecordItems records per-item outcomes of a finished run.
func (sm *SyncMetrics) RecordItems(ctx context.Context, tenantID uuid.UUID, provider string, outcome string, count int) {
	if count <= 0 {
		return
	}
	sm.itemsTotal.Add(ctx, int64(count),
		AttrTenantID.String(tenantID.String()),
		AttrProvider.String(provider),
		AttrItemOutcome.String(outcome),
	)
}

// RecordWebhook records one processed webhook delivery.
func (sm *SyncMetrics) RecordWebhook(ctx context.Context, provider, outcome string) {
	sm.webhooksTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrItemOutcome.String(outcome),
	)
}
