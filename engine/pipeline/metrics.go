package pipeline

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce     sync.Once
	metricsMu       sync.Mutex
	metricsInitErr  error
	ingestDuration  metric.Float64Histogram
	documentCounter metric.Int64Counter
	chunkCounter    metric.Int64Counter
	relationCounter metric.Int64Counter
)

func recordIngestDuration(ctx context.Context, docType string, d time.Duration) {
	if err := ensureMetrics(); err != nil || ingestDuration == nil {
		return
	}
	ingestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("doc_type", docType)))
}

func recordDocument(ctx context.Context, status string) {
	if err := ensureMetrics(); err != nil || documentCounter == nil {
		return
	}
	documentCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func recordChunks(ctx context.Context, docType string, chunks int) {
	if chunks <= 0 {
		return
	}
	if err := ensureMetrics(); err != nil || chunkCounter == nil {
		return
	}
	chunkCounter.Add(ctx, int64(chunks), metric.WithAttributes(attribute.String("doc_type", docType)))
}

func recordRelations(ctx context.Context, docType string, relations int) {
	if relations <= 0 {
		return
	}
	if err := ensureMetrics(); err != nil || relationCounter == nil {
		return
	}
	relationCounter.Add(ctx, int64(relations), metric.WithAttributes(attribute.String("doc_type", docType)))
}

func ResetMetricsForTesting() {
	metricsMu.Lock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	ingestDuration = nil
	documentCounter = nil
	chunkCounter = nil
	relationCounter = nil
	metricsMu.Unlock()
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("normabase.pipeline")
		var err error
		ingestDuration, err = meter.Float64Histogram(
			"normabase_ingest_duration_seconds",
			metric.WithDescription("Latency of single-document ingestion runs"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		documentCounter, err = meter.Int64Counter(
			"normabase_documents_total",
			metric.WithDescription("Number of documents processed by outcome status"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		chunkCounter, err = meter.Int64Counter(
			"normabase_chunks_total",
			metric.WithDescription("Number of chunks persisted per ingestion"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		relationCounter, err = meter.Int64Counter(
			"normabase_relations_total",
			metric.WithDescription("Number of relations persisted per ingestion"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}
