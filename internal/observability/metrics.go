package observability

import (
	"context"

	"auscultify/internal/config"
	contextutils "auscultify/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithHeaders(cfg.Headers)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
	case "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithHeaders(cfg.Headers)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// DomainMetrics holds the quiz counters. Instruments come from the global meter provider,
// which is a no-op until SetupObservability installs a real one.
type DomainMetrics struct {
	sessionsRecorded otelmetric.Int64Counter
	answersRecorded  otelmetric.Int64Counter
	questionsServed  otelmetric.Int64Counter
	catalogChanges   otelmetric.Int64Counter
}

// NewDomainMetrics creates the counters on the global meter
func NewDomainMetrics() (*DomainMetrics, error) {
	meter := otel.Meter("auscultify")

	sessions, err := meter.Int64Counter("auscultify.sessions.recorded",
		otelmetric.WithDescription("Quiz sessions persisted"))
	if err != nil {
		return nil, err
	}
	answers, err := meter.Int64Counter("auscultify.answers.recorded",
		otelmetric.WithDescription("Answer history rows written"))
	if err != nil {
		return nil, err
	}
	served, err := meter.Int64Counter("auscultify.questions.served",
		otelmetric.WithDescription("Questions returned by selection strategies"))
	if err != nil {
		return nil, err
	}
	catalog, err := meter.Int64Counter("auscultify.catalog.changes",
		otelmetric.WithDescription("Categories and questions created or deleted"))
	if err != nil {
		return nil, err
	}

	return &DomainMetrics{
		sessionsRecorded: sessions,
		answersRecorded:  answers,
		questionsServed:  served,
		catalogChanges:   catalog,
	}, nil
}

// RecordSession counts one persisted session with its answer rows
func (m *DomainMetrics) RecordSession(ctx context.Context, answers int) {
	if m == nil {
		return
	}
	m.sessionsRecorded.Add(ctx, 1)
	m.answersRecorded.Add(ctx, int64(answers))
}

// RecordQuestionsServed counts questions handed out by a strategy
func (m *DomainMetrics) RecordQuestionsServed(ctx context.Context, strategy string, n int) {
	if m == nil {
		return
	}
	m.questionsServed.Add(ctx, int64(n), otelmetric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordCatalogChange counts a create or delete of a category or question
func (m *DomainMetrics) RecordCatalogChange(ctx context.Context, entity, action string) {
	if m == nil {
		return
	}
	m.catalogChanges.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("action", action),
	))
}
