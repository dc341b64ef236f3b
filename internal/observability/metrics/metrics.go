package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	accruals        metric.Int64Counter
	transitions     metric.Int64Counter
	payments        metric.Int64Counter
	allocations     metric.Int64Counter
	ruleResolutions metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "panelbilling"
	}
	meter := provider.Meter(name)

	accruals, err := meter.Int64Counter("panelbilling_accruals_total")
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("panelbilling_status_transitions_total")
	if err != nil {
		return nil, err
	}
	payments, err := meter.Int64Counter("panelbilling_payments_total")
	if err != nil {
		return nil, err
	}
	allocations, err := meter.Int64Counter("panelbilling_allocations_total")
	if err != nil {
		return nil, err
	}
	ruleResolutions, err := meter.Int64Counter("panelbilling_rule_resolutions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		accruals:        accruals,
		transitions:     transitions,
		payments:        payments,
		allocations:     allocations,
		ruleResolutions: ruleResolutions,
	}, nil
}

// RecordAccrual increments accrual counts.
func (m *Metrics) RecordAccrual(ctx context.Context, serviceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("service_type", strings.TrimSpace(serviceType)))
	m.accruals.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransition increments lifecycle transition counts.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", strings.TrimSpace(from)),
		attribute.String("to_status", strings.TrimSpace(to)),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment increments payment counts.
func (m *Metrics) RecordPayment(ctx context.Context, allocationCount int) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1)
	if allocationCount > 0 {
		m.allocations.Add(ctx, int64(allocationCount))
	}
}

// RecordRuleResolution increments rule resolution counts.
func (m *Metrics) RecordRuleResolution(ctx context.Context, scope string, matched bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("scope", strings.TrimSpace(scope)),
		attribute.Bool("matched", matched),
	)
	m.ruleResolutions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"service_type": {},
	"scope":        {},
	"from_status":  {},
	"to_status":    {},
	"matched":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
