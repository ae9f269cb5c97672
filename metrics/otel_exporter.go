package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	// OTel meters and instruments
	meter            metric.Meter
	connectionsGauge metric.Int64ObservableGauge
	statusCountGauge metric.Int64ObservableGauge
	dueRetriesGauge  metric.Int64ObservableGauge
	viewersGauge     metric.Int64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"smartbiz-hub",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	// Live connections gauge (per stream room)
	oe.connectionsGauge, err = oe.meter.Int64ObservableGauge(
		"stream.connections",
		metric.WithDescription("Number of live WebSocket connections per stream room"),
		metric.WithUnit("{connections}"),
		metric.WithInt64Callback(oe.observeRoomCounts),
	)
	if err != nil {
		return fmt.Errorf("creating connections gauge: %w", err)
	}

	// Delivery status count gauge (per status)
	oe.statusCountGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.delivery.count",
		metric.WithDescription("Number of webhook deliveries by status"),
		metric.WithUnit("{deliveries}"),
		metric.WithInt64Callback(oe.observeStatusCounts),
	)
	if err != nil {
		return fmt.Errorf("creating status count gauge: %w", err)
	}

	// Due retries gauge
	oe.dueRetriesGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.retries.due",
		metric.WithDescription("Number of deliveries whose scheduled retry is due"),
		metric.WithUnit("{deliveries}"),
		metric.WithInt64Callback(oe.observeDueRetries),
	)
	if err != nil {
		return fmt.Errorf("creating due retries gauge: %w", err)
	}

	// Viewers gauge (per stream)
	oe.viewersGauge, err = oe.meter.Int64ObservableGauge(
		"stream.viewers",
		metric.WithDescription("Number of viewers present per stream"),
		metric.WithUnit("{viewers}"),
		metric.WithInt64Callback(oe.observeViewers),
	)
	if err != nil {
		return fmt.Errorf("creating viewers gauge: %w", err)
	}

	return nil
}

// observeRoomCounts is a callback that reports live connection counts
func (oe *OTelExporter) observeRoomCounts(ctx context.Context, observer metric.Int64Observer) error {
	roomCounts, err := oe.collector.GetRoomCounts(ctx)
	if err != nil {
		return err
	}

	for room, count := range roomCounts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("stream.id", room),
		))
	}

	return nil
}

// observeStatusCounts is a callback that reports delivery counts by status
func (oe *OTelExporter) observeStatusCounts(ctx context.Context, observer metric.Int64Observer) error {
	statusCounts, err := oe.collector.GetStatusCounts(ctx)
	if err != nil {
		return err
	}

	for status, count := range statusCounts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("delivery.status", status),
		))
	}

	return nil
}

// observeDueRetries is a callback that reports the due retry backlog
func (oe *OTelExporter) observeDueRetries(ctx context.Context, observer metric.Int64Observer) error {
	due, err := oe.collector.GetDueRetries(ctx)
	if err != nil {
		return err
	}

	observer.Observe(due)
	return nil
}

// observeViewers is a callback that reports viewer presence counts
func (oe *OTelExporter) observeViewers(ctx context.Context, observer metric.Int64Observer) error {
	viewers, err := oe.collector.GetViewers(ctx)
	if err != nil {
		return err
	}

	for streamID, list := range viewers {
		observer.Observe(int64(len(list)), metric.WithAttributes(
			attribute.String("stream.id", streamID),
		))
	}

	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
