package main

import (
	"context"
	"time"

	"github.com/nimdanitro/weathercloud-scraper-go/pkg/weathercloud"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// newReadingSink logs every reading and records it as a temperature gauge
// plus the age of the reading at delivery time.
func newReadingSink(ctx context.Context, meter metric.Meter, logger *zap.Logger, now func() time.Time, attributes ...attribute.KeyValue) weathercloud.SinkFuncs {
	temperature, _ := meter.Float64Gauge("sensor.temperature",
		metric.WithUnit("Cel"),
		metric.WithDescription("Inside temperature in degrees Celsius"),
	)
	readingAge, _ := meter.Float64Histogram(
		"sensor.lastReading.duration",
		metric.WithDescription("The age of the sensor reading when it was delivered."),
		metric.WithUnit("s"),
	)
	attrs := metric.WithAttributes(attributes...)

	return weathercloud.SinkFuncs{
		Reading: func(r weathercloud.Reading) {
			logger.Info("temperature updated",
				zap.Float64("temperature", r.Celsius),
				zap.String("deviceCode", r.DeviceCode),
				zap.String("source", string(r.Source)),
				zap.Time("timestamp", r.CapturedAt),
			)
			temperature.Record(ctx, r.Celsius, attrs)
			readingAge.Record(ctx, now().Sub(r.CapturedAt).Seconds(), attrs)
		},
		Error: func(err error) {
			logger.Error("failed to fetch temperature", zap.Error(err))
		},
	}
}
