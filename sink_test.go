package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimdanitro/weathercloud-scraper-go/pkg/weathercloud"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestReadingSinkRecordsReadingAge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	captured := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := captured.Add(30 * time.Second)

	sink := newReadingSink(context.Background(), meter, zap.NewNop(), func() time.Time { return now },
		attribute.String("sensor.id", "3671694794"),
	)
	sink.OnReading(weathercloud.Reading{Celsius: 21.5, CapturedAt: captured, DeviceCode: "3671694794"})

	data := collect(t, reader)
	age, ok := data["sensor.lastReading.duration"].(metricdata.Histogram[float64])
	if !ok || len(age.DataPoints) != 1 {
		t.Fatalf("unexpected reading age data %#v", data["sensor.lastReading.duration"])
	}
	if dp := age.DataPoints[0]; dp.Count != 1 || dp.Sum != 30 {
		t.Fatalf("count = %d sum = %v, want a single 30s sample", dp.Count, dp.Sum)
	}
	if v, ok := age.DataPoints[0].Attributes.Value("sensor.id"); !ok || v.AsString() != "3671694794" {
		t.Fatalf("missing sensor.id attribute")
	}

	gauge, ok := data["sensor.temperature"].(metricdata.Gauge[float64])
	if !ok || len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 21.5 {
		t.Fatalf("unexpected temperature data %#v", data["sensor.temperature"])
	}
}

func TestReadingSinkRecordsEveryReading(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	captured := time.Now()

	sink := newReadingSink(context.Background(), meter, zap.NewNop(), func() time.Time { return captured.Add(time.Second) })
	sink.OnReading(weathercloud.Reading{Celsius: 20, CapturedAt: captured})
	sink.OnReading(weathercloud.Reading{Celsius: 20, CapturedAt: captured})

	age := collect(t, reader)["sensor.lastReading.duration"].(metricdata.Histogram[float64])
	if dp := age.DataPoints[0]; dp.Count != 2 || dp.Sum != 2 {
		t.Fatalf("count = %d sum = %v, want every reading recorded with its own age", dp.Count, dp.Sum)
	}
}

func TestReadingSinkLogsErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	meter := sdkmetric.NewMeterProvider().Meter("test")

	sink := newReadingSink(context.Background(), meter, zap.New(core), time.Now)
	sink.OnError(errors.New("boom"))

	if logs.FilterMessage("failed to fetch temperature").Len() != 1 {
		t.Fatal("expected the failure to be logged")
	}
}
