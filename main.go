package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimdanitro/weathercloud-scraper-go/pkg/config"
	"github.com/nimdanitro/weathercloud-scraper-go/pkg/metrics"
	"github.com/nimdanitro/weathercloud-scraper-go/pkg/notify"
	"github.com/nimdanitro/weathercloud-scraper-go/pkg/weathercloud"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const scope = "github.com/nimdanitro/weathercloud-scraper-go"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, warnings, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Setup Otel
	shutdown, err := setupOTelSDK(ctx)
	defer shutdown(context.Background())
	if err != nil {
		panic(err)
	}

	// Initialize logger
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(os.Stdout), level),
		otelzap.NewCore(scope, otelzap.WithLoggerProvider(global.GetLoggerProvider())),
	)
	logger := zap.New(core)
	defer logger.Sync()
	logger.Info("starting up", zap.String("version", version), zap.String("commit", commit), zap.String("buildDate", date))
	for _, w := range warnings {
		logger.Warn(w)
	}

	// Initialize metrics
	meter := otel.Meter(
		scope,
		metric.WithInstrumentationAttributes(semconv.OTelScopeName(scope)),
	)
	promMetrics := metrics.New(prometheus.DefaultRegisterer)

	sink := newReadingSink(ctx, meter, logger, time.Now,
		attribute.String("sensor.id", cfg.DeviceCode),
		attribute.String("sensor.name", cfg.Name),
	)

	// create the client
	client, err := weathercloud.NewClient(
		weathercloud.WithLogger(logger),
		weathercloud.WithBaseURL(cfg.BaseURL),
		weathercloud.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		logger.Fatal("cannot create client", zap.Error(err))
	}
	poller, err := weathercloud.NewPoller(client, cfg.Credentials(),
		weathercloud.WithUnit(cfg.Unit),
		weathercloud.WithCacheTTL(cfg.CacheTTL),
		weathercloud.WithSink(sink),
		weathercloud.WithObserver(promMetrics),
		weathercloud.WithPushResetsCache(cfg.PushResetsCache),
	)
	if err != nil {
		logger.Fatal("cannot create poller", zap.Error(err))
	}

	if cfg.ListenAddr != "" {
		router := notify.New(poller,
			notify.WithLogger(logger),
			notify.WithNotification(cfg.NotificationID, cfg.NotificationPassword),
			notify.WithMetricsHandler(promhttp.Handler()),
			notify.WithInfo(notify.Info{
				Name:         cfg.Name,
				Manufacturer: "Martin Hampl",
				Model:        "Weather Cloud Inside Temperature Sensor",
				SerialNumber: "MH01",
				Firmware:     version,
			}),
		).Router()
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("listening", zap.String("addr", cfg.ListenAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed", zap.Error(err))
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.PollInterval <= 0 {
		logger.Info("periodic polling disabled, waiting for requests and notifications")
		<-ctx.Done()
		return
	}

	logger.Info("polling weather cloud", zap.Duration("interval", cfg.PollInterval))
	if err := poller.Run(ctx, cfg.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("poller stopped", zap.Error(err))
	}
}
