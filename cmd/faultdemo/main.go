// Command faultdemo runs a small game service over HTTP and gRPC with the
// faultkit error and resilience stack wired in.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/faultkit/config"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/observability"
)

func main() {
	if err := run(); err != nil {
		logger.Error("faultdemo stopped", logger.Fields(logger.FieldError, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.Load("faultdemo", &cfg); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := initObservability(ctx, &cfg.ServiceConfig)
	if err != nil {
		return err
	}
	defer shutdown()

	metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	a, err := newApp(cfg, log, metrics)
	if err != nil {
		return err
	}
	if err := a.start(ctx); err != nil {
		return err
	}
	log.Info("faultdemo ready", logger.Fields("environment", cfg.Environment, "version", cfg.Version))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.stop(stopCtx)
}

// initObservability installs the OTLP meter and tracer providers when
// enabled. The returned func flushes and shuts them down.
func initObservability(ctx context.Context, cfg *config.ServiceConfig) (func(), error) {
	if !cfg.Observability.Enabled {
		return func() {}, nil
	}

	mp, err := observability.InitMeter(ctx, cfg.MeterConfig())
	if err != nil {
		return nil, err
	}
	tp, err := observability.InitTracer(ctx, cfg.TracerConfig())
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
		if err := mp.Shutdown(ctx); err != nil {
			logger.Warn("meter shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}, nil
}
