package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"seedfinder/internal/app"
	"seedfinder/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file; settings after -- override it")
	flag.Parse()

	// Инициализация логгера
	logger := initLogger("info")

	// Чтение конфигурации
	configReader := infrastructure.NewYAMLConfigReader(logger)
	config, err := configReader.ReadConfig(*configPath, flag.Args())
	if err != nil {
		logger.Fatal("Failed to read config", zap.Error(err))
	}

	// Обновляем уровень логирования
	logger.Sync()
	logger = initLogger(config.LogLevel, config.LogFile).With(zap.String("run", uuid.NewString()))
	defer logger.Sync()

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		logger.Fatal("Failed to create output dir", zap.String("dir", config.OutputDir), zap.Error(err))
	}

	// Инициализация компонентов
	spawner := infrastructure.NewLocalSpawner(logger, infrastructure.NewTXTPaletteReader(logger), config.PaletteFile)
	queue := app.NewQueue(logger, spawner, config.Workers, config.PartitionStride)
	queue.OnSeedUpdate(func() {
		logger.Debug("Worker switched seed context")
	})
	if err := queue.Start(); err != nil {
		logger.Fatal("Failed to start queue", zap.Error(err))
	}
	defer func() {
		queue.Close()
		<-queue.Stopped()
	}()

	logger.Info("Running jobs",
		zap.Int("jobs", len(config.Jobs)),
		zap.Int("workers", config.Workers),
		zap.Int64("stride", config.PartitionStride))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if config.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := queue.RegisterMetrics(reg); err != nil {
			logger.Error("Failed to register metrics", zap.Error(err))
			return
		}
		serveMetrics(ctx, g, logger, config.MetricsAddr, reg)
	}

	runner := newJobRunner(logger, queue, infrastructure.NewTXTGridWriter(logger), config.OutputDir)
	var wg sync.WaitGroup
	for _, job := range config.Jobs {
		wg.Add(1)
		if err := runner.submit(job, wg.Done); err != nil {
			logger.Error("Job rejected", zap.String("job", job.Name), zap.Error(err))
			wg.Done()
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	g.Go(func() error {
		// Завершение заданий останавливает и сервер метрик
		defer cancel()
		select {
		case <-finished:
			queue.PrintStatus()
			logger.Info("All jobs completed")
		case <-ctx.Done():
			queue.PrintStatus()
			logger.Warn("Interrupted, abandoning running jobs")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Run failed", zap.Error(err))
	}
}

// serveMetrics exposes reg on addr until ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, logger *zap.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// initLogger initializes the logger with the specified level and log file name.
func initLogger(level string, logfileName ...string) *zap.Logger {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	outputPath := []string{"stderr"}
	for _, item := range logfileName {
		if item != "" {
			outputPath = append(outputPath, item)
		}
	}

	config.OutputPaths = outputPath
	config.ErrorOutputPaths = outputPath
	config.EncoderConfig.TimeKey = "t"
	config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	config.DisableCaller = false

	logger, err := config.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
