package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/config"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/metrics"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued embedding tasks and periodically backfill missing embeddings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorker(commandContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Storage.Backend == config.BackendMemory {
		return errors.New("the worker needs a shared store, configure the postgres storage backend")
	}

	syncer, err := e.Syncer(ctx)
	if err != nil {
		return err
	}
	queue, err := e.Queue()
	if err != nil {
		return err
	}

	opt, err := asynq.ParseRedisURI(e.cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: e.cfg.Worker.Concurrency,
		Logger:      e.logger.Named("asynq").Sugar(),
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.New(nil).AsynqMiddleware())
	worker.NewEmbedHandler(syncer, e.logger).Register(mux)

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}
	defer srv.Shutdown()

	scheduler := worker.NewScheduler(syncer, queue, e.cfg.Worker.BackfillSpec, e.cfg.Worker.BackfillBatch, e.logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	metricsSrv := serveMetrics(e.cfg.Worker.MetricsAddress, e.logger)

	e.logger.Info("worker started",
		zap.Int("concurrency", e.cfg.Worker.Concurrency),
		zap.String("metrics_address", e.cfg.Worker.MetricsAddress),
	)

	<-ctx.Done()
	e.logger.Info("shutting down", zap.String("reason", "signal received"))

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			e.logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	return nil
}

// serveMetrics exposes the default prometheus registry. An empty address
// disables it.
func serveMetrics(addr string, log *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
