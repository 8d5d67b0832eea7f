package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateWorkerConfig(log.ComponentWorker)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is not shared with the API process; mirrored rows will be skipped")
	}
	// The worker only reads the store; it consumes events on its own client.
	backendCfg.AMQPURL = ""

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).
		CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	mirror, err := google.NewMirror(ctx, google.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets mirror", "error", err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	logger.Info("Starting mirror worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"sheet", cfg.GoogleSheetName,
		"health_interval", cfg.WorkerHealthCheckInterval)

	exitCode := 0
	w := worker.NewMirrorWorker(res.Backend, mirror)
	if err := w.Run(ctx, client, cfg.WorkerHealthCheckInterval); err != nil {
		logger.Error("Mirror worker stopped with error", "error", err)
		exitCode = 1
	}

	_ = cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) error {
		return errors.Join(client.Close(), res.Cleanup())
	})

	s := w.Stats()
	logger.Info("Mirror worker stopped",
		"upserts", s.Upserts,
		"deletes", s.Deletes,
		"skipped", s.Skipped,
		"failed", s.Failed)
	os.Exit(exitCode)
}
