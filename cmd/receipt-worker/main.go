// The receipt-worker consumes receipt events from the broker and
// appends them to a Google Sheets ledger.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/msilvprog7/receipt/internal/config"
	"github.com/msilvprog7/receipt/internal/events"
	"github.com/msilvprog7/receipt/internal/export"
	applog "github.com/msilvprog7/receipt/internal/log"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	applog.Setup(cfg.LogLevel)
	logger := applog.New(applog.ComponentWorker)

	logger.Info("Starting receipt-worker")

	// The worker only needs the broker and the ledger; Facebook
	// credentials belong to the server process.
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := export.NewLedgerFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Sheets ledger", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sheets ledger initialized", applog.FieldSheet, cfg.ExportSheetName)

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	worker := export.NewWorker(ledger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeReceiptEvents(ctx, worker.HandleEvent)
	})

	logger.Info("Consuming receipt events", applog.FieldQueue, cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
