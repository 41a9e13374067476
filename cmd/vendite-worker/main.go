// The vendite-worker consumes ledger events from AMQP and emits receipt
// notifications. It shares the store and config with cmd/vendite.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendite/internal/cli"
	"vendite/internal/core"
	"vendite/internal/events"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting vendite-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := client.Consume(ctx, handleEvent); err != nil {
			if err != context.Canceled {
				logger.Error("Event consumption failed", "error", err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give the consumer time to finish the delivery in flight.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}

func handleEvent(event *events.LedgerEvent) error {
	switch event.Kind {
	case events.KindSaleCreated:
		slog.Info("Receipt: sale recorded",
			"sale_id", event.SaleID,
			"customer_id", event.CustomerID,
			"total", core.Money{Cents: event.AmountCents}.String())
	case events.KindPaymentPosted:
		slog.Info("Receipt: payment received",
			"payment_id", event.PaymentID,
			"sale_id", event.SaleID,
			"amount", core.Money{Cents: event.AmountCents}.String(),
			"remaining", core.Money{Cents: event.RemainingCents}.String())
	default:
		slog.Warn("Unknown ledger event kind", "kind", event.Kind)
	}
	return nil
}
