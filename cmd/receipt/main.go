package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/msilvprog7/receipt/internal/auth"
	"github.com/msilvprog7/receipt/internal/config"
	"github.com/msilvprog7/receipt/internal/core"
	"github.com/msilvprog7/receipt/internal/events"
	apphttp "github.com/msilvprog7/receipt/internal/http"
	applog "github.com/msilvprog7/receipt/internal/log"
	"github.com/msilvprog7/receipt/internal/session"
	"github.com/msilvprog7/receipt/internal/store"
)

func main() {
	// Load .env for local development; absence is fine in production.
	_ = godotenv.Load()

	cfg := config.Load()
	applog.Setup(cfg.LogLevel)
	logger := applog.New(applog.ComponentApp)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	flow := auth.NewFacebook(auth.FacebookConfig{
		ClientID:     cfg.FacebookClientID,
		ClientSecret: cfg.FacebookClientSecret,
		Version:      cfg.FacebookAPIVersion,
		Scope:        cfg.FacebookScope,
	}, nil)
	flow.SetRedirectURI(cfg.RedirectURI())

	sessions := session.NewStore(cfg.SessionTTL, cfg.SecureCookies)
	receipts := store.NewOwned[core.Receipt]()

	// Receipt events are optional; without a broker the server runs
	// with a no-op publisher.
	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Receipt events enabled", applog.FieldExchange, cfg.AMQPExchange)
	} else {
		logger.Info("Receipt events disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, flow, sessions, receipts, publisher)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting receipt server", "port", cfg.Port, "redirect_uri", cfg.RedirectURI())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
