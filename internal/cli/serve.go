package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/config"
	"kakeibo/internal/events"
	httpx "kakeibo/internal/http"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, logger, repo, err := setup()
	if err != nil {
		return err
	}
	defer repo.Close()

	// Publishing is optional. The field must stay a nil interface when
	// AMQP is not configured, not a typed-nil client.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := newEventsClient(cfg, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = client
	}

	transactions := services.NewTransactionService(repo, repo, publisher)
	imports := services.NewImportService(repo, repo, repo, publisher)
	reports := services.NewReportService(repo, repo)

	srv := httpx.NewServer(httpx.Options{
		Addr:            ":" + cfg.Port,
		ImportMaxBytes:  cfg.ImportMaxBytes,
		ReportCacheSize: cfg.ReportCacheSize,
		ReportCacheTTL:  cfg.ReportCacheTTL,
		Logger:          logger,
	}, repo, transactions, imports, reports)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting",
			log.FieldComponent, log.ComponentHTTP,
			"addr", srv.Addr,
			"db_path", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldComponent, log.ComponentHTTP)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Shutdown complete", log.FieldComponent, log.ComponentHTTP)
	return nil
}

func newEventsClient(cfg *config.Config, logger *log.Logger) (*events.Client, error) {
	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	logger.Info("Event publishing enabled",
		log.FieldComponent, log.ComponentEvents,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}
