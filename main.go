// main.go - Entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"parking-lot/internal/config"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "optional YAML config file; environment variables override it")
	envHelp := pflag.Bool("env-help", false, "print the supported environment variables and exit")
	pflag.Parse()

	if *envHelp {
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.New(*configPath)
	if err != nil {
		slog.Error("config.New()", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticketService, err := NewTicketService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ticketService.Close()

	var publisher Publisher = &logPublisher{logger: logger}
	if cfg.PubNub.Enabled() {
		publisher, err = NewPubnub(&PubNubConfig{
			PublishKey:   cfg.PubNub.PublishKey,
			SubscribeKey: cfg.PubNub.SubscribeKey,
			SecretKey:    cfg.PubNub.SecretKey,
			UUID:         cfg.PubNub.UUID,
		})
		if err != nil {
			return err
		}
	}
	notificationService := NewNotificationService(publisher, logger)

	var receipts ReceiptDispatcher = &inlineReceiptDispatcher{notifier: notificationService}
	if cfg.Tasks.Enabled {
		redisOpt := redisClientOpt(cfg.Redis)

		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		receipts = &asynqReceiptDispatcher{client: asynqClient}

		taskHandlers := NewTaskHandlers(ticketService.Store(), notificationService, cfg.Tasks.StaleAfter, logger)
		srv, scheduler, err := startAsynqServer(redisOpt, cfg.Tasks, taskHandlers)
		if err != nil {
			return err
		}
		defer srv.Shutdown()
		defer scheduler.Shutdown()
	}

	var limiter *limiterStore
	if cfg.Rate.Enabled {
		limiter = newLimiterStore(cfg.Rate.RPS, cfg.Rate.Burst)
		limiter.startJanitor(ctx, limiter.idleTTL/4)
	}

	handlers := NewHandlers(ticketService, receipts, logger)
	e := newServer(handlers, serverOptions{limiter: limiter, requestLog: true})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver, "tasks", cfg.Tasks.Enabled)
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
