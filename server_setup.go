package main

import (
	"fmt"
	"log/slog"

	"parking-lot/internal/config"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

type serverOptions struct {
	limiter    *limiterStore
	requestLog bool
}

func newServer(handlers *Handlers, opts serverOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	if opts.requestLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(metricsMiddleware())

	setupRoutes(e, handlers, opts.limiter)
	return e
}

func setupRoutes(e *echo.Echo, handlers *Handlers, limiter *limiterStore) {
	e.GET("/health", handlers.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Ticket operations
	limit := rateLimitMiddleware(limiter)
	e.POST("/entry", handlers.Entry, limit)
	e.POST("/exit", handlers.Exit, limit)
	e.GET("/tickets/:ticketId", handlers.GetTicket, limit)
}

func redisClientOpt(cfg config.Redis) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// startAsynqServer starts the worker and the sweep scheduler. Both run in
// the background until shut down.
func startAsynqServer(redisOpt asynq.RedisClientOpt, cfg config.Tasks, handlers *TaskHandlers) (*asynq.Server, *asynq.Scheduler, error) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      taskQueues(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTicketReceipt, handlers.HandleTicketReceipt)
	mux.HandleFunc(TypeTicketSweep, handlers.HandleTicketSweep)

	if err := srv.Start(mux); err != nil {
		return nil, nil, fmt.Errorf("asynq server failed to start: %w", err)
	}

	// Schedule periodic sweep
	scheduler := asynq.NewScheduler(redisOpt, nil)

	sweepTask, err := NewTicketSweepTask(cfg.StaleAfter)
	if err != nil {
		srv.Shutdown()
		return nil, nil, err
	}
	if _, err := scheduler.Register(cfg.SweepCron, sweepTask, asynq.Queue(QueueSweep)); err != nil {
		srv.Shutdown()
		return nil, nil, fmt.Errorf("register sweep %q: %w", cfg.SweepCron, err)
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		return nil, nil, fmt.Errorf("scheduler failed to start: %w", err)
	}

	slog.Info("Task worker started", "concurrency", cfg.Concurrency, "sweepCron", cfg.SweepCron)
	return srv, scheduler, nil
}
