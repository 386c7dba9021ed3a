package main

import (
	"context"
	"fmt"
	"log/slog"

	"parking-lot/internal/config"
	"parking-lot/internal/parking"
	"parking-lot/internal/store"
)

// TicketService bundles the ticket store with the entry and exit services
// built on it, and owns the store's connections.
type TicketService struct {
	store   parking.Store
	entry   *parking.EntryService
	exit    *parking.ExitService
	closers []func()
}

func NewTicketService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*TicketService, error) {
	var (
		ticketStore parking.Store
		closers     []func()
	)

	switch cfg.Store.Driver {
	case "memory":
		ticketStore = store.NewMemory()

	case "redis":
		rdb, err := store.NewRedisClient(ctx, store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		ticketStore = store.NewRedis(rdb, store.WithKeyPrefix(cfg.Redis.Prefix))

	case "postgres":
		pool, err := store.NewPostgresPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pool.Close)
		pg := store.NewPostgres(pool)
		if cfg.Postgres.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		ticketStore = pg

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	slog.Info("Ticket store ready", "driver", cfg.Store.Driver)

	ts := newTicketServiceWithStore(ticketStore, parking.WithLogger(logger))
	ts.closers = closers
	return ts, nil
}

func newTicketServiceWithStore(s parking.Store, opts ...parking.Option) *TicketService {
	return &TicketService{
		store: s,
		entry: parking.NewEntryService(s, opts...),
		exit:  parking.NewExitService(s, opts...),
	}
}

func (ts *TicketService) Enter(ctx context.Context, plate, lotID string) (string, error) {
	return ts.entry.Enter(ctx, plate, lotID)
}

func (ts *TicketService) Exit(ctx context.Context, ticketID string) (*parking.Receipt, error) {
	return ts.exit.Exit(ctx, ticketID)
}

func (ts *TicketService) Lookup(ctx context.Context, ticketID string) (*parking.Ticket, error) {
	return ts.exit.Lookup(ctx, ticketID)
}

func (ts *TicketService) Store() parking.Store {
	return ts.store
}

func (ts *TicketService) Close() {
	for i := len(ts.closers) - 1; i >= 0; i-- {
		ts.closers[i]()
	}
}
