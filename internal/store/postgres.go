package store

import (
	"context"
	"errors"
	"fmt"

	"parking-lot/internal/parking"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ parking.Store = (*Postgres)(nil)

const (
	uniqueViolation     = "23505"
	ticketsPrimaryKey   = "parking_tickets_pkey"
	ticketsOpenPlateIdx = "parking_tickets_open_plate"
)

const schema = `
CREATE TABLE IF NOT EXISTS parking_tickets (
	ticket_id      TEXT PRIMARY KEY,
	license_plate  TEXT NOT NULL,
	parking_lot_id TEXT NOT NULL,
	entry_time     BIGINT NOT NULL,
	exit_time      BIGINT NULL,
	CONSTRAINT parking_tickets_exit_after_entry CHECK (exit_time IS NULL OR exit_time >= entry_time)
);
CREATE SEQUENCE IF NOT EXISTS parking_ticket_seq;
CREATE UNIQUE INDEX IF NOT EXISTS parking_tickets_open_plate
	ON parking_tickets (license_plate) WHERE exit_time IS NULL;
`

// Postgres is a parking.Store on one table. The partial unique index on open
// plates turns the double-parking check into a conditional write.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the table, sequence and index if they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate parking_tickets: %w", err)
	}
	return nil
}

func (p *Postgres) FindOpenByPlate(ctx context.Context, plate string) (*parking.Ticket, error) {
	const sql = `
		SELECT ticket_id, license_plate, parking_lot_id, entry_time, exit_time
		FROM parking_tickets
		WHERE license_plate = $1 AND exit_time IS NULL
		LIMIT 1
	`
	return p.queryOne(ctx, sql, plate)
}

func (p *Postgres) AllocateID(ctx context.Context) (string, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT nextval('parking_ticket_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next ticket id: %w", err)
	}
	return formatID(n), nil
}

func (p *Postgres) InsertIfAbsent(ctx context.Context, t parking.Ticket) error {
	const sql = `
		INSERT INTO parking_tickets (ticket_id, license_plate, parking_lot_id, entry_time, exit_time)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := p.pool.Exec(ctx, sql, t.TicketID, t.LicensePlate, t.ParkingLotID, t.EntryTime, t.ExitTime)
	if err != nil {
		return classifyInsertError(t.TicketID, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, ticketID string) (*parking.Ticket, error) {
	const sql = `
		SELECT ticket_id, license_plate, parking_lot_id, entry_time, exit_time
		FROM parking_tickets
		WHERE ticket_id = $1
	`
	return p.queryOne(ctx, sql, ticketID)
}

func (p *Postgres) CloseIfOpen(ctx context.Context, ticketID string, exitTime int64) (*parking.Ticket, error) {
	const sql = `
		UPDATE parking_tickets
		SET exit_time = $2
		WHERE ticket_id = $1 AND exit_time IS NULL
		RETURNING ticket_id, license_plate, parking_lot_id, entry_time, exit_time
	`
	t, err := p.queryOne(ctx, sql, ticketID, exitTime)
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}

	// nothing updated: either missing or already closed
	existing, err := p.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, parking.ErrTicketNotFound
	}
	return nil, parking.ErrAlreadyExited
}

func (p *Postgres) ListOpen(ctx context.Context) ([]parking.Ticket, error) {
	const sql = `
		SELECT ticket_id, license_plate, parking_lot_id, entry_time, exit_time
		FROM parking_tickets
		WHERE exit_time IS NULL
		ORDER BY entry_time, ticket_id
	`
	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list open tickets: %w", err)
	}
	defer rows.Close()

	var out []parking.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("list open tickets: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list open tickets: %w", err)
	}
	return out, nil
}

func (p *Postgres) queryOne(ctx context.Context, sql string, args ...any) (*parking.Ticket, error) {
	t, err := scanTicket(p.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query parking_tickets: %w", err)
	}
	return t, nil
}

func scanTicket(row pgx.Row) (*parking.Ticket, error) {
	var t parking.Ticket
	if err := row.Scan(&t.TicketID, &t.LicensePlate, &t.ParkingLotID, &t.EntryTime, &t.ExitTime); err != nil {
		return nil, err
	}
	return &t, nil
}

func classifyInsertError(ticketID string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case ticketsOpenPlateIdx:
			return parking.ErrAlreadyParked
		case ticketsPrimaryKey:
			return parking.ErrTicketExists
		}
	}
	return fmt.Errorf("insert ticket %s: %w", ticketID, err)
}
