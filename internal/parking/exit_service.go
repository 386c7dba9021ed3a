package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ExitService closes tickets and bills the stay.
type ExitService struct {
	store Store
	opts  options
}

func NewExitService(store Store, opts ...Option) *ExitService {
	return &ExitService{store: store, opts: newOptions(opts)}
}

// Exit closes ticketID at the current time and returns the receipt. A ticket
// is closed at most once; every later call reports ErrAlreadyExited.
func (s *ExitService) Exit(ctx context.Context, ticketID string) (*Receipt, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, ErrInvalidRequest
	}

	ticket, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return nil, StoreUnavailable(err)
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	if !ticket.IsOpen() {
		return nil, ErrAlreadyExited
	}

	exitTime := s.opts.now().Unix()
	if exitTime < ticket.EntryTime {
		s.opts.logger.Error("Exit before entry", "ticketID", ticketID, "entryTime", ticket.EntryTime, "exitTime", exitTime)
		return nil, ErrInvalidTimestamps
	}

	closed, err := s.store.CloseIfOpen(ctx, ticketID, exitTime)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyExited):
		// another exit won the race since Get
		return nil, ErrAlreadyExited
	case errors.Is(err, ErrTicketNotFound):
		return nil, ErrTicketNotFound
	default:
		return nil, StoreUnavailable(fmt.Errorf("close ticket %s: %w", ticketID, err))
	}

	receipt, err := NewReceipt(*closed)
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("Ticket closed",
		"ticketID", receipt.TicketID,
		"plate", receipt.LicensePlate,
		"elapsed", receipt.TotalParkedTime,
		"charge", receipt.Charge,
	)
	return receipt, nil
}

// Lookup returns the stored ticket without changing it.
func (s *ExitService) Lookup(ctx context.Context, ticketID string) (*Ticket, error) {
	ticket, err := s.store.Get(ctx, strings.TrimSpace(ticketID))
	if err != nil {
		return nil, StoreUnavailable(err)
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// NewReceipt bills a closed ticket.
func NewReceipt(t Ticket) (*Receipt, error) {
	if t.ExitTime == nil {
		return nil, fmt.Errorf("ticket %s is still open: %w", t.TicketID, ErrInvalidTimestamps)
	}
	elapsed := *t.ExitTime - t.EntryTime
	if elapsed < 0 {
		return nil, ErrInvalidTimestamps
	}
	return &Receipt{
		TicketID:        t.TicketID,
		LicensePlate:    t.LicensePlate,
		ParkingLotID:    t.ParkingLotID,
		EntryTime:       t.EntryTime,
		ExitTime:        *t.ExitTime,
		ElapsedSeconds:  elapsed,
		TotalParkedTime: FormatElapsed(elapsed),
		Charge:          Charge(elapsed),
	}, nil
}
