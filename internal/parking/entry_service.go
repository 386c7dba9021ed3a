package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EntryService issues tickets for arriving cars.
type EntryService struct {
	store Store
	opts  options
}

func NewEntryService(store Store, opts ...Option) *EntryService {
	return &EntryService{store: store, opts: newOptions(opts)}
}

// Enter records a new open ticket for plate in lotID and returns its ID.
//
// The open-ticket check and the insert are two store calls. Stores that can
// enforce plate uniqueness inside InsertIfAbsent close that window; for any
// other store two concurrent entries of the same plate may both succeed.
func (s *EntryService) Enter(ctx context.Context, plate, lotID string) (string, error) {
	plate = strings.TrimSpace(plate)
	lotID = strings.TrimSpace(lotID)
	if plate == "" || lotID == "" {
		return "", ErrInvalidRequest
	}

	open, err := s.store.FindOpenByPlate(ctx, plate)
	if err != nil {
		return "", StoreUnavailable(err)
	}
	if open != nil {
		return "", ErrAlreadyParked
	}

	for attempt := 1; attempt <= s.opts.maxAllocationAttempts; attempt++ {
		ticketID, err := s.store.AllocateID(ctx)
		if err != nil {
			return "", StoreUnavailable(err)
		}

		ticket := Ticket{
			TicketID:     ticketID,
			LicensePlate: plate,
			ParkingLotID: lotID,
			EntryTime:    s.opts.now().Unix(),
		}

		err = s.store.InsertIfAbsent(ctx, ticket)
		switch {
		case err == nil:
			s.opts.logger.Info("Ticket issued", "ticketID", ticketID, "plate", plate, "parkingLotID", lotID)
			return ticketID, nil
		case errors.Is(err, ErrTicketExists):
			s.opts.logger.Warn("Ticket ID collision, retrying", "ticketID", ticketID, "attempt", attempt)
			continue
		case errors.Is(err, ErrAlreadyParked):
			return "", ErrAlreadyParked
		default:
			return "", StoreUnavailable(fmt.Errorf("insert ticket %s: %w", ticketID, err))
		}
	}

	s.opts.logger.Error("Ticket ID allocation exhausted", "plate", plate, "attempts", s.opts.maxAllocationAttempts)
	return "", ErrAllocationExhausted
}
