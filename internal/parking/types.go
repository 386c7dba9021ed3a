package parking

import "context"

// Ticket is one parking session. ExitTime stays nil while the car is parked.
type Ticket struct {
	TicketID     string `json:"ticketId"`
	LicensePlate string `json:"licensePlate"`
	ParkingLotID string `json:"parkingLotId"`
	EntryTime    int64  `json:"entryTime"`
	ExitTime     *int64 `json:"exitTime"`
}

func (t Ticket) IsOpen() bool {
	return t.ExitTime == nil
}

// Receipt is the outcome of a successful exit.
type Receipt struct {
	TicketID        string  `json:"ticketId"`
	LicensePlate    string  `json:"licensePlate"`
	ParkingLotID    string  `json:"parkingLotId"`
	EntryTime       int64   `json:"entryTime"`
	ExitTime        int64   `json:"exitTime"`
	ElapsedSeconds  int64   `json:"elapsedSeconds"`
	TotalParkedTime string  `json:"totalParkedTime"`
	Charge          float64 `json:"charge"`
}

// Store is the persistent ticket table keyed by ticket ID.
//
// Conditional operations must be atomic in the backing store; they are the
// only synchronization the services rely on. Transient I/O failures are
// reported wrapped in ErrStoreUnavailable.
type Store interface {
	// FindOpenByPlate returns the open ticket for plate, or nil if there is none.
	FindOpenByPlate(ctx context.Context, plate string) (*Ticket, error)
	// AllocateID returns an ID never returned before.
	AllocateID(ctx context.Context) (string, error)
	// InsertIfAbsent writes t only if no ticket with the same ID exists.
	// Returns ErrTicketExists on an ID collision and ErrAlreadyParked when
	// the store itself can tell the plate already has an open ticket.
	InsertIfAbsent(ctx context.Context, t Ticket) error
	// Get returns the ticket, or nil if it does not exist.
	Get(ctx context.Context, ticketID string) (*Ticket, error)
	// CloseIfOpen sets the exit time only if it is unset and returns the
	// updated ticket. Returns ErrTicketNotFound or ErrAlreadyExited otherwise.
	CloseIfOpen(ctx context.Context, ticketID string, exitTime int64) (*Ticket, error)
	// ListOpen returns every ticket that has no exit time.
	ListOpen(ctx context.Context) ([]Ticket, error)
}
