package store

import (
	"context"
	"sort"
	"sync"

	"parking-lot/internal/parking"
)

var _ parking.Store = (*Memory)(nil)

// Memory is a parking.Store kept in process memory. It enforces plate
// uniqueness on insert, like the Redis and Postgres stores.
type Memory struct {
	mu        sync.Mutex
	seq       int64
	tickets   map[string]parking.Ticket
	openPlate map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		tickets:   make(map[string]parking.Ticket),
		openPlate: make(map[string]string),
	}
}

func (m *Memory) FindOpenByPlate(_ context.Context, plate string) (*parking.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.openPlate[plate]
	if !ok {
		return nil, nil
	}
	t := m.tickets[id]
	return cloneTicket(t), nil
}

func (m *Memory) AllocateID(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	return formatID(m.seq), nil
}

func (m *Memory) InsertIfAbsent(_ context.Context, t parking.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tickets[t.TicketID]; ok {
		return parking.ErrTicketExists
	}
	if t.IsOpen() {
		if _, ok := m.openPlate[t.LicensePlate]; ok {
			return parking.ErrAlreadyParked
		}
		m.openPlate[t.LicensePlate] = t.TicketID
	}
	m.tickets[t.TicketID] = *cloneTicket(t)
	return nil
}

func (m *Memory) Get(_ context.Context, ticketID string) (*parking.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, nil
	}
	return cloneTicket(t), nil
}

func (m *Memory) CloseIfOpen(_ context.Context, ticketID string, exitTime int64) (*parking.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, parking.ErrTicketNotFound
	}
	if !t.IsOpen() {
		return nil, parking.ErrAlreadyExited
	}

	t.ExitTime = &exitTime
	m.tickets[ticketID] = t
	if m.openPlate[t.LicensePlate] == ticketID {
		delete(m.openPlate, t.LicensePlate)
	}
	return cloneTicket(t), nil
}

func (m *Memory) ListOpen(_ context.Context) ([]parking.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]parking.Ticket, 0, len(m.openPlate))
	for _, t := range m.tickets {
		if t.IsOpen() {
			out = append(out, *cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out, nil
}

func cloneTicket(t parking.Ticket) *parking.Ticket {
	c := t
	if t.ExitTime != nil {
		v := *t.ExitTime
		c.ExitTime = &v
	}
	return &c
}
