package main

import (
	"context"
	"fmt"
	"time"

	"parking-lot/internal/parking"
)

type SweepReport struct {
	Open  int
	Stale []parking.Ticket
}

// SweepOpenTickets lists open tickets and picks out those parked longer
// than staleAfter. It only reports; tickets are never closed here.
func SweepOpenTickets(ctx context.Context, s parking.Store, now time.Time, staleAfter time.Duration) (*SweepReport, error) {
	open, err := s.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tickets: %w", err)
	}

	report := &SweepReport{Open: len(open)}
	if staleAfter <= 0 {
		return report, nil
	}

	cutoff := now.Add(-staleAfter).Unix()
	for _, t := range open {
		if t.EntryTime < cutoff {
			report.Stale = append(report.Stale, t)
		}
	}
	return report, nil
}
