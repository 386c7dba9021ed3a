package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"parking-lot/internal/parking"

	"github.com/google/uuid"
)

type ReceiptMessage struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	TicketID        string    `json:"ticketId"`
	LicensePlate    string    `json:"licensePlate"`
	ParkingLotID    string    `json:"parkingLotId"`
	TotalParkedTime string    `json:"totalParkedTime"`
	Charge          float64   `json:"charge"`
	Timestamp       time.Time `json:"timestamp"`
}

type NotificationService struct {
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewNotificationService(publisher Publisher, logger *slog.Logger) *NotificationService {
	return &NotificationService{publisher: publisher, now: time.Now, logger: logger}
}

func lotChannel(lotID string) string {
	return fmt.Sprintf("parking-lot-%s", lotID)
}

// SendReceipt publishes a closed ticket's receipt on its lot's channel.
func (ns *NotificationService) SendReceipt(ctx context.Context, r parking.Receipt) error {
	msg := ReceiptMessage{
		ID:              uuid.New().String(),
		Type:            "ticket_closed",
		TicketID:        r.TicketID,
		LicensePlate:    r.LicensePlate,
		ParkingLotID:    r.ParkingLotID,
		TotalParkedTime: r.TotalParkedTime,
		Charge:          r.Charge,
		Timestamp:       ns.now(),
	}

	channel := lotChannel(r.ParkingLotID)
	timetoken, err := ns.publisher.Publish(ctx, channel, msg)
	if err != nil {
		return fmt.Errorf("ns.publisher.Publish(channel: %v): %w", channel, err)
	}

	ns.logger.Info("Receipt sent", "ticketID", r.TicketID, "channel", channel, "timetoken", timetoken)
	return nil
}

// inlineReceiptDispatcher sends receipts in the request path. Used when the
// task queue is disabled.
type inlineReceiptDispatcher struct {
	notifier *NotificationService
}

func (d *inlineReceiptDispatcher) DispatchReceipt(ctx context.Context, r parking.Receipt) error {
	return d.notifier.SendReceipt(ctx, r)
}
