package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parking-lot/internal/parking"

	"github.com/hibiken/asynq"
)

const (
	TypeTicketReceipt = "ticket:receipt"
	TypeTicketSweep   = "ticket:sweep"
)

// Receipts reach drivers, so they outrank the housekeeping sweep.
const (
	QueueReceipts = "critical"
	QueueSweep    = "low"
)

// taskQueues is the worker's queue priority map. Every queue a task is
// enqueued on must appear here or the worker never drains it.
func taskQueues() map[string]int {
	return map[string]int{
		QueueReceipts: 6,
		QueueSweep:    1,
	}
}

// Task payloads
type TicketReceiptPayload struct {
	Receipt parking.Receipt `json:"receipt"`
}

type TicketSweepPayload struct {
	StaleAfterSeconds int64 `json:"stale_after_seconds"`
}

func NewTicketReceiptTask(r parking.Receipt) (*asynq.Task, error) {
	payload, err := json.Marshal(TicketReceiptPayload{Receipt: r})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTicketReceipt, payload), nil
}

func NewTicketSweepTask(staleAfter time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(TicketSweepPayload{StaleAfterSeconds: int64(staleAfter / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTicketSweep, payload), nil
}

func receiptTaskID(ticketID string) string {
	return "receipt:" + ticketID
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// asynqReceiptDispatcher defers receipts to the worker. The task ID is
// derived from the ticket, so a ticket gets at most one receipt task.
type asynqReceiptDispatcher struct {
	client taskEnqueuer
}

func (d *asynqReceiptDispatcher) DispatchReceipt(ctx context.Context, r parking.Receipt) error {
	task, err := NewTicketReceiptTask(r)
	if err != nil {
		return err
	}

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.TaskID(receiptTaskID(r.TicketID)),
		asynq.Queue(QueueReceipts),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

type TaskHandlers struct {
	store      parking.Store
	notifier   *NotificationService
	now        func() time.Time
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewTaskHandlers(store parking.Store, notifier *NotificationService, staleAfter time.Duration, logger *slog.Logger) *TaskHandlers {
	return &TaskHandlers{
		store:      store,
		notifier:   notifier,
		now:        time.Now,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Task handlers
func (h *TaskHandlers) HandleTicketReceipt(ctx context.Context, t *asynq.Task) error {
	var payload TicketReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Receipt.TicketID == "" {
		return fmt.Errorf("receipt without ticket id: %w", asynq.SkipRetry)
	}

	return h.notifier.SendReceipt(ctx, payload.Receipt)
}

func (h *TaskHandlers) HandleTicketSweep(ctx context.Context, t *asynq.Task) error {
	staleAfter := h.staleAfter
	var payload TicketSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("json.Unmarshal: %v: %w", err, asynq.SkipRetry)
		}
		if payload.StaleAfterSeconds > 0 {
			staleAfter = time.Duration(payload.StaleAfterSeconds) * time.Second
		}
	}

	report, err := SweepOpenTickets(ctx, h.store, h.now(), staleAfter)
	if err != nil {
		return err
	}

	openTickets.Set(float64(report.Open))
	staleTickets.Set(float64(len(report.Stale)))
	for _, st := range report.Stale {
		h.logger.Warn("Stale open ticket",
			"ticketID", st.TicketID,
			"plate", st.LicensePlate,
			"parkingLotID", st.ParkingLotID,
			"parkedFor", parking.FormatElapsed(h.now().Unix()-st.EntryTime),
		)
	}

	h.logger.Info("Open tickets swept", "open", report.Open, "stale", len(report.Stale))
	return nil
}
