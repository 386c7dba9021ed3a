package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"parking-lot/internal/parking"
	"parking-lot/internal/store"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt() parking.Receipt {
	return parking.Receipt{
		TicketID:        "0001",
		LicensePlate:    "ABC123",
		ParkingLotID:    "L1",
		EntryTime:       1_700_000_000,
		ExitTime:        1_700_000_905,
		ElapsedSeconds:  905,
		TotalParkedTime: "00:15:05",
		Charge:          5,
	}
}

func TestHandleTicketReceipt_PublishesReceipt(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewTaskHandlers(store.NewMemory(), NewNotificationService(pub, quietLogger()), time.Hour, quietLogger())

	task, err := NewTicketReceiptTask(sampleReceipt())
	require.NoError(t, err)
	assert.Equal(t, TypeTicketReceipt, task.Type())

	require.NoError(t, h.HandleTicketReceipt(context.Background(), task))

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "parking-lot-L1", msgs[0].channel)
	msg := msgs[0].payload.(ReceiptMessage)
	assert.Equal(t, "ticket_closed", msg.Type)
	assert.Equal(t, "ABC123", msg.LicensePlate)
}

func TestHandleTicketReceipt_BadPayloadSkipsRetry(t *testing.T) {
	h := NewTaskHandlers(store.NewMemory(), NewNotificationService(&recordingPublisher{}, quietLogger()), time.Hour, quietLogger())

	err := h.HandleTicketReceipt(context.Background(), asynq.NewTask(TypeTicketReceipt, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleTicketReceipt(context.Background(), asynq.NewTask(TypeTicketReceipt, []byte(`{"receipt":{}}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleTicketReceipt_PublishErrorIsRetried(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("timeout")}
	h := NewTaskHandlers(store.NewMemory(), NewNotificationService(pub, quietLogger()), time.Hour, quietLogger())

	task, err := NewTicketReceiptTask(sampleReceipt())
	require.NoError(t, err)

	err = h.HandleTicketReceipt(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func seedTickets(t *testing.T, s parking.Store, entries map[string]int64) {
	t.Helper()
	for plate, entryTime := range entries {
		id, err := s.AllocateID(context.Background())
		require.NoError(t, err)
		require.NoError(t, s.InsertIfAbsent(context.Background(), parking.Ticket{
			TicketID:     id,
			LicensePlate: plate,
			ParkingLotID: "L1",
			EntryTime:    entryTime,
		}))
	}
}

func TestSweepOpenTickets(t *testing.T) {
	now := time.Unix(1_700_100_000, 0)
	s := store.NewMemory()
	seedTickets(t, s, map[string]int64{
		"FRESH": now.Add(-time.Hour).Unix(),
		"OLD":   now.Add(-48 * time.Hour).Unix(),
		"OLDER": now.Add(-72 * time.Hour).Unix(),
	})

	report, err := SweepOpenTickets(context.Background(), s, now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Open)
	require.Len(t, report.Stale, 2)
	for _, st := range report.Stale {
		assert.NotEqual(t, "FRESH", st.LicensePlate)
	}

	report, err = SweepOpenTickets(context.Background(), s, now, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Open)
	assert.Empty(t, report.Stale)
}

func TestHandleTicketSweep_UpdatesGauges(t *testing.T) {
	now := time.Unix(1_700_100_000, 0)
	s := store.NewMemory()
	seedTickets(t, s, map[string]int64{
		"A": now.Add(-10 * time.Minute).Unix(),
		"B": now.Add(-3 * time.Hour).Unix(),
	})

	h := NewTaskHandlers(s, NewNotificationService(&recordingPublisher{}, quietLogger()), 24*time.Hour, quietLogger())
	h.now = func() time.Time { return now }

	// payload threshold overrides the configured one
	task, err := NewTicketSweepTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, h.HandleTicketSweep(context.Background(), task))

	assert.Equal(t, 2.0, testutil.ToFloat64(openTickets))
	assert.Equal(t, 1.0, testutil.ToFloat64(staleTickets))

	require.NoError(t, h.HandleTicketSweep(context.Background(), asynq.NewTask(TypeTicketSweep, nil)))
	assert.Equal(t, 0.0, testutil.ToFloat64(staleTickets))
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "x", Type: task.Type()}, nil
}

func TestAsynqReceiptDispatcher_UsesTicketTaskID(t *testing.T) {
	enq := &fakeEnqueuer{}
	d := &asynqReceiptDispatcher{client: enq}

	require.NoError(t, d.DispatchReceipt(context.Background(), sampleReceipt()))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeTicketReceipt, enq.tasks[0].Type())

	var payload TicketReceiptPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, sampleReceipt(), payload.Receipt)

	var taskID, queue string
	for _, opt := range enq.opts[0] {
		switch opt.Type() {
		case asynq.TaskIDOpt:
			taskID = opt.Value().(string)
		case asynq.QueueOpt:
			queue = opt.Value().(string)
		}
	}
	assert.Equal(t, "receipt:0001", taskID)
	assert.Equal(t, QueueReceipts, queue)
}

func TestTaskQueues_CoverEnqueuedQueues(t *testing.T) {
	queues := taskQueues()
	assert.Len(t, queues, 2)
	assert.Contains(t, queues, QueueReceipts)
	assert.Contains(t, queues, QueueSweep)
	assert.Greater(t, queues[QueueReceipts], queues[QueueSweep])
}

func TestAsynqReceiptDispatcher_DuplicateIsNotAnError(t *testing.T) {
	d := &asynqReceiptDispatcher{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, d.DispatchReceipt(context.Background(), sampleReceipt()))

	boom := errors.New("redis down")
	d = &asynqReceiptDispatcher{client: &fakeEnqueuer{err: boom}}
	assert.ErrorIs(t, d.DispatchReceipt(context.Background(), sampleReceipt()), boom)
}
