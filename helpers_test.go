package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"time"

	"parking-lot/internal/parking"
	"parking-lot/internal/store"

	"github.com/labstack/echo/v4"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedMessage struct {
	channel string
	payload any
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, publishedMessage{channel: channel, payload: payload})
	return "17000000000000000", nil
}

func (p *recordingPublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

type testServer struct {
	e         *echo.Echo
	store     parking.Store
	clock     *fakeClock
	publisher *recordingPublisher
}

func newTestServer(s parking.Store, limiter *limiterStore) *testServer {
	if s == nil {
		s = store.NewMemory()
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	logger := quietLogger()

	ts := newTicketServiceWithStore(s, parking.WithClock(clock.Now), parking.WithLogger(logger))
	publisher := &recordingPublisher{}
	notifier := NewNotificationService(publisher, logger)
	handlers := NewHandlers(ts, &inlineReceiptDispatcher{notifier: notifier}, logger)

	return &testServer{
		e:         newServer(handlers, serverOptions{limiter: limiter}),
		store:     s,
		clock:     clock,
		publisher: publisher,
	}
}

func (s *testServer) do(method, target string) *httptest.ResponseRecorder {
	return s.doFrom("192.0.2.1:4321", method, target)
}

func (s *testServer) doFrom(remoteAddr, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}
