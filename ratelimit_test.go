package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit_RejectsSecondRequestFromSameClient(t *testing.T) {
	srv := newTestServer(nil, newLimiterStore(0.01, 1))

	rec := srv.doFrom("10.0.0.1:1000", http.MethodPost, "/entry?plate=R1&parkingLot=L1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.doFrom("10.0.0.1:1001", http.MethodPost, "/exit?ticketId=0001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())

	// other clients have their own bucket
	rec = srv.doFrom("10.0.0.2:1000", http.MethodPost, "/exit?ticketId=0001")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_HealthIsNotLimited(t *testing.T) {
	srv := newTestServer(nil, newLimiterStore(0.01, 1))

	for i := 0; i < 3; i++ {
		rec := srv.doFrom("10.0.0.1:1000", http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestLimiterStore_SameKeySameLimiter(t *testing.T) {
	s := newLimiterStore(10, 1)
	assert.Same(t, s.get("k"), s.get("k"))
	assert.NotSame(t, s.get("k"), s.get("other"))
}

func TestLimiterStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := newLimiterStore(10, 1)
	s.idleTTL = time.Minute

	before := s.get("k")
	assert.Equal(t, 0, s.cleanup(time.Now()))
	assert.Equal(t, 1, s.cleanup(time.Now().Add(2*time.Minute)))

	after := s.get("k")
	assert.NotSame(t, before, after)
}
