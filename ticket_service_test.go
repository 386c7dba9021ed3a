package main

import (
	"context"
	"testing"

	"parking-lot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketService_MemoryDriver(t *testing.T) {
	cfg := &config.Config{Store: config.Store{Driver: "memory"}}

	ts, err := NewTicketService(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer ts.Close()

	id, err := ts.Enter(context.Background(), "MEM1", "L1")
	require.NoError(t, err)
	assert.Equal(t, "0001", id)

	ticket, err := ts.Lookup(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ticket.IsOpen())
}

func TestNewTicketService_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.Store{Driver: "dynamo"}}

	_, err := NewTicketService(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "dynamo")
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	logger := newLogger(config.Log{Level: "loud", Format: "text"})
	assert.True(t, logger.Enabled(context.Background(), 0))
	assert.False(t, logger.Enabled(context.Background(), -4))
}
