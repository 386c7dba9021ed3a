package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	pubnubgo "github.com/pubnub/go"
)

var (
	_ Publisher = (*pubnub)(nil)
	_ Publisher = (*logPublisher)(nil)
)

type PubNubConfig struct {
	PublishKey, SubscribeKey, SecretKey, UUID string
}

// Publisher pushes a message to a realtime channel and returns the
// publish timetoken.
type Publisher interface {
	Publish(ctx context.Context, channel string, messagePayload any) (string, error)
}

func NewPubnub(pnCfg *PubNubConfig) (Publisher, error) {
	if pnCfg == nil {
		return nil, fmt.Errorf("[NewPubnub] pnCfg: must not be nil")
	}
	if pnCfg.PublishKey == "" || pnCfg.SubscribeKey == "" {
		return nil, fmt.Errorf("[NewPubnub] publish and subscribe keys are required")
	}

	cfg := pubnubgo.NewConfig()
	cfg.PublishKey = pnCfg.PublishKey
	cfg.SubscribeKey = pnCfg.SubscribeKey
	cfg.SecretKey = pnCfg.SecretKey
	cfg.UUID = pnCfg.UUID

	return &pubnub{pn: pubnubgo.NewPubNub(cfg)}, nil
}

type pubnub struct {
	pn *pubnubgo.PubNub
}

func (p *pubnub) Publish(ctx context.Context, channel string, messagePayload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageJSON, err := json.Marshal(messagePayload)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	resp, _, err := p.pn.Publish().Channel(channel).Message(string(messageJSON)).Execute()
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}

	return strconv.FormatInt(resp.Timestamp, 10), nil
}

// logPublisher stands in for PubNub when no keys are configured.
type logPublisher struct {
	logger *slog.Logger
}

func (p *logPublisher) Publish(_ context.Context, channel string, messagePayload any) (string, error) {
	p.logger.Info("Publishing message", "channel", channel, "message", messagePayload)
	return "", nil
}
