// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package bus implements the typed, in-process message bus that carries
// all cross-shard traffic. Shards and the worker manager never share a
// pointer to one another; every piece of cross-thread data crosses as a
// message on a named topic here.
//
// The router runs over pubsub/gochannel, Watermill's in-memory Pub/Sub
// implementation: a single-process deployment has no external broker to
// reach for, and the gochannel transport keeps the same router and
// middleware surface should one ever be introduced.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-memory envelope bus shared by the worker manager and its
// shards. One Bus instance serves the whole fleet; topics namespace the
// traffic, not separate Bus instances.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// New builds a Bus with panic-recovery and bounded-retry middleware
// pre-installed.
func New() (*Bus, error) {
	logger := watermill.NopLogger{}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
		Persistent:          false,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("create bus router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      2,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          logger,
	}.Middleware)

	return &Bus{pubsub: pubsub, router: router, logger: logger}, nil
}

// Publish marshals v as JSON and publishes it to topic.
func (b *Bus) Publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return b.pubsub.Publish(topic, msg)
}

// Subscribe returns the raw Watermill message channel for topic. Callers
// decode payloads with json.Unmarshal and must Ack/Nack each message.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// AddHandler registers a router-level handler that decodes each message
// into an Envelope before invoking fn, auto-Ack'ing on nil error.
func (b *Bus) AddHandler(name, subscribeTopic string, fn func(Envelope) error) {
	b.router.AddNoPublisherHandler(name, subscribeTopic, b.pubsub, func(msg *message.Message) error {
		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			// malformed envelopes are dropped, not retried
			return nil
		}
		return fn(env)
	})
}

// Run blocks processing registered handlers until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running closes once the router has started accepting messages.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close shuts down the router and the underlying Pub/Sub.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}

// ShardTopic is the inbox a given shard's control/dispatch messages are
// published to.
func ShardTopic(shardID int) string {
	return fmt.Sprintf("shard.%d.in", shardID)
}

// ManagerTopic is the inbox the worker manager listens on for shard
// events (results, errors, stats, status changes).
func ManagerTopic() string {
	return "manager.in"
}
