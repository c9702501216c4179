// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bus is the typed cross-component notification channel.
package bus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// =============================================================================
// EVENTS
// =============================================================================

// Topic names. Collaborators publish to declared topics instead of
// broadcasting untyped events.
const (
	TopicDocumentUploaded  = "document.uploaded"
	TopicDocumentDeleted   = "document.deleted"
	TopicSuggestionClicked = "suggestion.clicked"
)

// DocumentUploaded announces a document accepted by the backend, whether
// the upload started in the chat surface or outside it.
type DocumentUploaded struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind"` // "pdf" or "csv"
}

// DocumentDeleted announces a document removed outside the chat surface.
type DocumentDeleted struct {
	Filename string `json:"filename"`
}

// SuggestionClicked announces a suggested follow-up the user selected; the
// orchestrator consumes it as an ordinary user turn.
type SuggestionClicked struct {
	Text string `json:"text"`
}

// =============================================================================
// BUS
// =============================================================================

// Bus is an in-process publish/subscribe channel built on Watermill's
// gochannel transport. It exists so collaborators call declared methods
// with typed payloads; it is not a general pub/sub framework.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

// New creates the bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
		logger: logger,
	}
}

// Close shuts the bus down, ending all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// publish marshals a payload onto a topic.
func (b *Bus) publish(topic string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("failed to encode bus event", zap.String("topic", topic), zap.Error(err))
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		b.logger.Warn("failed to publish bus event", zap.String("topic", topic), zap.Error(err))
	}
}

// PublishDocumentUploaded announces an accepted upload.
func (b *Bus) PublishDocumentUploaded(filename, kind string) {
	b.publish(TopicDocumentUploaded, DocumentUploaded{Filename: filename, Kind: kind})
}

// PublishDocumentDeleted announces a deletion.
func (b *Bus) PublishDocumentDeleted(filename string) {
	b.publish(TopicDocumentDeleted, DocumentDeleted{Filename: filename})
}

// PublishSuggestionClicked announces a selected follow-up.
func (b *Bus) PublishSuggestionClicked(text string) {
	b.publish(TopicSuggestionClicked, SuggestionClicked{Text: text})
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Handlers receives decoded bus events. Nil fields are skipped.
type Handlers struct {
	DocumentUploaded  func(DocumentUploaded)
	DocumentDeleted   func(DocumentDeleted)
	SuggestionClicked func(SuggestionClicked)
}

// Subscribe starts one goroutine per handled topic, delivering decoded
// events until ctx is cancelled or the bus closes. Undecodable payloads
// are acknowledged and dropped.
func (b *Bus) Subscribe(ctx context.Context, h Handlers) error {
	if h.DocumentUploaded != nil {
		if err := subscribe(ctx, b, TopicDocumentUploaded, h.DocumentUploaded); err != nil {
			return err
		}
	}
	if h.DocumentDeleted != nil {
		if err := subscribe(ctx, b, TopicDocumentDeleted, h.DocumentDeleted); err != nil {
			return err
		}
	}
	if h.SuggestionClicked != nil {
		if err := subscribe(ctx, b, TopicSuggestionClicked, h.SuggestionClicked); err != nil {
			return err
		}
	}
	return nil
}

// subscribe wires one topic to one typed handler.
func subscribe[T any](ctx context.Context, b *Bus, topic string, handler func(T)) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var event T
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("dropping undecodable bus event",
					zap.String("topic", topic), zap.Error(err))
				msg.Ack()
				continue
			}
			handler(event)
			msg.Ack()
		}
	}()
	return nil
}
