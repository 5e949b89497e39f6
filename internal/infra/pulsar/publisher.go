// Package pulsar publishes session lifecycle events to the message broker.
package pulsar

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/klwxsrx/storefront-console/internal/session"
	"github.com/klwxsrx/storefront-console/pkg/event"
	pkgpulsar "github.com/klwxsrx/storefront-console/pkg/pulsar"
	pkgstrings "github.com/klwxsrx/storefront-console/pkg/strings"
)

const (
	DefaultTopicPrefix = "persistent://public/default/storefront"

	eventTypePropertyName = "event_type"
)

type (
	Publisher struct {
		producer    pkgpulsar.Producer
		topicPrefix string
	}

	sessionEventPayload struct {
		ID         string    `json:"id"`
		Type       string    `json:"type"`
		OccurredAt time.Time `json:"occurredAt"`
		SubjectID  *int64    `json:"subjectId,omitempty"`
		Roles      []string  `json:"roles,omitempty"`
		Rotated    *bool     `json:"rotated,omitempty"`
		Reason     string    `json:"reason,omitempty"`
	}
)

func NewPublisher(producer pkgpulsar.Producer, topicPrefix string) *Publisher {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}

	return &Publisher{
		producer:    producer,
		topicPrefix: topicPrefix,
	}
}

// Subscriptions binds the publisher to every session event.
func (p *Publisher) Subscriptions() []event.Subscription {
	return []event.Subscription{
		event.Subscribe(func(ctx context.Context, e session.EventSessionStarted) error {
			return p.publish(ctx, e, e.Base, sessionEventPayload{
				SubjectID: e.SubjectID,
				Roles:     e.Roles,
			})
		}),
		event.Subscribe(func(ctx context.Context, e session.EventSessionRefreshed) error {
			rotated := e.Rotated
			return p.publish(ctx, e, e.Base, sessionEventPayload{
				SubjectID: e.SubjectID,
				Rotated:   &rotated,
			})
		}),
		event.Subscribe(func(ctx context.Context, e session.EventSessionEnded) error {
			return p.publish(ctx, e, e.Base, sessionEventPayload{
				SubjectID: e.SubjectID,
				Reason:    string(e.Reason),
			})
		}),
	}
}

// Topic is the per event type topic, e.g. session_ended goes to <prefix>-session-ended.
func (p *Publisher) Topic(eventType string) string {
	return fmt.Sprintf("%s-%s", p.topicPrefix, pkgstrings.ToKebabCase(eventType))
}

func (p *Publisher) publish(ctx context.Context, evt event.Event, base event.Base, payload sessionEventPayload) error {
	payload.ID = evt.ID().String()
	payload.Type = evt.Type()
	payload.OccurredAt = base.OccurredAt

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize event %v: %w", evt.ID(), err)
	}

	var key string
	if payload.SubjectID != nil {
		key = strconv.FormatInt(*payload.SubjectID, 10)
	}

	err = p.producer.Send(ctx, pkgpulsar.Message{
		ID:         evt.ID(),
		Topic:      p.Topic(evt.Type()),
		Key:        key,
		Payload:    body,
		Properties: map[string]string{eventTypePropertyName: evt.Type()},
	})
	if err != nil {
		return fmt.Errorf("publish event %v: %w", evt.ID(), err)
	}

	return nil
}
