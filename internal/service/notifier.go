// Package service provides the notification sink used to fan out
// session and commerce events. The sink is an interface so the game
// and commerce handlers stay testable without a live broker.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationSink receives domain events for asynchronous fan-out.
// Implementations must be safe for concurrent use and must not block
// the request path on broker trouble; delivery is best effort and an
// error only signals that the event was dropped.
type NotificationSink interface {
	Publish(ctx context.Context, topic string, event any) error
}

// Event topics. Topic names double as queue names on the broker.
const (
	TopicTeamJoined     = "game.team_joined"
	TopicSessionStarted = "game.session_started"
	TopicOrderPaid      = "commerce.order_paid"
)

// AMQPSink publishes events to RabbitMQ, one durable queue per topic.
// A connection is dialed per publish; event volume here is a handful
// per session, not a firehose.
type AMQPSink struct {
	URL string
}

// NewAMQPSink returns a sink for the given broker URL.
func NewAMQPSink(url string) *AMQPSink { return &AMQPSink{URL: url} }

// Publish marshals the event and sends it as a persistent message on
// the topic's queue. Errors are logged and returned; callers ignore
// them on the request path.
func (s *AMQPSink) Publish(ctx context.Context, topic string, event any) error {
	conn, err := amqp.Dial(s.URL)
	if err != nil {
		log.Printf("notifier: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("notifier: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		log.Printf("notifier: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("notifier: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", topic, false, false, pub); err != nil {
		log.Printf("notifier: publish to %s failed: %v", topic, err)
		return err
	}
	return nil
}

// NopSink drops every event. Used when no broker is configured and in
// tests.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, any) error { return nil }
