package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"user-wallet-service/config"
	"user-wallet-service/internal/core/domain"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a kafka writer for the wallet events topic.
func NewWriter(cfg config.KafkaConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},    // Use hash balancer to guarantee order
		RequiredAcks: kafkago.RequireOne, // Wait for acknowledgement from leader
		Async:        false,              // Synchronous writing for reliability
		MaxAttempts:  10,
	}
}

// EventPublisher implements ports.EventPublisher on a kafka topic.
type EventPublisher struct {
	writer messageWriter
	log    zerolog.Logger
}

// NewEventPublisher creates a kafka-backed event publisher.
func NewEventPublisher(writer messageWriter, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{writer: writer, log: log}
}

// envelope is the wire format: the event type travels next to the
// payload so consumers can dispatch without inspecting it.
type envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// Publish sends a domain event keyed by wallet ID so events of the same
// wallet land on one partition in order.
func (p *EventPublisher) Publish(ctx context.Context, key string, event domain.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	value, err := json.Marshal(envelope{
		EventID:   event.EventID(),
		EventType: event.EventType(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("write event to kafka: %w", err)
	}

	p.log.Debug().
		Str("event_id", event.EventID()).
		Str("event_type", event.EventType()).
		Str("key", key).
		Msg("event published")

	return nil
}

// Close flushes and closes the underlying writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
