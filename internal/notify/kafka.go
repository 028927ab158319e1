package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
)

// Event is the JSON payload published for each decision.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Notice     Notice    `json:"notice"`
	Reason     string    `json:"reason,omitempty"`
}

// MessageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes decisions to a topic for a mail worker to consume.
// Messages are keyed by booking id so decisions on one booking stay ordered.
type KafkaNotifier struct {
	writer MessageWriter
	now    func() time.Time
	newID  func() string
}

// NewKafkaNotifier builds a notifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.New("notify: at least one kafka broker is required")
	}
	if topic == "" {
		return nil, errors.New("notify: kafka topic cannot be empty")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(func(string, ...any) {}),
	}
	return NewKafkaNotifierWithWriter(writer), nil
}

// NewKafkaNotifierWithWriter wraps an existing writer.
func NewKafkaNotifierWithWriter(writer MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{
		writer: writer,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (n *KafkaNotifier) BookingConfirmed(ctx context.Context, notice Notice) error {
	return n.publish(ctx, Event{Type: EventBookingConfirmed, Notice: notice})
}

func (n *KafkaNotifier) BookingRejected(ctx context.Context, notice Notice, reason string) error {
	return n.publish(ctx, Event{Type: EventBookingRejected, Notice: notice, Reason: reason})
}

func (n *KafkaNotifier) publish(ctx context.Context, event Event) error {
	event.ID = n.newID()
	event.OccurredAt = n.now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode %s event: %w", event.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Notice.BookingID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notify: publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
