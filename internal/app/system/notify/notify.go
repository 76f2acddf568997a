// internal/app/system/notify/notify.go

// Package notify publishes approval decisions and signups as JSON events so
// other services (mail, audit) can react to them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dalemusser/collegehub/internal/domain/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event actions.
const (
	ActionRegistered = "registered"
	ActionApproved   = "approved"
	ActionRejected   = "rejected"
	ActionRemoved    = "removed"
)

// Event is the message body written to the topic.
type Event struct {
	EventID    string    `json:"event_id"`
	Action     string    `json:"action"`
	Role       string    `json:"role"`
	RecordID   string    `json:"record_id"`
	AuthID     string    `json:"auth_id"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an event for rec with a fresh id.
func NewEvent(action string, rec models.RoleRecord) Event {
	return Event{
		EventID:    uuid.NewString(),
		Action:     action,
		Role:       string(rec.RoleType),
		RecordID:   rec.RecordID,
		AuthID:     rec.AuthID,
		Name:       rec.Name(),
		Email:      rec.Fields.String(models.FieldEmail),
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events. Publish failures are reported to the caller,
// which decides whether they matter.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes events to one topic, keyed by record so that every event of
// one record lands on the same partition.
type Kafka struct {
	w     messageWriter
	topic string
	log   *zap.Logger
}

// NewKafka creates an asynchronous publisher for brokers.
func NewKafka(brokers []string, topic string, logger *zap.Logger) *Kafka {
	logger = logger.With(zap.String("topic", topic))
	sugar := logger.Sugar()
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(sugar.Debugf),
		ErrorLogger:            kafka.LoggerFunc(sugar.Errorf),
	}
	return &Kafka{w: w, topic: topic, log: logger}
}

func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Role + "/" + ev.RecordID),
		Value: b,
		Topic: k.topic,
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	k.log.Debug("event published",
		zap.String("event_id", ev.EventID),
		zap.String("action", ev.Action),
		zap.String("record_id", ev.RecordID))
	return nil
}

// Close flushes pending messages.
func (k *Kafka) Close() error {
	if err := k.w.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
