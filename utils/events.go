package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cppla/boardhub/config"
)

const (
	EventUserRegistered = "user.registered"
	EventUserDeleted    = "user.deleted"
	EventPostDeleted    = "post.deleted"
)

// Event is a domain notification. Delivery is best effort.
type Event struct {
	Type    string                 `json:"type"`
	At      time.Time              `json:"at"`
	ActorID uint                   `json:"actor_id"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// EventPublisher never blocks the request on delivery and never fails it.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

// NewEventPublisher returns a Kafka publisher when brokers are configured, otherwise a log-only one.
func NewEventPublisher(cfg config.AppConfig) EventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		return LogPublisher{}
	}
	return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// KafkaPublisher writes events as JSON to a single topic keyed by event type.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				Logger.Warn("event delivery failed", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		Logger.Warn("event encode failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Type), Value: b}); err != nil {
		Logger.Warn("event publish failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the application log only.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev Event) {
	Logger.Info("event", zap.String("type", ev.Type), zap.Uint("actor_id", ev.ActorID), zap.Any("data", ev.Data))
}

func (LogPublisher) Close() error { return nil }
