// Package stream publishes audit entries to Kafka for out-of-process shipping
// (the worker forwards them to Loki).
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"classtrack/backend/internal/audit/domain"
)

// wireEntry is the JSON shape published to Kafka and consumed by the worker.
type wireEntry struct {
	ID         string               `json:"id"`
	TenantID   string               `json:"tenantId"`
	Module     string               `json:"module"`
	Action     string               `json:"action"`
	EntityID   string               `json:"entityId,omitempty"`
	Actor      domain.Actor         `json:"actor"`
	IP         string               `json:"ip,omitempty"`
	UserAgent  string               `json:"userAgent,omitempty"`
	Changes    []domain.FieldChange `json:"changes,omitempty"`
	Snapshot   map[string]any       `json:"snapshot,omitempty"`
	Metadata   map[string]any       `json:"metadata,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// KafkaProducer publishes audit entries using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a producer that writes audit entries to the given
// topic, keyed by tenant so one tenant's events stay ordered within a
// partition. Returns (nil, nil) when brokers or topic are unset. Call Close
// when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaProducer{writer: writer}, nil
}

// Publish sends one entry. Best-effort from the caller's point of view: the
// audit logger logs and swallows any error returned here.
func (p *KafkaProducer) Publish(ctx context.Context, e *domain.Entry) error {
	value, err := json.Marshal(wireEntry{
		ID:         e.ID,
		TenantID:   e.TenantID,
		Module:     e.Module,
		Action:     e.Action,
		EntityID:   e.EntityID,
		Actor:      e.Actor,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		Changes:    e.Changes,
		Snapshot:   e.Snapshot,
		Metadata:   e.Metadata,
		OccurredAt: e.OccurredAt,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.TenantID),
		Value: value,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
