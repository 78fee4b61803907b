// Package events announces finalized records to other services over Kafka.
// Without brokers configured a no-op publisher is used.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
)

const TypeRecordFinalized = "record.finalized"

// Publisher delivers domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	RecordFinalized(ctx context.Context, rec *models.Record) error
	Close() error
}

// RecordFinalizedEvent is the JSON body of a record.finalized message.
type RecordFinalizedEvent struct {
	Type         string    `json:"type"`
	RecordID     string    `json:"recordId"`
	StorageKey   string    `json:"storageKey"`
	ThumbnailKey *string   `json:"thumbnailKey,omitempty"`
	Title        string    `json:"title"`
	Project      string    `json:"project"`
	CompanyID    *string   `json:"companyId,omitempty"`
	Tags         []string  `json:"tags"`
	SizeBytes    int64     `json:"sizeBytes"`
	IsCompressed bool      `json:"isCompressed"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func newRecordFinalizedEvent(rec *models.Record, at time.Time) RecordFinalizedEvent {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return RecordFinalizedEvent{
		Type:         TypeRecordFinalized,
		RecordID:     rec.ID,
		StorageKey:   rec.StorageKey,
		ThumbnailKey: rec.ThumbnailKey,
		Title:        rec.Title,
		Project:      rec.Project,
		CompanyID:    rec.CompanyID,
		Tags:         tags,
		SizeBytes:    rec.SizeBytes,
		IsCompressed: rec.IsCompressed,
		OccurredAt:   at.UTC(),
	}
}

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w   messageWriter
	log logging.Logger
	now func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string, log logging.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{w: w, log: log, now: time.Now}
}

func (p *KafkaPublisher) RecordFinalized(ctx context.Context, rec *models.Record) error {
	body, err := json.Marshal(newRecordFinalizedEvent(rec, p.now()))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(rec.ID),
		Value:   body,
		Headers: []kafka.Header{{Key: "type", Value: []byte(TypeRecordFinalized)}},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TypeRecordFinalized, err)
	}
	p.log.Debug(ctx, "event published", "type", TypeRecordFinalized, "record", rec.ID)
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

type NopPublisher struct{}

func (NopPublisher) RecordFinalized(context.Context, *models.Record) error { return nil }
func (NopPublisher) Close() error                                          { return nil }

// New returns a Kafka publisher, or a NopPublisher when brokers is empty.
func New(brokers []string, topic string, log logging.Logger) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic, log)
}
