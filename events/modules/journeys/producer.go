package journeys

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// JourneyProducer handles sending journey status change events to Kafka
type JourneyProducer struct {
	Writer *kafka.Writer
}

// NewJourneyProducer initializes a new Kafka writer for journey events
func NewJourneyProducer(brokers []string, topic string) *JourneyProducer {
	return &JourneyProducer{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishStatusChanged sends the event to the Kafka topic. Messages for one
// journey share a key so they land on one partition in order.
func (p *JourneyProducer) PublishStatusChanged(ctx context.Context, event JourneyStatusChangedEvent) error {
	event.EventType = "journey.status.changed"
	event.EventID = uuid.New().String()
	event.EventTime = time.Now().UTC()
	event.SchemaVersion = "v1"

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.JourneyID),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *JourneyProducer) Close() error {
	return p.Writer.Close()
}
