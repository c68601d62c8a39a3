package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/rinkworks/venuepos/internal/port"
)

const eventTypeSaleCommitted = "sale.committed"

// KafkaPublisher emits committed-sale events. Messages are keyed by sale
// ID so downstream consumers see one sale's events in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishSaleCommitted(ctx context.Context, event port.SaleEvent) error {
	msg, err := buildMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write sale event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(event port.SaleEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal sale event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.SaleID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeSaleCommitted)},
		},
	}, nil
}
