package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaPublisher ships audit events to a Kafka topic. Production is
// asynchronous; delivery reports are drained in the background so a slow
// broker never stalls the login path.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher creates a producer with idempotence enabled so retries
// cannot duplicate audit records.
func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"enable.idempotence": true,
		"acks":               "all",
	})
	if err != nil {
		return nil, fmt.Errorf("audit: create producer: %w", err)
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
	go p.handleDeliveryReports()

	logger.Info("audit publisher initialized", "brokers", brokers, "topic", topic)
	return p, nil
}

func (p *KafkaPublisher) Publish(_ context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(e.Kind),
		Value: data,
	}

	if err := p.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("audit: produce: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) handleDeliveryReports() {
	for e := range p.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			p.logger.Error("audit event delivery failed",
				"topic", p.topic,
				"error", m.TopicPartition.Error.Error(),
			)
		}
	}
}

// Close flushes pending events and releases the producer.
func (p *KafkaPublisher) Close() {
	remaining := p.producer.Flush(10_000)
	if remaining > 0 {
		p.logger.Warn("audit events not delivered before shutdown", "count", remaining)
	}
	p.producer.Close()
}
