package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yourorg/market-insights/internal/config"
)

// Topic keys looked up in the configured topic map.
const (
	topicPricesIngested = "pricesIngested"
	topicNewsIngested   = "newsIngested"
)

// IngestEvent announces that a write-through landed new rows or documents.
type IngestEvent struct {
	Ticker     string    `json:"ticker,omitempty"`
	Count      int       `json:"count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Producer publishes ingestion events to Kafka topics
type Producer struct {
	mu       sync.Mutex
	writers  map[string]*kafka.Writer
	brokers  []string
	clientID string
	topics   map[string]string
	logger   *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) *Producer {
	return &Producer{
		writers:  make(map[string]*kafka.Writer),
		brokers:  strings.Split(cfg.Brokers, ","),
		clientID: cfg.ClientID,
		topics:   cfg.Topics,
		logger:   logger,
	}
}

// PricesIngested announces freshly stored price bars for a ticker.
func (p *Producer) PricesIngested(ctx context.Context, ticker string, count int) error {
	return p.publish(ctx, p.topics[topicPricesIngested], ticker, IngestEvent{
		Ticker:     ticker,
		Count:      count,
		IngestedAt: time.Now().UTC(),
	})
}

// NewsIngested announces freshly stored news documents.
func (p *Producer) NewsIngested(ctx context.Context, ticker string, count int) error {
	return p.publish(ctx, p.topics[topicNewsIngested], ticker, IngestEvent{
		Ticker:     ticker,
		Count:      count,
		IngestedAt: time.Now().UTC(),
	})
}

// getWriter returns a Kafka writer for the specified topic
func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Transport: &kafka.Transport{
			ClientID: p.clientID,
		},
	}

	p.writers[topic] = writer
	return writer
}

// publish sends an event to a Kafka topic, keyed by ticker so a ticker's
// events stay ordered within a partition.
func (p *Producer) publish(ctx context.Context, topic, key string, event IngestEvent) error {
	if topic == "" {
		return nil
	}
	writer := p.getWriter(topic)

	jsonValue, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			zap.String("topic", topic),
			zap.Error(err))
		return err
	}

	kafkaMsg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
		Time:  time.Now(),
	}

	err = writer.WriteMessages(ctx, kafkaMsg)
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Event published",
		zap.String("topic", topic),
		zap.String("key", key))

	return nil
}

// Close closes all Kafka writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
	return nil
}
