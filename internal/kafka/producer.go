package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

// messageWriter is the subset of *kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing portfolio events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishPortfolioUploaded publishes a portfolio uploaded event
func (p *Producer) PublishPortfolioUploaded(ctx context.Context, symbols []string) error {
	return p.publish(ctx, models.PortfolioEvent{
		EventType: models.EventPortfolioUploaded,
		Symbols:   symbols,
		Count:     len(symbols),
	})
}

// PublishPricesRefreshed publishes a prices refreshed event
func (p *Producer) PublishPricesRefreshed(ctx context.Context, symbols []string) error {
	return p.publish(ctx, models.PortfolioEvent{
		EventType: models.EventPricesRefreshed,
		Symbols:   symbols,
		Count:     len(symbols),
	})
}

// PublishSymbolIndexRebuilt publishes a symbol index rebuilt event
func (p *Producer) PublishSymbolIndexRebuilt(ctx context.Context, count int) error {
	return p.publish(ctx, models.PortfolioEvent{
		EventType: models.EventSymbolIndexRebuilt,
		Count:     count,
	})
}

func (p *Producer) publish(ctx context.Context, event models.PortfolioEvent) error {
	event.Timestamp = p.now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventType),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
