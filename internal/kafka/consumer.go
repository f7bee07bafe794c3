package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// IndexInvalidator drops a cached symbol index
type IndexInvalidator interface {
	Invalidate()
}

const defaultRetryDelay = time.Second

// Consumer listens for symbol index rebuilds published by other instances and drops
// the local cached index so the next read reloads it from the shared store.
type Consumer struct {
	reader     messageReader
	index      IndexInvalidator
	retryDelay time.Duration
}

// NewConsumer creates a consumer. Every instance needs its own groupID to see every
// rebuild event.
func NewConsumer(brokers []string, topic, groupID string, index IndexInvalidator) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1e6,
		MaxWait:        time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:     reader,
		index:      index,
		retryDelay: defaultRetryDelay,
	}
}

// Start consumes events until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("Starting Kafka consumer for symbol index events")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				log.Info().Msg("Kafka consumer shutting down")
				return nil
			}
			log.Error().Err(err).Dur("retry_in", c.retryDelay).Msg("Error reading message")
			select {
			case <-ctx.Done():
				log.Info().Msg("Kafka consumer shutting down")
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.processMessage(msg); err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Error processing message")
		}
	}
}

func (c *Consumer) processMessage(msg kafka.Message) error {
	var event models.PortfolioEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal portfolio event: %w", err)
	}

	if event.EventType != models.EventSymbolIndexRebuilt {
		return nil
	}

	c.index.Invalidate()
	log.Info().Int("symbols", event.Count).Time("rebuilt_at", event.Timestamp).Msg("Symbol index invalidated by rebuild event")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
