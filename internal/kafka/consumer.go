package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

// ErrInvalidBar marks a bar event that cannot be stored
var ErrInvalidBar = errors.New("invalid bar")

// PriceDataRepository defines the storage the bar consumer writes to
type PriceDataRepository interface {
	CreatePriceData(ctx context.Context, p *models.PriceDataDaily) error
}

// BarHandler is notified after a bar has been stored
type BarHandler func(ctx context.Context, bar *models.PriceDataDaily)

// Consumer ingests daily bars published by the market-data feed
type Consumer struct {
	reader *kafka.Reader
	repo   PriceDataRepository
	onBar  BarHandler
	log    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for bar events
func NewConsumer(brokers []string, topic, groupID string, repo PriceDataRepository, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		log:    log.With().Str("component", "bar_consumer").Str("topic", topic).Logger(),
	}
}

// OnBar registers a callback run after each stored bar
func (c *Consumer) OnBar(h BarHandler) {
	c.onBar = h
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Msg("starting bar consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("bar consumer shutting down")
				return nil
			}
			c.log.Error().Err(err).Msg("error reading message")
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			c.log.Warn().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("skipping message")
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.BarEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal bar event: %w", err)
	}

	if event.EventType != models.EventBarReceived {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}

	bar := event.Bar
	if bar.Symbol == "" {
		bar.Symbol = string(msg.Key)
	}
	if err := validateBar(&bar); err != nil {
		return err
	}

	if err := c.repo.CreatePriceData(ctx, &bar); err != nil {
		return fmt.Errorf("failed to save bar: %w", err)
	}

	c.log.Debug().
		Str("symbol", bar.Symbol).
		Time("date", bar.Date).
		Str("close", bar.Close.String()).
		Str("source", event.Source).
		Msg("stored bar")

	if c.onBar != nil {
		c.onBar(ctx, &bar)
	}
	return nil
}

// validateBar normalises the symbol and rejects bars the indicator engine
// cannot use
func validateBar(bar *models.PriceDataDaily) error {
	bar.Symbol = strings.ToUpper(strings.TrimSpace(bar.Symbol))
	switch {
	case bar.Symbol == "":
		return fmt.Errorf("%w: missing symbol", ErrInvalidBar)
	case bar.Date.IsZero():
		return fmt.Errorf("%w: %s has no date", ErrInvalidBar, bar.Symbol)
	case !bar.Close.IsPositive():
		return fmt.Errorf("%w: %s close must be positive", ErrInvalidBar, bar.Symbol)
	case bar.High.LessThan(bar.Low):
		return fmt.Errorf("%w: %s high below low", ErrInvalidBar, bar.Symbol)
	case bar.Volume < 0:
		return fmt.Errorf("%w: %s negative volume", ErrInvalidBar, bar.Symbol)
	}
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
