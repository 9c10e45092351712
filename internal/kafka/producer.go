package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes stock and prediction events keyed by symbol
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newProducer(writer, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic, now: time.Now}
}

// PublishStockAdded publishes a stock added event
func (p *Producer) PublishStockAdded(ctx context.Context, stock *models.Stock) error {
	return p.publish(ctx, stock.Symbol, models.StockEvent{
		EventType: models.EventStockAdded,
		Stock:     stock,
		Symbol:    stock.Symbol,
		Timestamp: p.now(),
	})
}

// PublishStockRemoved publishes a stock removed event
func (p *Producer) PublishStockRemoved(ctx context.Context, symbol string) error {
	return p.publish(ctx, symbol, models.StockEvent{
		EventType: models.EventStockRemoved,
		Symbol:    symbol,
		Timestamp: p.now(),
	})
}

// PublishPrediction announces a newly generated forecast
func (p *Producer) PublishPrediction(ctx context.Context, prediction *models.Prediction) error {
	return p.publish(ctx, prediction.Symbol, models.StockEvent{
		EventType:  models.EventPredictionGenerated,
		Prediction: prediction,
		Symbol:     prediction.Symbol,
		Timestamp:  p.now(),
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.StockEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", event.EventType, p.topic, err)
	}
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
