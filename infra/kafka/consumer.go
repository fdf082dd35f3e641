package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"mako/service"
)

// Consumer reads the command log from a single partition in offset order.
// The engine manages its own position via recovery points, so the consumer
// never commits offsets to the broker.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer opens the log at the given offset. Pass kafka.FirstOffset to
// read from the beginning.
func NewConsumer(brokers []string, topic string, partition int, offset int64) (*Consumer, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := r.SetOffset(offset); err != nil {
		r.Close()
		return nil, fmt.Errorf("seek command log to offset %d: %w", offset, err)
	}
	return &Consumer{reader: r}, nil
}

// FirstOffset is the seek position for reading the log from its start.
const FirstOffset = kafka.FirstOffset

// Next blocks for the next record.
func (c *Consumer) Next(ctx context.Context) (service.RawCommand, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return service.RawCommand{}, err
	}
	return service.RawCommand{Offset: msg.Offset, Data: msg.Value}, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
