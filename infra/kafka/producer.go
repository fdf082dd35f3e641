// Package kafka is the command log transport: a producer appending
// commands and a consumer reading them back in offset order.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer appends records to the command log. Writes are synchronous and
// require acknowledgement from all replicas: a command the caller saw
// accepted must survive a broker failure.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send appends one record.
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
