// Package broadcaster publishes engine events to the outbound stream.
// Delivery is best effort: a full queue drops the event rather than stall
// matching, and the command log remains the source of truth.
package broadcaster

import (
	"context"

	"github.com/IBM/sarama"
)

const queueDepth = 4096

type message struct {
	key     string
	payload []byte
}

// Broadcaster drains an in-process queue into a Kafka topic through a
// synchronous sarama producer.
type Broadcaster struct {
	producer sarama.SyncProducer
	topic    string
	queue    chan message
	done     chan struct{}
}

func New(brokers []string, topic string) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		producer: producer,
		topic:    topic,
		queue:    make(chan message, queueDepth),
		done:     make(chan struct{}),
	}, nil
}

// Enqueue queues an event for publication. Never blocks; events beyond the
// queue's capacity are dropped and counted in the log.
func (b *Broadcaster) Enqueue(key string, payload []byte) {
	select {
	case b.queue <- message{key: key, payload: payload}:
	default:
		log.Warnf("event queue full, dropping event for %s", key)
	}
}

// Run publishes queued events until ctx ends, then drains what is already
// queued before returning.
func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.done)
	log.Infof("broadcaster started on topic %s", b.topic)
	for {
		select {
		case <-ctx.Done():
			b.drain()
			return
		case m := <-b.queue:
			b.send(m)
		}
	}
}

func (b *Broadcaster) drain() {
	for {
		select {
		case m := <-b.queue:
			b.send(m)
		default:
			return
		}
	}
}

func (b *Broadcaster) send(m message) {
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(m.key),
		Value: sarama.ByteEncoder(m.payload),
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		log.Warnf("publishing event for %s: %v", m.key, err)
	}
}

// Close waits for the run loop to finish and releases the producer.
func (b *Broadcaster) Close() error {
	<-b.done
	return b.producer.Close()
}
