// Package sink mirrors relay events to analytics streams.
package sink

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes every event to a Kafka topic keyed by bus channel.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Emit(ctx context.Context, channel string, payload []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channel),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "channel", Value: []byte(channel)},
		},
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
