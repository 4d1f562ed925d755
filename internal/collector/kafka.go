package collector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
)

// KafkaSource implements Source using segmentio/kafka-go.
type KafkaSource struct {
	brokers       string
	topic         string
	consumerGroup string
	reader        *kafka.Reader
	messages      chan SourceMessage
}

// NewKafkaSource creates a Kafka-backed event source. Brokers is a
// comma-separated list of bootstrap addresses.
func NewKafkaSource(brokers, topic, consumerGroup string) *KafkaSource {
	return &KafkaSource{
		brokers:       brokers,
		topic:         topic,
		consumerGroup: consumerGroup,
		messages:      make(chan SourceMessage, 100),
	}
}

// Start begins consuming from the ingest topic.
func (k *KafkaSource) Start(ctx context.Context) error {
	k.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(k.brokers, ","),
		Topic:    k.topic,
		GroupID:  k.consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	go func() {
		for {
			msg, err := k.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("KafkaSource: read error", "topic", k.topic, "error", err)
				continue
			}
			k.messages <- SourceMessage{Key: msg.Key, Value: msg.Value}
		}
	}()
	return nil
}

// Messages returns the channel of consumed messages.
func (k *KafkaSource) Messages() <-chan SourceMessage { return k.messages }

// Close stops the reader.
func (k *KafkaSource) Close() error {
	if k.reader != nil {
		return k.reader.Close()
	}
	return nil
}

// ChannelSource is an in-process Source implementation backed by a Go
// channel, used in tests.
type ChannelSource struct {
	ch chan SourceMessage
}

// NewChannelSource creates an in-process source.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{ch: make(chan SourceMessage, 100)}
}

// Start is a no-op for the channel source.
func (c *ChannelSource) Start(ctx context.Context) error { return nil }

// Messages returns the message channel.
func (c *ChannelSource) Messages() <-chan SourceMessage { return c.ch }

// Close closes the channel.
func (c *ChannelSource) Close() error {
	close(c.ch)
	return nil
}

// Send pushes a message into the channel source.
func (c *ChannelSource) Send(msg SourceMessage) {
	c.ch <- msg
}
