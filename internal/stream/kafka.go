package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Kafka is the local-development transport. It publishes like Kinesis and
// can also consume, handing back raw record values in poll-sized batches.
type Kafka struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

func NewKafkaProducer(brokers []string, topic string, log *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newKafka(client, topic, log), nil
}

func NewKafkaConsumer(brokers []string, topic, group string, log *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return newKafka(client, topic, log), nil
}

func newKafka(client *kgo.Client, topic string, log *slog.Logger) *Kafka {
	if log == nil {
		log = slog.Default()
	}
	return &Kafka{client: client, topic: topic, log: log}
}

func (k *Kafka) Publish(ctx context.Context, partitionKey string, data []byte) error {
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(partitionKey),
		Value: data,
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", k.topic, err)
	}
	k.log.Info("kafka: record published", "topic", k.topic, "key", partitionKey)
	return nil
}

// Poll blocks until records arrive or ctx ends and returns their values.
func (k *Kafka) Poll(ctx context.Context) ([][]byte, error) {
	fetches := k.client.PollFetches(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if fetches.IsClientClosed() {
		return nil, ErrClosed
	}
	for _, fe := range fetches.Errors() {
		k.log.Warn("kafka: fetch error", "topic", fe.Topic, "partition", fe.Partition, "err", fe.Err)
	}

	var values [][]byte
	iter := fetches.RecordIter()
	for !iter.Done() {
		values = append(values, iter.Next().Value)
	}
	return values, nil
}

func (k *Kafka) Close() {
	k.client.Close()
}
