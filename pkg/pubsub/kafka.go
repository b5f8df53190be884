package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	applog "github.com/weiawesome/streamchat/pkg/log"
)

const (
	defaultKafkaGroup      = "streamchat-relay"
	defaultKafkaPartitions = 4
	kafkaPollMillis        = 500
	kafkaFlushMillis       = 5000
	topicCreateTimeout     = 10 * time.Second
)

// relayConsumer is one running topic consumer.
type relayConsumer struct {
	consumer *kafka.Consumer
	stop     context.CancelFunc
}

func (rc *relayConsumer) close() error {
	rc.stop()
	return rc.consumer.Close()
}

// KafkaPubSub relays events through Kafka topics.
//
// A channel maps to a topic ("chat:relay:default" -> "chat-relay-default")
// and messages are keyed by stream id, so one stream's chat stays ordered
// on a single partition. Each process consumes under its own group id,
// which makes every instance see every message.
type KafkaPubSub struct {
	cfg      KafkaConfig
	instance string
	buffer   int
	logger   zerolog.Logger

	producer *kafka.Producer
	reports  chan struct{}

	mu        sync.Mutex
	consumers map[string]*relayConsumer
}

// NewKafkaPubSub creates the producer. Consumers are created per Subscribe.
func NewKafkaPubSub(cfg KafkaConfig, buffer int) (*KafkaPubSub, error) {
	if cfg.GroupID == "" {
		cfg.GroupID = defaultKafkaGroup
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = defaultKafkaPartitions
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	producer, err := kafka.NewProducer(producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		cfg:       cfg,
		instance:  uuid.NewString(),
		buffer:    buffer,
		logger:    applog.Component("pubsub.kafka"),
		producer:  producer,
		reports:   make(chan struct{}),
		consumers: make(map[string]*relayConsumer),
	}
	go k.watchDeliveries()

	return k, nil
}

func producerConfig(cfg KafkaConfig) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	}
}

// consumerConfig starts new groups at the log end: the relay carries live
// chat only and never replays history.
func consumerConfig(cfg KafkaConfig, groupID string) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":       cfg.Brokers,
		"group.id":                groupID,
		"auto.offset.reset":       "latest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	}
}

var groupUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// consumerGroupID names the group of one instance's consumer on a channel.
func consumerGroupID(base, channel, instance string) string {
	return groupUnsafe.ReplaceAllString(base+"-"+channel+"-"+instance, "-")
}

// relayMessage builds the record for event on topic.
func relayMessage(topic string, event *Event) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.StreamID),
		Value:          value,
		Timestamp:      event.Timestamp,
	}, nil
}

func (k *KafkaPubSub) watchDeliveries() {
	defer close(k.reports)
	for e := range k.producer.Events() {
		msg, ok := e.(*kafka.Message)
		if !ok || msg.TopicPartition.Error == nil {
			continue
		}
		k.logger.Error().
			Err(msg.TopicPartition.Error).
			Str(applog.FieldStreamID, string(msg.Key)).
			Msg("delivery failed")
	}
}

// createTopic is idempotent; an existing topic is not an error.
func (k *KafkaPubSub) createTopic(topic string) error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), topicCreateTimeout)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     k.cfg.Partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("failed to create topic %s: %w", r.Topic, r.Error)
		}
	}
	return nil
}

// Publish enqueues event on the channel's topic. Delivery failures are
// reported asynchronously in the log.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic, err := channelToTopic(channel)
	if err != nil {
		return err
	}
	msg, err := relayMessage(topic, event)
	if err != nil {
		return err
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer for the channel's topic. A second Subscribe
// on the same channel replaces the first.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	topic, err := channelToTopic(channel)
	if err != nil {
		return nil, err
	}
	if err := k.createTopic(topic); err != nil {
		k.logger.Warn().Err(err).Str("topic", topic).Msg("topic not created, subscribing anyway")
	}

	groupID := consumerGroupID(k.cfg.GroupID, channel, k.instance)
	consumer, err := kafka.NewConsumer(consumerConfig(k.cfg, groupID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := consumer.Subscribe(topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	runCtx, stop := context.WithCancel(ctx)
	out := make(chan *Event, k.buffer)

	k.mu.Lock()
	if prev, ok := k.consumers[channel]; ok {
		prev.close()
	}
	k.consumers[channel] = &relayConsumer{consumer: consumer, stop: stop}
	k.mu.Unlock()

	k.logger.Debug().Str("topic", topic).Str("group", groupID).Msg("consumer started")
	go k.consume(runCtx, consumer, out)

	return out, nil
}

func (k *KafkaPubSub) consume(ctx context.Context, consumer *kafka.Consumer, out chan<- *Event) {
	defer close(out)

	for ctx.Err() == nil {
		switch e := consumer.Poll(kafkaPollMillis).(type) {
		case nil:
		case *kafka.Message:
			event := &Event{}
			if err := json.Unmarshal(e.Value, event); err != nil {
				k.logger.Warn().Err(err).Msg("dropping malformed event")
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			default:
				k.logger.Warn().Str(applog.FieldStreamID, event.StreamID).Msg("subscriber buffer full, event dropped")
			}
		case kafka.Error:
			k.logger.Error().Err(e).Int("code", int(e.Code())).Bool("fatal", e.IsFatal()).Msg("consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Unsubscribe stops the channel's consumer, if any.
func (k *KafkaPubSub) Unsubscribe(ctx context.Context, channel string) error {
	k.mu.Lock()
	rc, ok := k.consumers[channel]
	delete(k.consumers, channel)
	k.mu.Unlock()

	if !ok {
		return nil
	}
	if err := rc.close(); err != nil {
		return fmt.Errorf("failed to close consumer: %w", err)
	}
	return nil
}

// Close stops every consumer, flushes pending messages and closes the
// producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	for channel, rc := range k.consumers {
		rc.close()
		delete(k.consumers, channel)
	}
	k.mu.Unlock()

	if left := k.producer.Flush(kafkaFlushMillis); left > 0 {
		k.logger.Warn().Int("pending", left).Msg("closing with undelivered messages")
	}
	k.producer.Close()
	<-k.reports
	return nil
}
