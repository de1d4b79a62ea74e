package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

// Publisher is the fire-and-forget event sink for task lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event string, key string, payload any) error
	Close() error
}

type publisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

func NewPublisher(brokers []string, topicPrefix string) (Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &publisher{producer: p, topicPrefix: topicPrefix}, nil
}

func (p *publisher) Publish(_ context.Context, event string, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topicPrefix + "." + event,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *publisher) Close() error {
	return p.producer.Close()
}
