package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

// ConfirmationHandler receives each acknowledgement from the confirmation
// stream.
type ConfirmationHandler func(ctx context.Context, msg *Confirmation)

// Consumer reads upload confirmations from the message bus and feeds them
// to the completion correlator.
type Consumer struct {
	consumer sarama.ConsumerGroup
}

func NewConsumer(brokers []string, groupID string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c}, nil
}

type consumerHandler struct {
	fn  ConfirmationHandler
	ctx context.Context
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var confirmation Confirmation
		if err := json.Unmarshal(msg.Value, &confirmation); err != nil {
			session.MarkMessage(msg, "")
			continue
		}
		h.fn(h.ctx, &confirmation)
		session.MarkMessage(msg, "")
	}
	return nil
}

// Consume blocks, delivering confirmations until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context, topic string, handler ConfirmationHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx}
	for {
		if err := c.consumer.Consume(ctx, []string{topic}, h); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
