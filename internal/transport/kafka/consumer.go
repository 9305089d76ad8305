package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/logx"
	"quickbites-dispatch/internal/service/order"
)

// HandleFunc processes a single checkout input from Kafka.
type HandleFunc func(context.Context, order.CheckoutInput) error

// Consumer wraps a Sarama consumer group and dispatches checkout events to a
// handler.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler HandleFunc
	log     logx.Logger
}

// NewConsumer creates a new Kafka consumer. Returns nil (no error) when the
// broker settings are empty.
func NewConsumer(brokers []string, groupID, topic string, h HandleFunc, logger logx.Logger) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		handler: h,
		log:     logger,
	}, nil
}

// Run starts the consumer.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("kafka consume error", logx.Any("error", err))
			time.Sleep(time.Second)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close shuts down the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var dto CheckoutEventDTO
		if err := json.Unmarshal(msg.Value, &dto); err != nil {
			h.c.log.Warn("skipping malformed checkout message", logx.Any("error", err))
			sess.MarkMessage(msg, "")
			continue
		}
		if dto.UserID == uuid.Nil || len(dto.Items) == 0 {
			h.c.log.Warn("skipping empty checkout event")
			sess.MarkMessage(msg, "")
			continue
		}

		err := h.c.handler(sess.Context(), ToDomain(dto))
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrInvalid), IsPermanent(err):
			// malformed events cannot succeed on retry; skip them
			h.c.log.Warn("dropping invalid checkout event",
				logx.String("user_id", dto.UserID.String()),
				logx.Any("error", err),
			)
		default:
			h.c.log.Error("checkout handler failed, will retry",
				logx.String("user_id", dto.UserID.String()),
				logx.Any("error", err),
			)
			return err
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}
