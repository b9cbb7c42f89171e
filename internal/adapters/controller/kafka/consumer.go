package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/thejerf/suture/v4"

	"github.com/cjfitness/notifier/internal/adapters/metrics"
	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/internal/domain/entity"
	"github.com/cjfitness/notifier/pkg/logger/types"
)

const maxRetryBackoff = 30 * time.Second

type notificationCreator interface {
	CreateFromRequest(ctx context.Context, req dto.CreateNotification) (*entity.Notification, error)
}

// Consumer turns create-notification events published by other parts of the
// portal (billing, messaging) into in-app notifications.
type Consumer struct {
	topic         string
	consumerGroup sarama.ConsumerGroup
	notifications notificationCreator
	logger        *types.Logger

	retryBackoff time.Duration
}

func NewConsumer(topic string, consumerGroup sarama.ConsumerGroup, notifications notificationCreator, logger *types.Logger) *Consumer {
	return &Consumer{
		topic:         topic,
		consumerGroup: consumerGroup,
		notifications: notifications,
		logger:        logger,
		retryBackoff:  time.Second,
	}
}

// Serve implements suture.Service. It blocks until ctx is cancelled or the
// consumer group is closed.
func (c *Consumer) Serve(ctx context.Context) error {
	c.logger.Infof("Kafka consumer started (topic=%s)", c.topic)

	backoff := time.Second
	for {
		err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return fmt.Errorf("%w: %v", suture.ErrDoNotRestart, err)
			}
			c.logger.Errorf("Error consuming messages: %v", err)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) String() string {
	return "kafka-consumer"
}

// Close closes the underlying consumer group.
func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	for topic, partitions := range session.Claims() {
		c.logger.Infof("Partition assignment: topic=%s partitions=%v", topic, partitions)
	}
	return nil
}

func (c *Consumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	c.logger.Debug("Kafka session cleanup complete")
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		c.logger.Debugf("Message received: topic=%s partition=%d offset=%d", message.Topic, message.Partition, message.Offset)

		// Offsets are cumulative, so nothing after a message that could not be
		// stored may be marked. The session restarts from the last commit.
		if err := c.process(session.Context(), message); err != nil {
			return err
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// process handles message, retrying storage failures with backoff until it
// succeeds or the session ends.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	backoff := c.retryBackoff
	for !c.handle(ctx, message) {
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("notification event at offset %d not stored: %w", message.Offset, ctx.Err())
		}
		if backoff < maxRetryBackoff {
			backoff *= 2
		}
	}
	return nil
}

// handle creates the notification carried by message and reports whether
// the offset may be committed. Malformed events are dropped; storage
// failures are reported so the caller can retry.
func (c *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) bool {
	var req dto.CreateNotification
	if err := json.Unmarshal(message.Value, &req); err != nil {
		c.logger.Warnf("Skipping malformed notification event at offset %d: %v", message.Offset, err)
		metrics.IngestedEvents.WithLabelValues("invalid").Inc()
		return true
	}

	if _, err := c.notifications.CreateFromRequest(ctx, req); err != nil {
		if errors.Is(err, errorz.ErrInvalidNotification) {
			c.logger.Warnf("Skipping invalid notification event at offset %d: %v", message.Offset, err)
			metrics.IngestedEvents.WithLabelValues("invalid").Inc()
			return true
		}
		c.logger.Errorf("Notification event at offset %d failed: %v", message.Offset, err)
		metrics.IngestedEvents.WithLabelValues("failed").Inc()
		return false
	}

	metrics.IngestedEvents.WithLabelValues("created").Inc()
	return true
}
