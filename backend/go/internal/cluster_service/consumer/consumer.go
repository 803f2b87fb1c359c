package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Reclusterer runs one recluster for a user.
type Reclusterer interface {
	Recluster(ctx context.Context, userID string) (*models.ReclusterOutcome, error)
}

// ErrBadRequest marks a message that can never be processed.
var ErrBadRequest = errors.New("malformed recluster request")

// messageReader is the subset of *kafka.Reader used by ReclusterConsumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReclusterConsumer consumes recluster requests from Kafka.
type ReclusterConsumer struct {
	reader messageReader
	logger *logger.Logger

	// fetch failures back off from minBackoff up to maxBackoff
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewReclusterConsumer creates a new ReclusterConsumer.
func NewReclusterConsumer(brokers []string, topic, groupID string, logger *logger.Logger) *ReclusterConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newReclusterConsumer(reader, logger)
}

func newReclusterConsumer(reader messageReader, logger *logger.Logger) *ReclusterConsumer {
	return &ReclusterConsumer{
		reader:     reader,
		logger:     logger,
		minBackoff: 200 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}
}

// Start begins consuming messages. Every fetched message is committed after the
// handler returns; a failed recluster is not redelivered because the next card
// change enqueues a fresh request anyway.
func (c *ReclusterConsumer) Start(ctx context.Context, handler func(context.Context, kafka.Message) error) {
	go c.run(ctx, handler)
}

func (c *ReclusterConsumer) run(ctx context.Context, handler func(context.Context, kafka.Message) error) {
	backoff := c.minBackoff
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping recluster consumer...")
			return
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				c.logger.WithErr(err).WithField("retry_in", backoff.String()).Error("Error fetching message from Kafka")
				t := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					t.Stop()
				case <-t.C:
				}
				if backoff *= 2; backoff > c.maxBackoff {
					backoff = c.maxBackoff
				}
				continue
			}
			backoff = c.minBackoff

			if err := handler(ctx, msg); err != nil {
				c.logger.WithErr(err).WithPayload(map[string]interface{}{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Error("Error handling Kafka message")
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.WithErr(err).Error("Failed to commit Kafka message")
			}
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *ReclusterConsumer) Close() error {
	return c.reader.Close()
}

// NewHandler decodes a recluster request and runs it.
func NewHandler(svc Reclusterer, log *logger.Logger) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		var req models.ReclusterRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			return fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if req.UserID == "" {
			req.UserID = string(msg.Key)
		}
		if req.UserID == "" {
			return fmt.Errorf("%w: no user id", ErrBadRequest)
		}

		out, err := svc.Recluster(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("recluster %s: %w", req.UserID, err)
		}
		l := log.WithUser(req.UserID)
		if out.Status == models.ReclusterInsufficientData {
			l.WithField("eligible", out.Eligible).Info("Skipped recluster: not enough cards")
			return nil
		}
		l.WithField("clusters", out.ClusterCount).Info("Recluster request processed")
		return nil
	}
}
