package publisher

import (
	"context"
	"encoding/json"
	"time"

	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReclusterPublisher enqueues recluster requests for the cluster worker.
// Messages are keyed by user so one user's requests land on one partition.
type ReclusterPublisher struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
	now    func() time.Time
}

// NewReclusterPublisher creates a new ReclusterPublisher.
func NewReclusterPublisher(brokers []string, topic string, logger *logger.Logger) *ReclusterPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &ReclusterPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue sends a recluster request for userID.
func (p *ReclusterPublisher) Enqueue(ctx context.Context, userID string) error {
	msg, err := Encode(userID, p.now())
	if err != nil {
		p.logger.WithErr(err).Error("Failed to marshal recluster request for Kafka")
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithErr(err).WithUser(userID).WithPayload(map[string]interface{}{"topic": p.topic}).Error("Failed to write message to Kafka")
		return err
	}
	p.logger.WithUser(userID).Debug("Recluster request enqueued")
	return nil
}

// Encode builds the Kafka message for a recluster request.
func Encode(userID string, at time.Time) (kafka.Message, error) {
	b, err := json.Marshal(models.ReclusterRequest{UserID: userID, RequestedAt: at.Unix()})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(userID), Value: b}, nil
}

// Close closes the underlying Kafka writer.
func (p *ReclusterPublisher) Close() error {
	return p.writer.Close()
}
