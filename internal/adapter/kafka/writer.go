// Package kafka publishes artifact registration events so downstream
// renderers can react to new coverage files without polling the database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
)

// Writer produces artifact events to a Kafka topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the artifact event topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishArtifacts serializes and publishes one artifact event, keyed by
// task id so all events of a run land on the same partition.
func (w *Writer) PublishArtifacts(ctx context.Context, event domain.ArtifactEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish artifact event for task %s: %w", event.TaskID, err)
	}
	w.logger.Debug("published artifact event", "task_id", event.TaskID, "artifacts", len(event.Artifacts))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an ArtifactEvent into a Kafka message.
func serializeToMessage(event domain.ArtifactEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize artifact event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.TaskID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "family", Value: []byte(event.Family)},
			{Key: "cycle", Value: []byte(event.Cycle.Format(time.RFC3339))},
		},
	}, nil
}
