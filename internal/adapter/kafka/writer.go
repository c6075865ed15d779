package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/creek-quality-service/internal/config"
	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes per-site summaries to a Kafka topic after each refresh.
// It implements pipeline.SummaryPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// SummaryMessage is the JSON value of one published record.
type SummaryMessage struct {
	SnapshotID string               `json:"snapshot_id"`
	BuiltAt    time.Time            `json:"built_at"`
	Site       domain.CanonicalSite `json:"site"`
	Latest     *domain.WeeklyBucket `json:"latest"`
}

// PublishSummaries writes one message per catalog site that has data, keyed
// by site code so a compacted topic keeps the latest summary per site.
// Returns the number of messages written.
func (w *Writer) PublishSummaries(ctx context.Context, snap *domain.Snapshot) (int, error) {
	msgs := make([]kafkago.Message, 0, len(snap.Summaries))
	for _, s := range snap.Summaries {
		if s.Latest == nil {
			continue
		}
		msg, err := serializeToMessage(snap, s)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish summaries: %w", err)
	}
	w.logger.Debug("published site summaries", "count", len(msgs), "snapshot_id", snap.ID)
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SiteSummary into a Kafka message.
func serializeToMessage(snap *domain.Snapshot, s domain.SiteSummary) (kafkago.Message, error) {
	data, err := json.Marshal(SummaryMessage{
		SnapshotID: snap.ID.String(),
		BuiltAt:    snap.BuiltAt,
		Site:       s.Site,
		Latest:     s.Latest,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize site summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.Site.Code),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "snapshot_id", Value: []byte(snap.ID.String())},
			{Key: "built_at", Value: []byte(snap.BuiltAt.Format(time.RFC3339))},
		},
	}, nil
}
