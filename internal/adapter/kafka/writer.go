package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-trends-service/internal/config"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SummaryWriter produces region summaries to a Kafka topic.
// It implements pipeline.SummaryLoader.
type SummaryWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewSummaryWriter creates a Kafka producer for the configured summary topic.
func NewSummaryWriter(cfg *config.Config, logger *slog.Logger) *SummaryWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &SummaryWriter{writer: w, logger: logger}
}

// LoadSummaries stamps each summary with the processing time and publishes
// them in a single WriteMessages call. Messages are keyed by region ID so a
// region's summaries stay ordered within one partition.
func (w *SummaryWriter) LoadSummaries(ctx context.Context, summaries []domain.RegionSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	now := domain.Now()
	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		summaries[i].ProcessedAt = now
		msg, err := serializeToMessage(summaries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	w.logger.Debug("summaries published", "count", len(msgs))
	return nil
}

func (w *SummaryWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RegionSummary into a Kafka message.
func serializeToMessage(s domain.RegionSummary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(s.ID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region_kind", Value: []byte(s.Kind)},
			{Key: "as_of", Value: []byte(s.AsOf)},
			{Key: "processed_at", Value: []byte(s.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
