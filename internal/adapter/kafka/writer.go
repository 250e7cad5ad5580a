package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/restaurant-grades-etl/internal/config"
	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
)

const (
	recordRestaurant = "restaurant"
	recordViolation  = "violation"
)

// messageWriter is the subset of *kafkago.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes reports to Kafka: restaurant rows keyed by permit on one
// topic and violation rows keyed by permit and inspection date on another.
// It implements pipeline.Sink.
type Writer struct {
	writer          messageWriter
	restaurantTopic string
	violationTopic  string
	batchSize       int
	logger          *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{
		writer:          w,
		restaurantTopic: cfg.KafkaRestaurantTopic,
		violationTopic:  cfg.KafkaViolationTopic,
		batchSize:       cfg.BatchSize,
		logger:          logger,
	}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// WriteReport serializes every row of the report and publishes them in
// chunks of the configured batch size.
func (w *Writer) WriteReport(ctx context.Context, report domain.Report) error {
	msgs, err := w.messages(report)
	if err != nil {
		return err
	}

	size := w.batchSize
	if size <= 0 {
		size = len(msgs)
	}
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		if err := w.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("publish report: %w", err)
		}
	}

	w.logger.Info("report published to kafka",
		"restaurants", len(report.Restaurants),
		"violations", len(report.Violations),
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) messages(report domain.Report) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(report.Restaurants)+len(report.Violations))
	for i := range report.Restaurants {
		r := &report.Restaurants[i]
		msg, err := serializeToMessage(w.restaurantTopic, r.Permit, recordRestaurant, r, report.GeneratedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for i := range report.Violations {
		v := &report.Violations[i]
		msg, err := serializeToMessage(w.violationTopic, violationKey(*v), recordViolation, v, report.GeneratedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// violationKey groups the violations of one inspection on one partition.
func violationKey(v domain.Violation) string {
	return v.Permit + "|" + v.InspectionDate.Format(time.DateOnly)
}

// serializeToMessage marshals a report row into a Kafka message.
func serializeToMessage(topic, key, recordType string, row any, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s %s: %w", recordType, key, err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordType)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
