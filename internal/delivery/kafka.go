package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/models"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaWriter returns a synchronous writer so a failed publish surfaces
// as a run warning.
func NewKafkaWriter(cfg KafkaConfig, log logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Debug(fmt.Sprintf(msg, args...), nil)
		}),
	}
}

// RunPublisher emits one event per finished run, keyed by team so a team's
// runs stay ordered within a partition.
type RunPublisher struct {
	writer MessageWriter
	now    func() time.Time
}

func NewRunPublisher(w MessageWriter) *RunPublisher {
	return &RunPublisher{writer: w, now: time.Now}
}

func (p *RunPublisher) Record(ctx context.Context, run *models.RunResult) error {
	body, err := json.Marshal(newRunDocument(run))
	if err != nil {
		return apperrors.NewDeliveryLogFailedError(fmt.Errorf("marshal run: %w", err))
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(run.TeamName),
		Value: body,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: "runId", Value: []byte(run.RunID)},
			{Key: "outcome", Value: []byte(run.Outcome)},
		},
	})
	if err != nil {
		return apperrors.NewDeliveryLogFailedError(fmt.Errorf("publish run: %w", err))
	}
	return nil
}
