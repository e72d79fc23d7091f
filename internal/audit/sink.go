package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"portal/internal/metrics"
	"portal/internal/queue"
)

// Writer is the persistence the sink needs; *Repository satisfies it.
type Writer interface {
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	UpsertFinding(ctx context.Context, f Finding) error
}

// Sink persists queue messages.
type Sink struct {
	w   Writer
	log zerolog.Logger
}

func NewSink(w Writer, log zerolog.Logger) *Sink {
	return &Sink{w: w, log: log}
}

// Handle persists one message. Unknown types are skipped.
func (s *Sink) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case queue.TypeAudit:
		var e Entry
		if err := json.Unmarshal(msg.Body, &e); err != nil {
			return fmt.Errorf("decode audit entry: %w", err)
		}
		_, err := s.w.InsertEntry(ctx, e)
		return err
	case queue.TypeFinding:
		var f Finding
		if err := json.Unmarshal(msg.Body, &f); err != nil {
			return fmt.Errorf("decode finding: %w", err)
		}
		return s.w.UpsertFinding(ctx, f)
	default:
		s.log.Debug().Str("type", msg.Type).Msg("skipping unknown message")
		return nil
	}
}

// Run consumes q until ctx ends.
func (s *Sink) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	s.log.Info().Msg("worker started, waiting for messages")
	for msg := range messages {
		start := time.Now()
		if err := s.Handle(ctx, msg); err != nil {
			metrics.QueueMessages.WithLabelValues(msg.Type, "failed").Inc()
			s.log.Error().Err(err).Str("type", msg.Type).Msg("persist failed")
			continue
		}
		metrics.QueueMessages.WithLabelValues(msg.Type, "persisted").Inc()
		s.log.Debug().Str("type", msg.Type).Dur("took", time.Since(start)).Msg("persisted")
	}
	s.log.Info().Msg("worker stopped")
	return nil
}
