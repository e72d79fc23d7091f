// Package audit records dashboard mutations and data-integrity findings.
// The portal publishes them to the queue; the worker persists them.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"portal/internal/metrics"
	"portal/internal/model"
	"portal/internal/queue"
)

// Recorder publishes audit messages. Publishing is best-effort: failures are
// logged and counted, never returned to the caller.
type Recorder struct {
	q       queue.Queue
	log     zerolog.Logger
	enabled bool
	timeout time.Duration
}

// NewRecorder returns a recorder; a nil queue or enabled=false only logs.
func NewRecorder(q queue.Queue, enabled bool, log zerolog.Logger) *Recorder {
	return &Recorder{q: q, log: log.With().Str("component", "audit").Logger(), enabled: enabled && q != nil, timeout: 2 * time.Second}
}

// Record publishes a mutation entry.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	r.log.Info().
		Str("dashboard", e.Dashboard).
		Str("action", e.Action).
		Str("resource", e.Resource).
		Str("key", e.RecordKey).
		Str("outcome", e.Outcome).
		Int64("actor", int64(e.ActorID)).
		Msg("mutation")
	r.publish(ctx, queue.TypeAudit, e)
}

// JoinMiss reports an unresolved foreign key. It satisfies academics.MissReporter.
func (r *Recorder) JoinMiss(entity string, id model.ID, referrer string) {
	metrics.JoinMisses.WithLabelValues(entity, referrer).Inc()
	r.log.Warn().Str("entity", entity).Int64("id", int64(id)).Str("referrer", referrer).Msg("unresolved reference")
	f := Finding{Entity: entity, EntityID: id, Referrer: referrer, LastSeen: time.Now().UTC()}
	// joins run while a view is being built; do not hold it up on the queue
	go r.publish(context.Background(), queue.TypeFinding, f)
}

func (r *Recorder) publish(ctx context.Context, typ string, v any) {
	if !r.enabled {
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		r.log.Error().Err(err).Str("type", typ).Msg("encode audit message")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.q.Publish(ctx, queue.Message{Type: typ, Body: body}); err != nil {
		metrics.QueueMessages.WithLabelValues(typ, "publish_failed").Inc()
		r.log.Warn().Err(err).Str("type", typ).Msg("audit publish failed")
		return
	}
	metrics.QueueMessages.WithLabelValues(typ, "published").Inc()
}
