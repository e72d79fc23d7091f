package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/model"
	"portal/internal/queue"
)

type memWriter struct {
	mu       sync.Mutex
	entries  []Entry
	findings []Finding
	fail     error
}

func (w *memWriter) InsertEntry(_ context.Context, e Entry) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return Entry{}, w.fail
	}
	w.entries = append(w.entries, e)
	return e, nil
}

func (w *memWriter) UpsertFinding(_ context.Context, f Finding) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.findings = append(w.findings, f)
	return nil
}

func (w *memWriter) counts() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries), len(w.findings)
}

func TestRecorderToSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(8)
	rec := NewRecorder(q, true, zerolog.Nop())
	w := &memWriter{}
	sink := NewSink(w, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		_ = sink.Run(ctx, q)
		close(done)
	}()

	rec.Record(ctx, Entry{ActorID: 5, ActorRole: model.RoleFaculty, Dashboard: "faculty", Action: "create", Resource: "grades", Outcome: OutcomeOK})
	rec.JoinMiss("student", 999, "enrollment")

	require.Eventually(t, func() bool {
		e, f := w.counts()
		return e == 1 && f == 1
	}, 2*time.Second, 10*time.Millisecond)

	w.mu.Lock()
	assert.NotEmpty(t, w.entries[0].ID)
	assert.Equal(t, model.ID(5), w.entries[0].ActorID)
	assert.Equal(t, "grades", w.entries[0].Resource)
	assert.Equal(t, model.ID(999), w.findings[0].EntityID)
	assert.Equal(t, "enrollment", w.findings[0].Referrer)
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sink did not stop")
	}
}

func TestRecorder_DisabledDoesNotPublish(t *testing.T) {
	q := queue.NewInMemory(1)
	rec := NewRecorder(q, false, zerolog.Nop())
	rec.Record(context.Background(), Entry{Action: "delete"})

	// the single slot is still free
	require.NoError(t, q.Publish(context.Background(), queue.Message{Type: queue.TypeAudit}))

	assert.NotPanics(t, func() {
		NewRecorder(nil, true, zerolog.Nop()).Record(context.Background(), Entry{})
	})
}

func TestSink_Handle(t *testing.T) {
	w := &memWriter{}
	sink := NewSink(w, zerolog.Nop())
	ctx := context.Background()

	assert.Error(t, sink.Handle(ctx, queue.Message{Type: queue.TypeAudit, Body: []byte("{")}))
	assert.NoError(t, sink.Handle(ctx, queue.Message{Type: "checkin", Body: []byte("x")}))

	w.fail = errors.New("db down")
	assert.Error(t, sink.Handle(ctx, queue.Message{Type: queue.TypeAudit, Body: []byte(`{"action":"create"}`)}))
}
