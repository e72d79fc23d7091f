// Package dashboard holds the per-session state of the admin, faculty and
// student dashboards: what has been fetched, what is being submitted, and
// what the user is told when something fails.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"portal/internal/metrics"
)

// Status is the lifecycle state of a board.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusSubmitting Status = "submitting"
)

var (
	// ErrBusy is returned when a mutation is attempted while another one is
	// still being submitted on the same board.
	ErrBusy = errors.New("another change is still being submitted")
	// ErrPrecondition marks local failures that never reach the backend.
	ErrPrecondition = errors.New("precondition failed")
)

type preconditionError struct{ msg string }

func (e *preconditionError) Error() string        { return e.msg }
func (e *preconditionError) Is(target error) bool { return target == ErrPrecondition }

func precondition(msg string) error { return &preconditionError{msg: msg} }

// LoadFunc fetches everything a board displays.
type LoadFunc[D any] func(ctx context.Context) (*D, error)

// State is a consistent copy of a board at one instant.
type State[D any] struct {
	Status     Status
	Data       *D
	Notice     string
	Message    string
	Form       any
	Generation uint64
	LoadedAt   time.Time
}

// Board is the loading/ready/submitting state machine of one dashboard.
// Data is replaced only by a successful refresh; a failed refresh or
// mutation leaves it untouched and sets the notice instead.
type Board[D any] struct {
	name string
	load LoadFunc[D]

	mu       sync.Mutex
	status   Status
	data     *D
	notice   string
	message  string
	form     any
	gen      uint64
	loadedAt time.Time
}

func NewBoard[D any](name string, load LoadFunc[D]) *Board[D] {
	return &Board[D]{name: name, load: load, status: StatusLoading}
}

// State returns a copy of the current state.
func (b *Board[D]) State() State[D] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State[D]{
		Status:     b.status,
		Data:       b.data,
		Notice:     b.notice,
		Message:    b.message,
		Form:       b.form,
		Generation: b.gen,
		LoadedAt:   b.loadedAt,
	}
}

// Loaded reports whether a refresh has ever succeeded.
func (b *Board[D]) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data != nil
}

// Ensure refreshes the board unless it already holds data.
func (b *Board[D]) Ensure(ctx context.Context) error {
	if b.Loaded() {
		return nil
	}
	return b.Refresh(ctx)
}

// Refresh refetches the board. A refresh that completes after a newer one
// has started is discarded.
func (b *Board[D]) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	if b.data == nil && b.status != StatusSubmitting {
		b.status = StatusLoading
	}
	b.mu.Unlock()

	data, err := b.load(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		metrics.StaleRefreshes.WithLabelValues(b.name).Inc()
		return nil
	}
	if b.status != StatusSubmitting {
		b.status = StatusReady
	}
	if err != nil {
		b.notice = Message(err)
		return err
	}
	b.data = data
	b.notice = ""
	b.loadedAt = time.Now()
	return nil
}

// Mutate runs fn while the board is submitting. form is what the user typed
// and survives a failure. On success the form is cleared, the success
// message is kept and the board is refetched.
func (b *Board[D]) Mutate(ctx context.Context, form any, fn func(ctx context.Context) (string, error)) error {
	b.mu.Lock()
	if b.status == StatusSubmitting {
		b.mu.Unlock()
		return ErrBusy
	}
	b.status = StatusSubmitting
	b.form = form
	b.notice = ""
	b.message = ""
	b.mu.Unlock()

	msg, err := fn(ctx)

	b.mu.Lock()
	b.status = StatusReady
	if err != nil {
		b.notice = Message(err)
		b.mu.Unlock()
		var partial *PartialError
		if errors.As(err, &partial) && partial.Done > 0 {
			// what was saved must show up before a retry
			_ = b.Refresh(ctx)
			b.mu.Lock()
			b.notice = Message(err)
			b.mu.Unlock()
		}
		return err
	}
	b.form = nil
	b.message = msg
	b.mu.Unlock()

	// the change is already saved; a failed refetch only leaves a notice
	_ = b.Refresh(ctx)
	return nil
}

// Reject records a failure that happened before anything was submitted.
func (b *Board[D]) Reject(form any, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.form = form
	b.notice = Message(err)
	b.message = ""
	return err
}

// Dismiss clears the notice and success message.
func (b *Board[D]) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notice = ""
	b.message = ""
}
