// Package jobs runs the portal's periodic housekeeping on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"portal/internal/metrics"
)

// Func is one run of a job. The context is cancelled when the manager stops.
type Func func(ctx context.Context) error

// Manager schedules jobs with seconds precision.
type Manager struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewManager(log zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log.With().Str("component", "jobs").Logger(),
		timeout: 5 * time.Minute,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers fn under name. An empty spec disables the job.
func (m *Manager) Add(name, spec string, fn Func) error {
	if spec == "" {
		m.log.Info().Str("job", name).Msg("job disabled")
		return nil
	}
	if _, err := m.cron.AddFunc(spec, func() { m.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	m.log.Info().Str("job", name).Str("schedule", spec).Msg("job registered")
	return nil
}

func (m *Manager) run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()
	start := time.Now()
	m.log.Debug().Str("job", name).Msg("job started")
	if err := fn(ctx); err != nil {
		metrics.JobRuns.WithLabelValues(name, "failed").Inc()
		m.log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	m.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job completed")
}

// Start begins scheduling in the background.
func (m *Manager) Start() {
	m.cron.Start()
	m.log.Info().Int("jobs", len(m.cron.Entries())).Msg("jobs started")
}

// Stop cancels running jobs and waits for them to return.
func (m *Manager) Stop() {
	m.cancel()
	<-m.cron.Stop().Done()
	m.log.Info().Msg("jobs stopped")
}
