package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	before []time.Time
	err    error
}

func (f *fakePurger) Purge(_ context.Context, before time.Time) (int64, error) {
	f.before = append(f.before, before)
	return 3, f.err
}

func TestPurgeAudit(t *testing.T) {
	repo := &fakePurger{}
	job := purgeAudit(repo, 24*time.Hour, zerolog.Nop())

	require.NoError(t, job(context.Background()))
	require.Len(t, repo.before, 1)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), repo.before[0], time.Minute)

	repo.err = errors.New("db down")
	assert.EqualError(t, job(context.Background()), "db down")
}

func TestPurgeAudit_ZeroRetentionKeepsEverything(t *testing.T) {
	repo := &fakePurger{}
	require.NoError(t, purgeAudit(repo, 0, zerolog.Nop())(context.Background()))
	assert.Empty(t, repo.before)
}
