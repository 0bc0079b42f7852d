package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/samecityapp/hotelfinder/internal/domain"
)

const (
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateFailed    = "failed"
)

// RunRegistry keeps at most one active pipeline run per location. Triggers
// while a run is in flight are rejected rather than queued; the caller's
// retry is a later re-trigger. Runs execute on detached goroutines whose
// outcome lands in the observable run state, never back at the trigger.
type RunRegistry struct {
	pipeline *PipelineService

	mu   sync.Mutex
	runs map[string]*domain.RunState
}

func NewRunRegistry(p *PipelineService) *RunRegistry {
	return &RunRegistry{pipeline: p, runs: make(map[string]*domain.RunState)}
}

// Trigger starts a background run for the location unless one is already
// in flight. Reports whether a new run started; it never reports pipeline
// failure — that is only visible via Status, logs and the persisted state.
func (r *RunRegistry) Trigger(location string) bool {
	key := runKey(location)

	r.mu.Lock()
	if st, ok := r.runs[key]; ok && st.State == RunStateRunning {
		r.mu.Unlock()
		log.Info().Str("location", location).Msg("run already in flight, trigger ignored")
		return false
	}
	st := &domain.RunState{Location: location, State: RunStateRunning, StartedAt: time.Now()}
	r.runs[key] = st
	r.mu.Unlock()

	go r.execute(key, location)
	return true
}

// Status returns a copy of the most recent run state for the location.
func (r *RunRegistry) Status(location string) (domain.RunState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.runs[runKey(location)]
	if !ok {
		return domain.RunState{}, false
	}
	return *st, true
}

func (r *RunRegistry) execute(key, location string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("location", location).Interface("panic", rec).Msg("pipeline run panicked")
			r.finish(key, RunSummary{}, fmt.Errorf("panic: %v", rec))
		}
	}()

	sum, err := r.pipeline.Run(context.Background(), location)
	if err != nil {
		log.Error().Err(err).Str("location", location).Msg("pipeline run failed")
	}
	r.finish(key, sum, err)
}

func (r *RunRegistry) finish(key string, sum RunSummary, err error) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.runs[key]
	if !ok {
		return
	}
	st.Discovered = sum.Discovered
	st.Processed = sum.Processed
	st.Skipped = sum.Skipped
	st.Failed = sum.Failed
	st.FinishedAt = &now
	if err != nil {
		st.State = RunStateFailed
		st.Error = err.Error()
		return
	}
	st.State = RunStateCompleted
}

func runKey(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}
