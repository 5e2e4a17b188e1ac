package internal

import (
	"context"
	"sync"
	"time"
)

// Run is a handle on one extraction executing in the background
type Run struct {
	id        string
	startedAt time.Time
	done      chan struct{}

	result *ExtractionResult
	err    error
}

// ID returns the run identifier
func (r *Run) ID() string { return r.id }

// StartedAt returns when the run was admitted
func (r *Run) StartedAt() time.Time { return r.startedAt }

// Done is closed once the run has finished
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes or ctx ends
func (r *Run) Wait(ctx context.Context) (*ExtractionResult, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunManager tracks the single allowed active run, the status snapshot and
// the corpus of the last completed run.
type RunManager struct {
	mu      sync.RWMutex
	current *Run
	status  StatusSnapshot
	corpus  Corpus
}

// NewRunManager creates a manager in idle state
func NewRunManager() *RunManager {
	return &RunManager{
		status: StatusSnapshot{Status: StatusIdle},
	}
}

// Begin admits a new run, or returns ErrRunInProgress without touching state
func (m *RunManager) Begin(runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.Running {
		return nil, ErrRunInProgress
	}

	run := &Run{
		id:        runID,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	m.current = run
	m.status = StatusSnapshot{
		Running:  true,
		Status:   StatusStarting,
		Progress: 0,
		RunID:    runID,
	}
	return run, nil
}

// Apply merges a progress event into the snapshot. Events from a run that is
// no longer current are ignored. A terminal event clears the running flag.
func (m *RunManager) Apply(ev ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || ev.RunID != m.current.id {
		return
	}
	m.status.apply(ev)
	if ev.Status.IsTerminal() {
		m.status.Running = false
	}
}

// StoreCorpus replaces the in-memory corpus
func (m *RunManager) StoreCorpus(c Corpus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corpus = c
}

// Finish records the outcome of a run and releases its waiters
func (m *RunManager) Finish(run *Run, result *ExtractionResult, err error) {
	m.mu.Lock()
	if m.current == run {
		m.status.Running = false
	}
	run.result = result
	run.err = err
	m.mu.Unlock()

	close(run.done)
}

// Status returns a copy of the current snapshot
func (m *RunManager) Status() StatusSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.status
	if s.Current != nil {
		s.Current = intPtr(*s.Current)
	}
	if s.Total != nil {
		s.Total = intPtr(*s.Total)
	}
	if s.VideosProcessed != nil {
		s.VideosProcessed = intPtr(*s.VideosProcessed)
	}
	return s
}

// IsRunning reports whether a run is active
func (m *RunManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Running
}

// Current returns the most recently admitted run, or nil
func (m *RunManager) Current() *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Corpus returns the corpus of the last completed run
func (m *RunManager) Corpus() Corpus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.corpus
}
