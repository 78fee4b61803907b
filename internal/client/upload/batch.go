package upload

import (
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/mediadrop/internal/client/models"
)

// BatchState is owned by one Orchestrator for the lifetime of a batch and
// discarded when every job is terminal.
type BatchState struct {
	jobs []*models.Job
	gate pauseGate
	out  chan models.Snapshot

	// mu serialises job mutation and publication so snapshots of a job are
	// delivered in transition order.
	mu        sync.Mutex
	completed int
	aggregate atomic.Int64

	viewMu sync.RWMutex
	views  []models.Snapshot
	index  map[string]int
}

func newBatchState(jobs []*models.Job, buffer int) *BatchState {
	b := &BatchState{
		jobs:  jobs,
		out:   make(chan models.Snapshot, buffer),
		views: make([]models.Snapshot, len(jobs)),
		index: make(map[string]int, len(jobs)),
	}
	for i, j := range jobs {
		b.index[j.ID] = i
		b.views[i] = j.Snapshot(0)
	}
	return b
}

// aggregateLocked is ((completed * 100) + current file progress) / total,
// never lower than a value already published.
func (b *BatchState) aggregateLocked(current *models.Job) int {
	cur := 0
	if current != nil {
		cur = current.Progress()
	}
	agg := int64(min((b.completed*100+cur)/len(b.jobs), 100))
	if agg > b.aggregate.Load() {
		b.aggregate.Store(agg)
	}
	return int(b.aggregate.Load())
}

// apply mutates job and publishes its snapshot. mutate returning false
// means nothing changed and nothing is published.
func (b *BatchState) apply(job *models.Job, mutate func(*models.Job) bool) models.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mutate != nil && !mutate(job) {
		return b.view(job.ID)
	}
	s := job.Snapshot(b.aggregateLocked(job))

	b.viewMu.Lock()
	b.views[b.index[job.ID]] = s
	b.viewMu.Unlock()

	b.out <- s
	return s
}

// finish counts job as done.
func (b *BatchState) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed++
	b.aggregateLocked(nil)
}

func (b *BatchState) summary() (models.Summary, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := models.Summary{Total: len(b.jobs)}
	for _, j := range b.jobs {
		switch j.Status() {
		case models.StatusCompleted:
			s.Succeeded++
		case models.StatusFailed:
			s.Failed++
		}
	}
	return s, b.aggregateLocked(nil)
}

func (b *BatchState) progress() int {
	return int(b.aggregate.Load())
}

func (b *BatchState) view(id string) models.Snapshot {
	b.viewMu.RLock()
	defer b.viewMu.RUnlock()
	return b.views[b.index[id]]
}

func (b *BatchState) snapshots() []models.Snapshot {
	b.viewMu.RLock()
	defer b.viewMu.RUnlock()
	return append([]models.Snapshot(nil), b.views...)
}
