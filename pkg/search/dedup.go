package search

import (
	"sync"

	"github.com/jobsift/jobsift/pkg/model"
)

// Deduplicator maintains the single run-wide set of unique jobs while
// workers complete concurrently.
//
// For any two rows with equal keys exactly one survives; which one is
// unspecified under concurrent completion. The critical section is
// kept to the membership check and insert so workers are not
// serialized on their dominant cost, the network fetch.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
	jobs []model.Job
}

// NewDeduplicator constructs an empty Deduplicator for one run.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// TryInsert adds the row if its key has not been seen in this run.
// Returns true if the row was kept, false if it was a duplicate.
func (d *Deduplicator) TryInsert(job model.Job) bool {
	key := job.Key()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	d.jobs = append(d.jobs, job)
	return true
}

// Jobs returns the retained rows in insertion order.
func (d *Deduplicator) Jobs() []model.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Job, len(d.jobs))
	copy(out, d.jobs)
	return out
}

// Len returns the number of unique rows retained so far.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}
