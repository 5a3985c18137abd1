package search

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobsift/jobsift/pkg/model"
)

func TestDeduplicator_Idempotent(t *testing.T) {
	d := NewDeduplicator()

	assert.True(t, d.TryInsert(model.Job{Title: "Python Developer", Company: "Acme", Location: "Zurich"}))
	assert.False(t, d.TryInsert(model.Job{Title: "Python Developer", Company: "Acme", Location: "Zurich"}))
	assert.Equal(t, 1, d.Len())
}

func TestDeduplicator_CaseInsensitive(t *testing.T) {
	d := NewDeduplicator()

	assert.True(t, d.TryInsert(model.Job{Title: "Python Developer", Company: "Acme", Location: "Zurich"}))
	assert.False(t, d.TryInsert(model.Job{Title: "PYTHON DEVELOPER", Company: "acme", Location: "ZURICH"}))
	assert.Equal(t, 1, d.Len())
}

func TestDeduplicator_DistinctJobsKept(t *testing.T) {
	d := NewDeduplicator()

	assert.True(t, d.TryInsert(model.Job{Title: "Python Developer", Company: "Acme", Location: "Zurich"}))
	assert.True(t, d.TryInsert(model.Job{Title: "Python Developer", Company: "Acme", Location: "Geneva"}))
	assert.Equal(t, 2, d.Len())
}

func TestDeduplicator_ExactlyOneSurvivorUnderConcurrency(t *testing.T) {
	d := NewDeduplicator()

	const workers = 16
	var wg sync.WaitGroup
	var kept sync.Map

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			// Every worker races to insert the same 10 jobs.
			for i := 0; i < 10; i++ {
				job := model.Job{
					Title:    fmt.Sprintf("Engineer %d", i),
					Company:  "Acme",
					Location: "Zurich",
				}
				if d.TryInsert(job) {
					if _, loaded := kept.LoadOrStore(job.Key(), id); loaded {
						t.Error("same key inserted twice")
					}
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 10, d.Len(), "exactly one survivor per key, never zero, never two")
	assert.Len(t, d.Jobs(), 10)
}
