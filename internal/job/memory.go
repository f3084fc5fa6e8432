package job

import (
	"context"
	"slices"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps job snapshots in a map. It is the default when no
// database is configured; jobs are lost on restart.
//
// Snapshots are stored by value, so neither callers of Save nor holders of
// a returned Job can change what the repository holds.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]jobRecord
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]jobRecord),
	}
}

// Save stores a snapshot of job, replacing any earlier one.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	rec := toRecord(job)

	r.mu.Lock()
	r.records[rec.ID] = rec
	r.mu.Unlock()
	return nil
}

// FindByID rebuilds the job stored under id.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return rec.toJob(), nil
}

// List returns all jobs, oldest first.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	recs := make([]jobRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	slices.SortFunc(recs, compareRecords)

	jobs := make([]*Job, len(recs))
	for i, rec := range recs {
		jobs[i] = rec.toJob()
	}
	return jobs, nil
}

// Delete removes a job.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrJobNotFound
	}
	delete(r.records, id)
	return nil
}
