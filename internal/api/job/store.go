// internal/api/job/store.go
package job

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signalbot/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Job is an analysis run executed in the background.
type Job struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Status    Status      `json:"status"`
	ReportID  string      `json:"report_id,omitempty"`
	Error     *core.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Done reports whether the job has finished.
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// Store manages async jobs.
type Store struct {
	jobs    map[string]*Job
	order   []string // Track insertion order for eviction
	maxSize int
	ttl     time.Duration
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a new job store. Finished jobs older than ttl are
// dropped; a ttl of zero keeps them until evicted by size.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create creates a pending job for symbol and returns a copy of it.
func (s *Store) Create(symbol string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expire()

	now := s.now()
	job := &Job{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Evict oldest if at capacity
	if len(s.jobs) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.jobs, oldest)
		s.order = s.order[1:]
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)

	return *job
}

// Get retrieves a job by ID.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok || s.expired(job) {
		return Job{}, core.ErrJobNotFound
	}

	// Return copy to prevent race conditions
	return *job, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}

	fn(job)
	job.UpdatedAt = s.now()
	return nil
}

// List returns all live jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if s.expired(job) {
			continue
		}
		result = append(result, *job)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *Store) expired(job *Job) bool {
	return s.ttl > 0 && job.Done() && s.now().Sub(job.UpdatedAt) > s.ttl
}

// expire drops finished jobs past their ttl. Callers hold the write lock.
func (s *Store) expire() {
	if s.ttl <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if s.expired(s.jobs[id]) {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
