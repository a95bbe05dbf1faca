// Package store provides Job Store implementations: a Postgres-backed one
// for production and an in-memory one for local development and tests.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/docwarden/internal/core"
)

// memoryStore is a map-backed core.JobStore guarded by a single mutex. It
// implements the "serializable read + insert" arm of the uniqueness
// discipline in spec.md §5, since there is no database to carry a unique
// constraint: a single lock around Create makes the check-then-insert
// atomic. Used when config.DB.DSN is empty.
type memoryStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*core.Job
}

// NewMemory returns an in-memory core.JobStore.
func NewMemory() core.JobStore {
	return &memoryStore{jobs: make(map[uuid.UUID]*core.Job)}
}

func (s *memoryStore) Create(_ context.Context, locator string, variant core.Variant, callerID *string) (core.CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Source == locator && job.Active() {
			cp := *job
			return core.CreateResult{Job: &cp, Existed: true}, nil
		}
	}

	now := time.Now().UTC()
	job := &core.Job{
		ID:        uuid.New(),
		Source:    locator,
		Variant:   variant,
		Status:    core.StatusPending,
		CallerID:  callerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	cp := *job
	return core.CreateResult{Job: &cp, Existed: false}, nil
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

// listLess reports whether a sorts before b in the newest-first ordering
// (created_at descending, id descending on ties) that both List and its
// keyset cursor comparisons use.
func listLess(aCreatedAt time.Time, aID uuid.UUID, bCreatedAt time.Time, bID uuid.UUID) bool {
	if aCreatedAt.Equal(bCreatedAt) {
		return aID.String() > bID.String()
	}
	return aCreatedAt.After(bCreatedAt)
}

func (s *memoryStore) List(_ context.Context, cursor *core.PageCursor, limit int) ([]*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > core.MaxPageSize {
		limit = core.MaxPageSize
	}

	all := make([]*core.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		cp := *job
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return listLess(all[i].CreatedAt, all[i].ID, all[j].CreatedAt, all[j].ID)
	})

	start := 0
	if cursor != nil {
		start = len(all)
		for i, job := range all {
			if listLess(cursor.CreatedAt, cursor.ID, job.CreatedAt, job.ID) {
				start = i
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	if start >= len(all) {
		return []*core.Job{}, nil
	}
	return all[start:end], nil
}

func (s *memoryStore) SetStatus(_ context.Context, id uuid.UUID, status core.Status, update core.StatusUpdate) (*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if !core.CanTransition(job.Status, status) {
		return nil, core.ErrIllegalTransition
	}

	job.Status = status
	if update.Error != nil {
		job.Error = update.Error
	}
	if update.ArtifactURL != nil {
		job.ArtifactURL = update.ArtifactURL
	}
	if update.PullRequestURL != nil {
		job.PullRequestURL = update.PullRequestURL
	}
	if update.BundleURL != nil {
		job.BundleURL = update.BundleURL
	}
	if update.HasWriteAccess != nil {
		job.HasWriteAccess = *update.HasWriteAccess
	}
	if update.PromptTokens != nil {
		job.PromptTokens = *update.PromptTokens
	}
	if update.CompletionTokens != nil {
		job.CompletionTokens = *update.CompletionTokens
	}
	job.UpdatedAt = time.Now().UTC()

	cp := *job
	return &cp, nil
}

func (s *memoryStore) ListStale(_ context.Context, status core.Status, olderThan time.Time) ([]*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*core.Job
	for _, job := range s.jobs {
		if job.Status == status && job.UpdatedAt.Before(olderThan) {
			cp := *job
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

func (s *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}
