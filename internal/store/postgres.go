package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sevigo/docwarden/internal/core"
)

// postgresStore is the durable Job Store backed by PostgreSQL. Invariant 2
// (at most one active Job per normalized locator) is enforced by the
// partial unique index `jobs_locator_active_idx` created by the
// accompanying migration; Create relies on `ON CONFLICT DO NOTHING` against
// that index rather than a separate read-then-insert transaction.
type postgresStore struct {
	db *sqlx.DB
}

// NewPostgres wraps an existing *sqlx.DB as a core.JobStore.
func NewPostgres(db *sqlx.DB) core.JobStore {
	return &postgresStore{db: db}
}

const jobColumns = `id, source_locator, variant, status, error, artifact_url,
	pull_request_url, bundle_url, caller_id, has_write_access, prompt_tokens,
	completion_tokens, created_at, updated_at`

func (s *postgresStore) Create(ctx context.Context, locator string, variant core.Variant, callerID *string) (core.CreateResult, error) {
	id := uuid.New()
	now := time.Now().UTC()

	const insert = `
		INSERT INTO jobs (id, source_locator, variant, status, caller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT DO NOTHING`

	res, err := s.db.ExecContext(ctx, insert, id, locator, variant, core.StatusPending, callerID, now)
	if err != nil {
		return core.CreateResult{}, fmt.Errorf("insert job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.CreateResult{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		job, err := s.Get(ctx, id)
		if err != nil {
			return core.CreateResult{}, err
		}
		return core.CreateResult{Job: job, Existed: false}, nil
	}

	existing, err := s.getByLocator(ctx, locator)
	if err != nil {
		return core.CreateResult{}, fmt.Errorf("lookup existing job after conflict: %w", err)
	}
	return core.CreateResult{Job: existing, Existed: true}, nil
}

func (s *postgresStore) getByLocator(ctx context.Context, locator string) (*core.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE source_locator = $1
		AND status IN ('pending', 'processing', 'completed')
		ORDER BY created_at DESC LIMIT 1`, jobColumns)

	var job core.Job
	if err := s.db.GetContext(ctx, &job, query, locator); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *postgresStore) Get(ctx context.Context, id uuid.UUID) (*core.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1`, jobColumns)

	var job core.Job
	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// List uses keyset pagination on (created_at, id) rather than OFFSET: an
// OFFSET counts rows from the top of the newest-first ordering, so a Job
// inserted at the head between two page fetches shifts every later page by
// one row and either skips or duplicates a result. Comparing the row tuple
// directly against the caller's cursor instead names a fixed position that
// insertions ahead of it cannot disturb.
func (s *postgresStore) List(ctx context.Context, cursor *core.PageCursor, limit int) ([]*core.Job, error) {
	if limit <= 0 || limit > core.MaxPageSize {
		limit = core.MaxPageSize
	}

	jobs := []*core.Job{}
	if cursor == nil {
		query := fmt.Sprintf(`SELECT %s FROM jobs ORDER BY created_at DESC, id DESC LIMIT $1`, jobColumns)
		if err := s.db.SelectContext(ctx, &jobs, query, limit); err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		return jobs, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE (created_at, id) < ($1, $2)
		ORDER BY created_at DESC, id DESC LIMIT $3`, jobColumns)
	if err := s.db.SelectContext(ctx, &jobs, query, cursor.CreatedAt, cursor.ID, limit); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *postgresStore) SetStatus(ctx context.Context, id uuid.UUID, status core.Status, update core.StatusUpdate) (*core.Job, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current core.Job
	selectQuery := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 FOR UPDATE`, jobColumns)
	if err := tx.GetContext(ctx, &current, selectQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("select job for update: %w", err)
	}

	if !core.CanTransition(current.Status, status) {
		return nil, core.ErrIllegalTransition
	}

	now := time.Now().UTC()
	const update_ = `
		UPDATE jobs SET status = $2, error = COALESCE($3, error),
			artifact_url = COALESCE($4, artifact_url),
			pull_request_url = COALESCE($5, pull_request_url),
			bundle_url = COALESCE($6, bundle_url),
			has_write_access = COALESCE($7, has_write_access),
			prompt_tokens = COALESCE($8, prompt_tokens),
			completion_tokens = COALESCE($9, completion_tokens),
			updated_at = $10
		WHERE id = $1`

	if _, err := tx.ExecContext(ctx, update_, id, status, update.Error, update.ArtifactURL,
		update.PullRequestURL, update.BundleURL, update.HasWriteAccess, update.PromptTokens, update.CompletionTokens, now); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return nil, fmt.Errorf("update job %s: %s", id, pqErr.Message)
		}
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *postgresStore) ListStale(ctx context.Context, status core.Status, olderThan time.Time) ([]*core.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC`, jobColumns)

	jobs := []*core.Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, status, olderThan); err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	return jobs, nil
}

func (s *postgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}
