package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/docwarden/internal/core"
)

func TestMemoryStoreCreateIsIdempotentForActiveJobs(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.Create(ctx, "https://github.com/sevigo/docwarden", core.VariantDocs, nil)
	require.NoError(t, err)
	assert.False(t, first.Existed)

	second, err := s.Create(ctx, "https://github.com/sevigo/docwarden", core.VariantDocs, nil)
	require.NoError(t, err)
	assert.True(t, second.Existed)
	assert.Equal(t, first.Job.ID, second.Job.ID)
}

func TestMemoryStoreAllowsResubmitAfterFailure(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	created, err := s.Create(ctx, "https://github.com/sevigo/docwarden", core.VariantDocs, nil)
	require.NoError(t, err)

	errMsg := "network"
	_, err = s.SetStatus(ctx, created.Job.ID, core.StatusFailed, core.StatusUpdate{Error: &errMsg})
	require.NoError(t, err)

	again, err := s.Create(ctx, "https://github.com/sevigo/docwarden", core.VariantDocs, nil)
	require.NoError(t, err)
	assert.False(t, again.Existed, "a locator with only a failed job must accept a fresh submission")
	assert.NotEqual(t, created.Job.ID, again.Job.ID)
}

func TestMemoryStoreEnforcesForwardOnlyTransitions(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	created, err := s.Create(ctx, "https://github.com/sevigo/docwarden", core.VariantDocs, nil)
	require.NoError(t, err)

	_, err = s.SetStatus(ctx, created.Job.ID, core.StatusCompleted, core.StatusUpdate{})
	assert.ErrorIs(t, err, core.ErrIllegalTransition, "pending must not jump directly to completed")

	_, err = s.SetStatus(ctx, created.Job.ID, core.StatusProcessing, core.StatusUpdate{})
	require.NoError(t, err)

	_, err = s.SetStatus(ctx, created.Job.ID, core.StatusCompleted, core.StatusUpdate{})
	require.NoError(t, err)

	_, err = s.SetStatus(ctx, created.Job.ID, core.StatusPending, core.StatusUpdate{})
	assert.ErrorIs(t, err, core.ErrIllegalTransition, "a terminal job must never transition again")
}

func TestMemoryStoreRecoversCrashedJobBackToPending(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	created, err := s.Create(ctx, "https://github.com/sevigo/docwarden", core.VariantDocs, nil)
	require.NoError(t, err)

	_, err = s.SetStatus(ctx, created.Job.ID, core.StatusProcessing, core.StatusUpdate{})
	require.NoError(t, err)

	recovered, err := s.SetStatus(ctx, created.Job.ID, core.StatusPending, core.StatusUpdate{})
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, recovered.Status)
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), core.Job{}.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// TestMemoryStoreListKeysetStableAgainstHeadInsertion demonstrates why List
// uses a keyset cursor rather than a row offset: a Job inserted at the head
// after the first page is fetched must not shift which Jobs the second page
// returns.
func TestMemoryStoreListKeysetStableAgainstHeadInsertion(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	created := make([]*core.Job, 0, 3)
	for i := 0; i < 3; i++ {
		res, err := s.Create(ctx, fmt.Sprintf("https://github.com/sevigo/docwarden-%d", i), core.VariantDocs, nil)
		require.NoError(t, err)
		created = append(created, res.Job)
		time.Sleep(time.Millisecond)
	}

	page1, err := s.List(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, created[2].ID, page1[0].ID)
	assert.Equal(t, created[1].ID, page1[1].ID)

	cursor := &core.PageCursor{CreatedAt: page1[1].CreatedAt, ID: page1[1].ID}

	_, err = s.Create(ctx, "https://github.com/sevigo/docwarden-head", core.VariantDocs, nil)
	require.NoError(t, err)

	page2, err := s.List(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, created[0].ID, page2[0].ID)
}

func TestMemoryStoreListClampsLimitAboveMax(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("https://github.com/sevigo/docwarden-clamp-%d", i), core.VariantDocs, nil)
		require.NoError(t, err)
	}

	page, err := s.List(ctx, nil, core.MaxPageSize+50)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(page), core.MaxPageSize)
}
