package broker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/docwarden/internal/core"
)

func TestMemoryBrokerEnqueueReserveAck(t *testing.T) {
	b := NewMemory(time.Minute, 5)
	ctx := context.Background()

	item := core.WorkItem{JobID: uuid.New(), Variant: core.VariantDocs}
	require.NoError(t, b.Enqueue(ctx, item))

	res, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, item.JobID, res.Item.JobID)
	assert.Equal(t, 1, res.DeliveryCount)

	require.NoError(t, b.Ack(ctx, res))

	_, err = b.Reserve(ctx, 50*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrQueueEmpty)
}

func TestMemoryBrokerReserveTimesOutWhenEmpty(t *testing.T) {
	b := NewMemory(time.Minute, 5)
	_, err := b.Reserve(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrQueueEmpty)
}

func TestMemoryBrokerNackRetryableRequeues(t *testing.T) {
	b := NewMemory(time.Minute, 5)
	ctx := context.Background()

	item := core.WorkItem{JobID: uuid.New(), Variant: core.VariantDocs}
	require.NoError(t, b.Enqueue(ctx, item))

	res, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, b.Nack(ctx, res, true))

	redelivered, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, item.JobID, redelivered.Item.JobID)
	assert.Equal(t, 2, redelivered.DeliveryCount)
}

func TestMemoryBrokerNackNonRetryableDrops(t *testing.T) {
	b := NewMemory(time.Minute, 5)
	ctx := context.Background()

	item := core.WorkItem{JobID: uuid.New(), Variant: core.VariantDocs}
	require.NoError(t, b.Enqueue(ctx, item))

	res, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, b.Nack(ctx, res, false))

	_, err = b.Reserve(ctx, 50*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrQueueEmpty)
}

func TestMemoryBrokerVisibilityTimeoutRedelivers(t *testing.T) {
	b := NewMemory(30*time.Millisecond, 5)
	ctx := context.Background()

	item := core.WorkItem{JobID: uuid.New(), Variant: core.VariantDocs}
	require.NoError(t, b.Enqueue(ctx, item))

	res, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeliveryCount)

	// No Ack/Nack before the visibility timeout fires: the reservation
	// must be treated as an implicit retryable Nack.
	redelivered, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, item.JobID, redelivered.Item.JobID)
	assert.Equal(t, 2, redelivered.DeliveryCount)
}

func TestMemoryBrokerPoisonPillDropsAfterThreshold(t *testing.T) {
	b := NewMemory(20*time.Millisecond, 2)
	ctx := context.Background()

	item := core.WorkItem{JobID: uuid.New(), Variant: core.VariantDocs}
	require.NoError(t, b.Enqueue(ctx, item))

	// Delivery 1, expires unacknowledged.
	_, err := b.Reserve(ctx, time.Second)
	require.NoError(t, err)

	// Delivery 2, at the threshold: this expiry must drop the item rather
	// than requeue it again.
	_, err = b.Reserve(ctx, time.Second)
	require.NoError(t, err)

	_, err = b.Reserve(ctx, 200*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrQueueEmpty)
}
