package broker

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/docwarden/internal/core"
)

type memoryReservation struct {
	item          core.WorkItem
	deliveryCount int
	timer         *time.Timer
}

// memoryBroker is a mutex-guarded core.TaskBroker (a FIFO list plus one
// hand-off channel per blocked Reserve call) used when
// config.Broker.RedisAddr is empty. A time.AfterFunc per reservation
// emulates the visibility timeout: if it fires before Ack/Nack, the item is
// treated as an implicit retryable Nack.
type memoryBroker struct {
	mu                  sync.Mutex
	queue               *list.List // of core.WorkItem
	waiters             []chan core.WorkItem
	reservations        map[string]*memoryReservation
	deliveryCounts      map[uuid.UUID]int
	visibilityTimeout   time.Duration
	poisonPillThreshold int
}

// NewMemory returns an in-memory core.TaskBroker.
func NewMemory(visibilityTimeout time.Duration, poisonPillThreshold int) core.TaskBroker {
	return &memoryBroker{
		queue:               list.New(),
		reservations:        make(map[string]*memoryReservation),
		deliveryCounts:      make(map[uuid.UUID]int),
		visibilityTimeout:   visibilityTimeout,
		poisonPillThreshold: poisonPillThreshold,
	}
}

func (b *memoryBroker) Enqueue(_ context.Context, item core.WorkItem) error {
	b.mu.Lock()
	if len(b.waiters) > 0 {
		w := b.waiters[0]
		b.waiters = b.waiters[1:]
		b.mu.Unlock()
		w <- item
		return nil
	}
	b.queue.PushBack(item)
	b.mu.Unlock()
	return nil
}

func (b *memoryBroker) Reserve(ctx context.Context, wait time.Duration) (core.Reservation, error) {
	b.mu.Lock()
	if front := b.queue.Front(); front != nil {
		b.queue.Remove(front)
		item := front.Value.(core.WorkItem)
		b.mu.Unlock()
		return b.reserve(item), nil
	}

	ch := make(chan core.WorkItem, 1)
	b.waiters = append(b.waiters, ch)
	b.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case item := <-ch:
		return b.reserve(item), nil
	case <-timer.C:
		b.removeWaiter(ch)
		return core.Reservation{}, core.ErrQueueEmpty
	case <-ctx.Done():
		b.removeWaiter(ch)
		return core.Reservation{}, ctx.Err()
	}
}

func (b *memoryBroker) removeWaiter(target chan core.WorkItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.waiters {
		if w == target {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}

func (b *memoryBroker) reserve(item core.WorkItem) core.Reservation {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deliveryCounts[item.JobID]++
	deliveryCount := b.deliveryCounts[item.JobID]

	handle := uuid.NewString()
	res := &memoryReservation{item: item, deliveryCount: deliveryCount}
	res.timer = time.AfterFunc(b.visibilityTimeout, func() { b.expire(handle) })
	b.reservations[handle] = res

	return core.Reservation{Handle: handle, Item: item, DeliveryCount: deliveryCount}
}

func (b *memoryBroker) expire(handle string) {
	b.mu.Lock()
	res, ok := b.reservations[handle]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.reservations, handle)
	b.mu.Unlock()

	b.requeueOrDrop(res.item, res.deliveryCount)
}

func (b *memoryBroker) requeueOrDrop(item core.WorkItem, deliveryCount int) {
	if deliveryCount < b.poisonPillThreshold {
		b.mu.Lock()
		if len(b.waiters) > 0 {
			w := b.waiters[0]
			b.waiters = b.waiters[1:]
			b.mu.Unlock()
			w <- item
			return
		}
		b.queue.PushBack(item)
		b.mu.Unlock()
		return
	}
	// Poison pill: dropped. The job's terminal status was already recorded
	// by the worker that let its reservation expire without an Ack/Nack.
	b.mu.Lock()
	delete(b.deliveryCounts, item.JobID)
	b.mu.Unlock()
}

func (b *memoryBroker) Ack(_ context.Context, r core.Reservation) error {
	b.mu.Lock()
	res, ok := b.reservations[r.Handle]
	if ok {
		res.timer.Stop()
		delete(b.reservations, r.Handle)
		delete(b.deliveryCounts, r.Item.JobID)
	}
	b.mu.Unlock()
	return nil
}

func (b *memoryBroker) Nack(_ context.Context, r core.Reservation, retryable bool) error {
	b.mu.Lock()
	res, ok := b.reservations[r.Handle]
	if ok {
		res.timer.Stop()
		delete(b.reservations, r.Handle)
	}
	b.mu.Unlock()

	if !retryable {
		b.mu.Lock()
		delete(b.deliveryCounts, r.Item.JobID)
		b.mu.Unlock()
		return nil
	}
	b.requeueOrDrop(r.Item, r.DeliveryCount)
	return nil
}
