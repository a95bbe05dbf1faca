// Package broker provides Task Broker implementations: a Redis-backed one
// for production and an in-memory one for local development and tests.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/sevigo/docwarden/internal/core"
)

// ErrUnavailable wraps a startup failure to reach the Redis broker, so
// callers (cmd/worker) can distinguish it from a generic wiring error.
var ErrUnavailable = errors.New("task broker unavailable")

const (
	queueKey            = "docwarden:queue"
	processingKey       = "docwarden:processing"
	reservationsKey     = "docwarden:reservations"
	deliveryCountsKey   = "docwarden:delivery_counts"
	deadLetterKey       = "docwarden:deadletter"
	reaperSweepInterval = 5 * time.Second
)

// reservationRecord is the bookkeeping entry stored in reservationsKey while
// a WorkItem is checked out. raw carries the exact list-encoded payload so
// Ack/Nack can LREM the matching entry out of the processing list.
type reservationRecord struct {
	Raw           string    `json:"raw"`
	Item          core.WorkItem `json:"item"`
	DeliveryCount int       `json:"delivery_count"`
	Deadline      time.Time `json:"deadline"`
}

// redisBroker implements core.TaskBroker on top of a Redis list pair
// (queueKey/processingKey), moved between with BLMOVE the way a
// visibility-timeout queue is conventionally built on Redis. A background
// reaper requeues reservations whose visibility timeout has elapsed and
// retires poison-pill items to a dead-letter list, mirroring the semantics
// of a managed SQS-style queue without depending on one.
type redisBroker struct {
	cli                 *redis.Client
	visibilityTimeout   time.Duration
	poisonPillThreshold int

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRedis constructs a Redis-backed core.TaskBroker and starts its
// background reaper goroutine. Call Close to stop the reaper.
func NewRedis(addr string, visibilityTimeout time.Duration, poisonPillThreshold int) (*redisBroker, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	b := &redisBroker{
		cli:                 cli,
		visibilityTimeout:   visibilityTimeout,
		poisonPillThreshold: poisonPillThreshold,
		stopCh:              make(chan struct{}),
	}
	go b.runReaper()
	return b, nil
}

func (b *redisBroker) Close() error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	return b.cli.Close()
}

func (b *redisBroker) Enqueue(ctx context.Context, item core.WorkItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal work item: %w", err)
	}
	if err := b.cli.RPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue work item: %w", err)
	}
	return nil
}

func (b *redisBroker) Reserve(ctx context.Context, wait time.Duration) (core.Reservation, error) {
	raw, err := b.cli.BLMove(ctx, queueKey, processingKey, "LEFT", "RIGHT", wait).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Reservation{}, core.ErrQueueEmpty
		}
		return core.Reservation{}, fmt.Errorf("reserve work item: %w", err)
	}

	var item core.WorkItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return core.Reservation{}, fmt.Errorf("decode reserved work item: %w", err)
	}

	deliveryCount, err := b.cli.HIncrBy(ctx, deliveryCountsKey, item.JobID.String(), 1).Result()
	if err != nil {
		return core.Reservation{}, fmt.Errorf("increment delivery count: %w", err)
	}

	handle := uuid.NewString()
	record := reservationRecord{
		Raw:           raw,
		Item:          item,
		DeliveryCount: int(deliveryCount),
		Deadline:      time.Now().Add(b.visibilityTimeout),
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("marshal reservation record: %w", err)
	}
	if err := b.cli.HSet(ctx, reservationsKey, handle, recordJSON).Err(); err != nil {
		return core.Reservation{}, fmt.Errorf("store reservation record: %w", err)
	}

	return core.Reservation{Handle: handle, Item: item, DeliveryCount: int(deliveryCount)}, nil
}

func (b *redisBroker) Ack(ctx context.Context, r core.Reservation) error {
	record, err := b.loadRecord(ctx, r.Handle)
	if err != nil {
		return err
	}
	pipe := b.cli.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, record.Raw)
	pipe.HDel(ctx, reservationsKey, r.Handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack work item: %w", err)
	}
	return nil
}

func (b *redisBroker) Nack(ctx context.Context, r core.Reservation, retryable bool) error {
	record, err := b.loadRecord(ctx, r.Handle)
	if err != nil {
		return err
	}

	pipe := b.cli.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, record.Raw)
	pipe.HDel(ctx, reservationsKey, r.Handle)

	if retryable && record.DeliveryCount < b.poisonPillThreshold {
		pipe.RPush(ctx, queueKey, record.Raw)
	} else {
		pipe.RPush(ctx, deadLetterKey, record.Raw)
		pipe.HDel(ctx, deliveryCountsKey, record.Item.JobID.String())
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("nack work item: %w", err)
	}
	return nil
}

func (b *redisBroker) loadRecord(ctx context.Context, handle string) (reservationRecord, error) {
	raw, err := b.cli.HGet(ctx, reservationsKey, handle).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return reservationRecord{}, fmt.Errorf("reservation %s not found", handle)
		}
		return reservationRecord{}, fmt.Errorf("load reservation %s: %w", handle, err)
	}
	var record reservationRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return reservationRecord{}, fmt.Errorf("decode reservation %s: %w", handle, err)
	}
	return record, nil
}

// runReaper requeues reservations whose visibility timeout has elapsed
// without an Ack/Nack, treating an unresponsive worker the same as an
// explicit retryable Nack.
func (b *redisBroker) runReaper() {
	ticker := time.NewTicker(reaperSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.sweepExpired()
		}
	}
}

func (b *redisBroker) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), reaperSweepInterval)
	defer cancel()

	entries, err := b.cli.HGetAll(ctx, reservationsKey).Result()
	if err != nil {
		slog.Error("broker reaper: list reservations failed", "error", err)
		return
	}

	now := time.Now()
	for handle, raw := range entries {
		var record reservationRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			slog.Error("broker reaper: decode reservation failed", "handle", handle, "error", err)
			continue
		}
		if now.Before(record.Deadline) {
			continue
		}

		pipe := b.cli.TxPipeline()
		pipe.LRem(ctx, processingKey, 1, record.Raw)
		pipe.HDel(ctx, reservationsKey, handle)
		if record.DeliveryCount < b.poisonPillThreshold {
			pipe.RPush(ctx, queueKey, record.Raw)
		} else {
			pipe.RPush(ctx, deadLetterKey, record.Raw)
			pipe.HDel(ctx, deliveryCountsKey, record.Item.JobID.String())
		}
		if _, err := pipe.Exec(ctx); err != nil {
			slog.Error("broker reaper: requeue failed", "handle", handle, "error", err)
		}
	}
}
