// Package recompute schedules score recomputation after pairing writes and
// runs the worker that consumes those tasks.
package recompute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/logger"
)

const DefaultQueue = "inbox-ranker:recompute"

// Dispatcher schedules an asynchronous score recomputation for a pairing.
type Dispatcher interface {
	Dispatch(ctx context.Context, pairingID int64) error
}

// Task is the queued unit of work.
type Task struct {
	ID         string    `json:"id"`
	PairingID  int64     `json:"pairing_id"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	raw string
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Queue    string `mapstructure:"queue"`
}

// NewRedisClient opens a client with the pool settings used by the worker.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  -1,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// Queue is a reliable Redis list queue. Claimed tasks are parked on a
// processing list until acknowledged, so a crashed worker loses nothing.
type Queue struct {
	client     redis.Cmdable
	name       string
	processing string
	logger     *zap.Logger
}

func NewQueue(client redis.Cmdable, name string, l *zap.Logger) *Queue {
	if name == "" {
		name = DefaultQueue
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Queue{client: client, name: name, processing: name + ":processing", logger: l}
}

func (q *Queue) Name() string { return q.name }

// Dispatch enqueues a recompute task for the pairing.
func (q *Queue) Dispatch(ctx context.Context, pairingID int64) error {
	return q.push(ctx, Task{ID: uuid.NewString(), PairingID: pairingID, EnqueuedAt: time.Now().UTC()})
}

func (q *Queue) push(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode recompute task: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue recompute of pairing %d: %w", task.PairingID, err)
	}

	q.logger.Debug("recompute task enqueued",
		append(logger.PairingFields(task.PairingID, 0, 0), zap.String("task_id", task.ID), zap.Int("attempt", task.Attempt))...)
	return nil
}

// Claim blocks up to timeout for the next task and moves it to the processing
// list. It returns nil when nothing arrived in time.
func (q *Queue) Claim(ctx context.Context, timeout time.Duration) (*Task, error) {
	raw, err := q.client.BRPopLPush(ctx, q.name, q.processing, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim recompute task: %w", err)
	}

	task := &Task{raw: raw}
	if err := json.Unmarshal([]byte(raw), task); err != nil {
		// Unreadable payloads are dropped so they do not block the queue.
		q.logger.Warn("dropping malformed recompute task", zap.String("payload", raw), zap.Error(err))
		if ackErr := q.client.LRem(ctx, q.processing, 1, raw).Err(); ackErr != nil {
			return nil, fmt.Errorf("drop malformed task: %w", ackErr)
		}
		return nil, nil
	}
	return task, nil
}

// Ack removes a finished task from the processing list.
func (q *Queue) Ack(ctx context.Context, task *Task) error {
	if err := q.client.LRem(ctx, q.processing, 1, task.raw).Err(); err != nil {
		return fmt.Errorf("ack recompute task %s: %w", task.ID, err)
	}
	return nil
}

// Retry acknowledges the task and enqueues its next attempt.
func (q *Queue) Retry(ctx context.Context, task *Task) error {
	next := *task
	next.Attempt++
	next.raw = ""
	if err := q.push(ctx, next); err != nil {
		return err
	}
	return q.Ack(ctx, task)
}

// Recover moves tasks left on the processing list by a previous worker back
// onto the queue and returns how many were moved.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.RPopLPush(ctx, q.processing, q.name).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("recover recompute tasks: %w", err)
		}
		moved++
	}
}

// Len returns the number of queued and in-flight tasks.
func (q *Queue) Len(ctx context.Context) (queued, processing int64, err error) {
	if queued, err = q.client.LLen(ctx, q.name).Result(); err != nil {
		return 0, 0, fmt.Errorf("queue length: %w", err)
	}
	if processing, err = q.client.LLen(ctx, q.processing).Result(); err != nil {
		return 0, 0, fmt.Errorf("processing length: %w", err)
	}
	return queued, processing, nil
}
