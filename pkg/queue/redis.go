package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"SigForge/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Redis-list-backed job queue with a bounded worker pool.
type RedisQueue struct {
	logger    *logger.Logger
	config    *Config
	client    *redis.Client
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	stopCh    chan struct{}
	cancel    context.CancelFunc
	ctx       context.Context
	keyPrefix string
}

// Option configures RedisQueue.
type Option func(*RedisQueue)

// WithKeyPrefix sets a custom key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisQueue) { r.keyPrefix = prefix }
}

// NewRedisQueue creates a new Redis queue.
func NewRedisQueue(lgr *logger.Logger, config *Config, client *redis.Client, opts ...Option) *RedisQueue {
	if config == nil {
		config = &Config{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	rq := &RedisQueue{
		logger:    lgr,
		config:    config,
		client:    client,
		jobs:      make(map[string]Job),
		stopCh:    make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: "sigforge:queue",
	}

	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob registers a job handler by message type.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Type()] = job
}

// PublishMessage enqueues a message for asynchronous processing.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	msg := Message{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.listKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Depth returns the number of queued messages.
func (r *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.listKey()).Result()
}

// Start launches worker goroutines; it does not block.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	r.isRunning = true
	r.mu.Unlock()

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return nil
}

// Stop cancels workers and waits for them to drain.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	close(r.stopCh)
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		res, err := r.client.BRPop(r.ctx, 2*time.Second, r.listKey()).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if r.ctx.Err() != nil {
				return
			}
			r.logger.Error("queue brpop failed", logger.Int("worker", id), logger.Error(err))
			select {
			case <-r.stopCh:
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("queue message decode failed", logger.Error(err))
			continue
		}
		r.process(&msg)
	}
}

// process runs the registered job; failed messages are requeued until the
// retry limit is reached.
func (r *RedisQueue) process(msg *Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("no job registered for message type", logger.String("type", msg.Type))
		return
	}

	err := job.Handle(r.ctx, msg.Payload)
	if err == nil {
		return
	}

	msg.Attempts++
	if msg.Attempts > r.config.RetryLimit {
		r.logger.Error("queue job dropped after retries",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID),
			logger.Int("attempts", msg.Attempts),
			logger.Error(err),
		)
		return
	}

	r.logger.Warn("queue job failed, requeueing",
		logger.String("type", msg.Type),
		logger.Int("attempt", msg.Attempts),
		logger.Error(err),
	)

	select {
	case <-r.stopCh:
		return
	case <-time.After(r.config.RetryDelay):
	}

	data, merr := json.Marshal(msg)
	if merr != nil {
		return
	}
	if perr := r.client.LPush(r.ctx, r.listKey(), data).Err(); perr != nil {
		r.logger.Error("queue requeue failed", logger.Error(perr))
	}
}

func (r *RedisQueue) listKey() string {
	return r.keyPrefix + ":jobs"
}
