package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"MarketLens/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the queue keys in Redis.
const DefaultKeyPrefix = "marketlens:queue"

var (
	// ErrNotRunning is returned by Enqueue before Start or after Stop.
	ErrNotRunning = errors.New("queue not running")
	// ErrUnknownJob is returned by Enqueue for a type no job handles.
	ErrUnknownJob = errors.New("no job registered")
)

const promoteEvery = 5 * time.Second

// Queue is a Redis list queue that both enqueues and runs jobs.
type Queue struct {
	client *redis.Client
	cfg    Config
	log    *logger.Logger
	prefix string
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*Queue)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(q *Queue) { q.prefix = prefix }
}

func New(client *redis.Client, cfg *Config, log *logger.Logger, opts ...Option) *Queue {
	if log == nil {
		log = logger.Nop()
	}
	q := &Queue{
		client: client,
		cfg:    cfg.withDefaults(),
		log:    log,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Register adds a job. A second job for the same type is ignored.
func (q *Queue) Register(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, dup := q.jobs[job.Type()]; dup {
		q.log.Warn("job type already registered", logger.String("type", job.Type()))
		return
	}
	q.jobs[job.Type()] = job
}

// Start pings Redis and launches the workers and the retry promoter.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return errors.New("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := q.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
	q.wg.Add(1)
	go q.promote(ctx)

	q.log.Info("job queue started",
		logger.Int("workers", q.cfg.Workers),
		logger.String("prefix", q.prefix))
	return nil
}

// Stop cancels in-flight jobs and waits for the workers until ctx ends.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("job queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// Enqueue pushes a job of the given type. The payload is stored as JSON.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any) error {
	q.mu.RLock()
	running := q.running
	_, known := q.jobs[jobType]
	q.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	b, err := json.Marshal(envelope{ID: uuid.NewString(), Type: jobType, Payload: raw, EnqueuedAt: q.now()})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.pendingKey(), b).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}

// Stats reports the depth of the pending, retry and dead-letter keys.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, q.pendingKey())
	retry := pipe.ZCard(ctx, q.retryKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{Pending: pending.Val(), Retrying: retry.Val(), Dead: dead.Val()}, nil
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, q.cfg.PollTimeout, q.pendingKey()).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
			continue
		default:
			q.log.Error("job pop failed", logger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}
		if len(res) < 2 {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			q.log.Error("dropping malformed job", logger.Error(err))
			continue
		}
		q.run(ctx, env)
	}
}

func (q *Queue) run(ctx context.Context, env envelope) {
	q.mu.RLock()
	job, ok := q.jobs[env.Type]
	q.mu.RUnlock()
	if !ok {
		env.LastError = ErrUnknownJob.Error()
		q.bury(env)
		return
	}

	start := q.now()
	err := job.Handle(ctx, env.Payload)
	switch {
	case err == nil:
		q.log.Debug("job done",
			logger.String("id", env.ID),
			logger.String("type", env.Type),
			logger.Duration("took", q.now().Sub(start)))
	case ctx.Err() != nil:
		// shutting down; the job is lost with its attempt
		q.log.Warn("job cancelled", logger.String("id", env.ID), logger.String("type", env.Type))
	default:
		q.fail(env, err)
	}
}

// fail schedules a retry or moves the job to the dead-letter list.
func (q *Queue) fail(env envelope, err error) {
	env.Attempts++
	env.LastError = err.Error()
	if env.Attempts > q.cfg.RetryLimit {
		q.log.Error("job exhausted retries",
			logger.String("id", env.ID),
			logger.String("type", env.Type),
			logger.Int("attempts", env.Attempts),
			logger.Error(err))
		q.bury(env)
		return
	}

	due := q.now().Add(q.cfg.RetryDelay)
	q.log.Warn("job failed, retrying",
		logger.String("id", env.ID),
		logger.String("type", env.Type),
		logger.Int("attempt", env.Attempts),
		logger.Time("retry_at", due),
		logger.Error(err))
	b, mErr := json.Marshal(env)
	if mErr != nil {
		q.log.Error("marshal retry", logger.Error(mErr))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if zErr := q.client.ZAdd(ctx, q.retryKey(), redis.Z{Score: float64(due.Unix()), Member: b}).Err(); zErr != nil {
		q.log.Error("schedule retry", logger.Error(zErr))
	}
}

func (q *Queue) bury(env envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		q.log.Error("marshal dead job", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.LPush(ctx, q.deadKey(), b).Err(); err != nil {
		q.log.Error("dead-letter push", logger.Error(err))
	}
}

// promote moves due retries back to the pending list.
func (q *Queue) promote(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(promoteEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.promoteDue(ctx)
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) {
	due, err := q.client.ZRangeByScore(ctx, q.retryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.log.Error("read due retries", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		// only the instance whose ZREM wins pushes the job back
		removed, err := q.client.ZRem(ctx, q.retryKey(), member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.pendingKey(), member).Err(); err != nil {
			q.log.Error("requeue retry", logger.Error(err))
		}
	}
}

func (q *Queue) pendingKey() string { return q.prefix + ":pending" }
func (q *Queue) retryKey() string   { return q.prefix + ":retry" }
func (q *Queue) deadKey() string    { return q.prefix + ":dead" }
