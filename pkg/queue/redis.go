package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"SignalEngine/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// promoteDue moves retries whose time has come back onto the work list in
// one step, so two instances never promote the same message twice.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

const promoteBatch = 100

// RedisQueue is a list-backed work queue with a sorted-set retry schedule
// and a dead-letter list:
//
//	<prefix>:messages  LPUSH / BRPOP
//	<prefix>:retry     ZADD score=due unix ms
//	<prefix>:dlq       LPUSH
type RedisQueue struct {
	logger *logger.Logger
	config Config
	client *redis.Client
	jobs   map[string]Job

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

func NewRedisQueue(lgr *logger.Logger, client *redis.Client, cfg Config) *RedisQueue {
	cfg.setDefaults()
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &RedisQueue{
		logger: lgr.Component("queue"),
		config: cfg,
		client: client,
		jobs:   make(map[string]Job),
		now:    time.Now,
	}
}

// RegisterJob must be called before Start.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered", logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry promoter.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true

	if len(r.jobs) > 0 {
		for i := 0; i < r.config.Workers; i++ {
			r.wg.Add(1)
			go r.worker(i)
		}
		r.wg.Add(1)
		go r.retryLoop()
	}

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.Int("jobs", len(r.jobs)),
		logger.String("prefix", r.config.KeyPrefix))
	return nil
}

// Stop cancels the workers and waits for them. Messages interrupted by the
// cancellation are pushed back to the work list.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

// Enqueue JSON-encodes payload and appends it to the work list.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Message{
		ID:         uuid.NewString(),
		Type:       msgType,
		Payload:    raw,
		EnqueuedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Stats reports the length of the work, retry and dead-letter sets.
func (r *RedisQueue) Stats(ctx context.Context) (pending, retrying, dead int64, err error) {
	pipe := r.client.Pipeline()
	p := pipe.LLen(ctx, r.queueKey())
	rt := pipe.ZCard(ctx, r.retryKey())
	d := pipe.LLen(ctx, r.deadLetterKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, 0, err
	}
	return p.Val(), rt.Val(), d.Val(), nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for r.ctx.Err() == nil {
		res, err := r.client.BRPop(r.ctx, r.config.BlockTimeout, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || r.ctx.Err() != nil {
				continue
			}
			r.logger.Error("brpop", logger.Error(err))
			r.sleep(r.config.PollInterval)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("undecodable message moved to dlq", logger.Error(err))
			r.pushDead([]byte(res[1]))
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	start := r.now()
	out := dispatch(r.ctx, r.jobs, &msg, r.config.RetryLimit)
	fields := []logger.Field{
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempts", msg.Attempts),
		logger.Duration("elapsed", r.now().Sub(start)),
	}

	// Bookkeeping must survive the shutdown that may have interrupted the job.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch out {
	case outcomeDone:
		r.logger.Debug("message processed", fields...)
	case outcomeRetry:
		due := r.now().Add(retryDelay(r.config.RetryBase, r.config.RetryMax, msg.Attempts))
		r.logger.Warn("message failed, retry scheduled",
			append(fields, logger.String("error", msg.LastError), logger.Any("retry_at", due))...)
		data, _ := json.Marshal(msg)
		if err := r.client.ZAdd(ctx, r.retryKey(), redis.Z{Score: float64(due.UnixMilli()), Member: data}).Err(); err != nil {
			r.logger.Error("zadd retry", append(fields, logger.Error(err))...)
		}
	case outcomeDead:
		r.logger.Error("message dead-lettered", append(fields, logger.String("error", msg.LastError))...)
		data, _ := json.Marshal(msg)
		r.pushDead(data)
	case outcomeAbandon:
		data, _ := json.Marshal(msg)
		if err := r.client.RPush(ctx, r.queueKey(), data).Err(); err != nil {
			r.logger.Error("requeue interrupted message", append(fields, logger.Error(err))...)
		}
	}
}

func (r *RedisQueue) pushDead(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.LPush(ctx, r.deadLetterKey(), data).Err(); err != nil {
		r.logger.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			n, err := promoteDue.Run(r.ctx, r.client,
				[]string{r.retryKey(), r.queueKey()},
				strconv.FormatInt(r.now().UnixMilli(), 10), promoteBatch,
			).Int()
			if err != nil {
				if r.ctx.Err() == nil {
					r.logger.Error("promote retries", logger.Error(err))
				}
				continue
			}
			if n > 0 {
				r.logger.Debug("retries promoted", logger.Int("count", n))
			}
		}
	}
}

func (r *RedisQueue) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-r.ctx.Done():
	case <-t.C:
	}
}

func (r *RedisQueue) queueKey() string      { return r.config.KeyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.config.KeyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.config.KeyPrefix + ":dlq" }

var _ Enqueuer = (*RedisQueue)(nil)
