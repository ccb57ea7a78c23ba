package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Enqueuer is the producer side of a queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// ErrNotRunning is returned by Enqueue before Start or after Stop.
var ErrNotRunning = errors.New("queue not running")

// Config tunes workers and retries. Retries back off exponentially from
// RetryBase up to RetryMax; after RetryLimit failed retries a message is
// moved to the dead-letter list.
type Config struct {
	Workers      int
	RetryLimit   int
	RetryBase    time.Duration
	RetryMax     time.Duration
	PollInterval time.Duration
	BlockTimeout time.Duration
	KeyPrefix    string
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
	if c.RetryMax < c.RetryBase {
		c.RetryMax = 5 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "signals:queue"
	}
}

// Message is the stored envelope.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// ParsePayload decodes a message payload into T.
func ParsePayload[T any](payload json.RawMessage) (T, error) {
	var out T
	if len(payload) == 0 {
		return out, errors.New("empty payload")
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
	outcomeAbandon
)

// dispatch runs the job for msg and decides what happens to it next. msg is
// updated in place for retries and dead letters.
func dispatch(ctx context.Context, jobs map[string]Job, msg *Message, retryLimit int) (out outcome) {
	job, ok := jobs[msg.Type]
	if !ok {
		msg.LastError = "no job registered for type " + msg.Type
		return outcomeDead
	}

	defer func() {
		if r := recover(); r != nil {
			out = fail(msg, fmt.Errorf("panic: %v", r), retryLimit)
		}
	}()

	err := job.Handle(ctx, msg.Payload)
	switch {
	case err == nil:
		return outcomeDone
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// Shutdown interrupted the job; the message goes back untouched.
		return outcomeAbandon
	default:
		return fail(msg, err, retryLimit)
	}
}

func fail(msg *Message, err error, retryLimit int) outcome {
	msg.LastError = err.Error()
	if msg.Attempts >= retryLimit {
		return outcomeDead
	}
	msg.Attempts++
	return outcomeRetry
}

// retryDelay is base * 2^(attempt-1), capped at max.
func retryDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d >= max/2 {
			return max
		}
		d *= 2
	}
	if d > max {
		return max
	}
	return d
}
