package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDispatch(t *testing.T) {
	boom := errors.New("boom")
	jobs := map[string]Job{
		"ok":    JobFunc{Kind: "ok", Fn: func(context.Context, json.RawMessage) error { return nil }},
		"fail":  JobFunc{Kind: "fail", Fn: func(context.Context, json.RawMessage) error { return boom }},
		"panic": JobFunc{Kind: "panic", Fn: func(context.Context, json.RawMessage) error { panic("kaboom") }},
		"cancel": JobFunc{Kind: "cancel", Fn: func(ctx context.Context, _ json.RawMessage) error {
			return ctx.Err()
		}},
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name         string
		ctx          context.Context
		msg          Message
		want         outcome
		wantAttempts int
		wantError    bool
	}{
		{"success", context.Background(), Message{Type: "ok"}, outcomeDone, 0, false},
		{"first failure retries", context.Background(), Message{Type: "fail"}, outcomeRetry, 1, true},
		{"last retry", context.Background(), Message{Type: "fail", Attempts: 2}, outcomeRetry, 3, true},
		{"exhausted", context.Background(), Message{Type: "fail", Attempts: 3}, outcomeDead, 3, true},
		{"panic retries", context.Background(), Message{Type: "panic"}, outcomeRetry, 1, true},
		{"unknown type", context.Background(), Message{Type: "nope"}, outcomeDead, 0, true},
		{"shutdown", cancelled, Message{Type: "cancel"}, outcomeAbandon, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			if got := dispatch(tt.ctx, jobs, &msg, 3); got != tt.want {
				t.Fatalf("outcome = %d, want %d", got, tt.want)
			}
			if msg.Attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", msg.Attempts, tt.wantAttempts)
			}
			if (msg.LastError != "") != tt.wantError {
				t.Errorf("last error = %q", msg.LastError)
			}
		})
	}
}

func TestRetryDelay(t *testing.T) {
	base, max := 100*time.Millisecond, time.Second
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{64, time.Second},
	}
	for _, tt := range tests {
		if got := retryDelay(base, max, tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestParsePayload(t *testing.T) {
	type item struct {
		Symbol string `json:"symbol"`
	}
	got, err := ParsePayload[[]item](json.RawMessage(`[{"symbol":"NIFTY"},{"symbol":"BANKNIFTY"}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[1].Symbol != "BANKNIFTY" {
		t.Errorf("unexpected payload %+v", got)
	}
	if _, err := ParsePayload[item](nil); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := ParsePayload[item](json.RawMessage(`[`)); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestEnqueueRequiresStart(t *testing.T) {
	q := NewRedisQueue(nil, nil, Config{})
	if err := q.Enqueue(context.Background(), "ok", 1); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
}

func TestKeysAndDefaults(t *testing.T) {
	q := NewRedisQueue(nil, nil, Config{KeyPrefix: "sig:q"})
	if q.queueKey() != "sig:q:messages" || q.retryKey() != "sig:q:retry" || q.deadLetterKey() != "sig:q:dlq" {
		t.Errorf("unexpected keys %s %s %s", q.queueKey(), q.retryKey(), q.deadLetterKey())
	}
	if q.config.Workers != 1 || q.config.RetryBase != time.Second || q.config.RetryMax != 5*time.Minute {
		t.Errorf("unexpected defaults %+v", q.config)
	}
}
