package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"SignalEngine/internal/domain/models"
	pkgkafka "SignalEngine/pkg/kafka"
)

var errEmptySnapshot = errors.New("snapshot message has no payload")

// snapshotEvaluator is the part of SignalEvaluator the topic handler needs.
type snapshotEvaluator interface {
	Evaluate(ctx context.Context, symbol, family string, raw models.RawSnapshot) (*models.SignalResult, error)
}

// KafkaSnapshotsHandler evaluates indicator snapshots published on a topic.
// Results leave through the evaluator's store and publisher.
type KafkaSnapshotsHandler struct {
	topic     string
	evaluator snapshotEvaluator
}

func NewKafkaSnapshotsHandler(topic string, evaluator *SignalEvaluator) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, evaluator: evaluator}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

// Handle accepts either {symbol, family, snapshot} or a bare snapshot object.
func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	symbol, family, raw, err := DecodeSnapshotMessage(b)
	if err != nil {
		return err
	}
	if _, err := h.evaluator.Evaluate(ctx, symbol, family, raw); err != nil {
		return fmt.Errorf("evaluate %s: %w", symbol, err)
	}
	return nil
}

// DecodeSnapshotMessage reads either {symbol, family, snapshot} or a bare
// snapshot object. A family key inside a bare snapshot is lifted out.
func DecodeSnapshotMessage(b []byte) (symbol, family string, raw models.RawSnapshot, err error) {
	var env struct {
		Symbol   string          `json:"symbol"`
		Family   string          `json:"family"`
		Snapshot json.RawMessage `json:"snapshot"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return "", "", nil, fmt.Errorf("decode snapshot message: %w", err)
	}

	if len(env.Snapshot) > 0 && env.Snapshot[0] == '{' {
		if err := json.Unmarshal(env.Snapshot, &raw); err != nil {
			return "", "", nil, fmt.Errorf("decode snapshot: %w", err)
		}
		return env.Symbol, env.Family, raw, nil
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return "", "", nil, fmt.Errorf("decode snapshot: %w", err)
	}
	delete(raw, "family")
	if len(raw) == 0 {
		return "", "", nil, errEmptySnapshot
	}
	return env.Symbol, env.Family, raw, nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
