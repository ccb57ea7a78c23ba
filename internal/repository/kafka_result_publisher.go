package repository

import (
	"context"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgkafka "SignalEngine/pkg/kafka"
)

// KafkaResultPublisher writes results to the results topic keyed by symbol,
// so all results of a symbol land on one partition in order.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, r *models.SignalResult) error {
	return p.PublishBatch(ctx, []*models.SignalResult{r})
}

func (p *KafkaResultPublisher) PublishBatch(ctx context.Context, rs []*models.SignalResult) error {
	msgs := make([]pkgkafka.Message, 0, len(rs))
	for _, r := range rs {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(r.Symbol),
			Value: r,
			Headers: map[string]string{
				"family": r.Family,
				"signal": string(r.Signal),
			},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
