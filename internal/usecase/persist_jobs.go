package usecase

import (
	"context"
	"encoding/json"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/queue"
)

// Queue message types for deferred persistence. Storing and publishing are
// separate messages so a retry of one never repeats the other.
const (
	JobStoreResults   = "store_results"
	JobPublishResults = "publish_results"
)

// NewStoreResultsJob writes queued results to the history store.
func NewStoreResultsJob(store domrepo.ResultStore) queue.Job {
	return queue.JobFunc{Kind: JobStoreResults, Fn: func(ctx context.Context, payload json.RawMessage) error {
		rs, err := queue.ParsePayload[[]*models.SignalResult](payload)
		if err != nil {
			return err
		}
		return store.StoreBatch(ctx, rs)
	}}
}

// NewPublishResultsJob sends queued results to the results topic.
func NewPublishResultsJob(pub domrepo.ResultPublisher) queue.Job {
	return queue.JobFunc{Kind: JobPublishResults, Fn: func(ctx context.Context, payload json.RawMessage) error {
		rs, err := queue.ParsePayload[[]*models.SignalResult](payload)
		if err != nil {
			return err
		}
		return pub.PublishBatch(ctx, rs)
	}}
}
