package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"closetapi/models"
)

const (
	TypeRequeueStale = "closet:requeue_stale"
	RequeueCron      = "*/15 * * * *"
)

type StaleClothingLister interface {
	ListStaleProcessing(ctx context.Context, before time.Time, maxRetries int, limit int) ([]models.Clothing, error)
}

type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewRequeueStaleTask() *asynq.Task {
	return asynq.NewTask(TypeRequeueStale, nil)
}

// StaleRequeuer puts items back on the queue when their processing task was lost.
type StaleRequeuer struct {
	Clothes StaleClothingLister
	Tasks   Enqueuer
	MaxAge  time.Duration
	Batch   int
	now     func() time.Time
}

func (r *StaleRequeuer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRequeueStale, r.RequeueStaleTask)
}

func (r *StaleRequeuer) RequeueStaleTask(ctx context.Context, _ *asynq.Task) error {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	batch := r.Batch
	if batch <= 0 {
		batch = 100
	}

	stale, err := r.Clothes.ListStaleProcessing(ctx, now().Add(-r.MaxAge), MaxProcessingRetries, batch)
	if err != nil {
		return fmt.Errorf("[Requeue] list stale clothes: %w", err)
	}
	log.Info().Msgf("[Requeue] Found %d stale clothes", len(stale))

	for _, clothing := range stale {
		task, err := NewClothingProcessingTask(clothing.ID)
		if err != nil {
			return err
		}
		// one requeue per item and attempt
		_, err = r.Tasks.Enqueue(task,
			asynq.MaxRetry(MaxProcessingRetries),
			asynq.Queue(QueueGenerate),
			asynq.TaskID(fmt.Sprintf("requeue-%d-%d", clothing.ID, clothing.ProcessRetryTimes)))
		if err != nil {
			log.Warn().Err(err).Msgf("[Clothing: %d] Requeue failed", clothing.ID)
			continue
		}
		log.Info().Msgf("[Clothing: %d] Requeued", clothing.ID)
	}
	return nil
}
