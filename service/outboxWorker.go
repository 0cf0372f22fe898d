package service

import (
	"context"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/metrics"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// OutboxWorker delivers fan-out batches queued on roster documents.
type OutboxWorker struct {
	rosterStore         RosterStore
	notificationService *NotificationService
	metrics             *metrics.Metrics
	interval            time.Duration
	batchSize           int
	maxAttempts         int
	newRetrier          func() *retry.Retrier
}

func NewOutboxWorker(rosterStore RosterStore, notificationService *NotificationService, config *helpers.Config, m *metrics.Metrics) *OutboxWorker {
	return &OutboxWorker{
		rosterStore:         rosterStore,
		notificationService: notificationService,
		metrics:             m,
		interval:            config.OutboxPollInterval,
		batchSize:           config.OutboxBatchSize,
		maxAttempts:         config.MaxDeliveryAttempts,
		newRetrier: func() *retry.Retrier {
			return retry.NewRetrier(3, 100*time.Millisecond, time.Second)
		},
	}
}

// Run drains the outbox every interval until ctx is done.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		_, err := w.DrainOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Error draining outbox:")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DrainOnce makes one delivery attempt for every queued batch and returns how
// many batches were settled.
func (w *OutboxWorker) DrainOnce(ctx context.Context) (int, error) {
	rosters, err := w.rosterStore.FindManyWithPendingBatches(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, roster := range rosters {
		for _, batch := range roster.PendingBatches {
			done, err := w.drainBatch(ctx, roster.ID, batch)
			if err != nil {
				return settled, err
			}
			if done {
				settled++
			}
		}
	}
	return settled, nil
}

func (w *OutboxWorker) drainBatch(ctx context.Context, rosterID bson.ObjectID, batch *entity.NotificationBatch) (bool, error) {
	failed := w.notificationService.Deliver(ctx, batch, w.newRetrier)
	if len(failed) == 0 {
		w.notificationService.LogBatch(ctx, batch, entity.BatchSuccess)
		return true, w.rosterStore.PullPendingBatch(ctx, rosterID, batch.ID)
	}

	if batch.Attempts+1 >= w.maxAttempts {
		log.Error().
			Str("rosterId", rosterID.Hex()).
			Str("batchId", batch.ID).
			Int("undelivered", len(failed)).
			Msg("Abandoning notification batch")
		w.metrics.IncAbandoned()
		w.notificationService.LogBatch(ctx, batch, entity.BatchFailure)
		return true, w.rosterStore.PullPendingBatch(ctx, rosterID, batch.ID)
	}

	log.Warn().
		Str("rosterId", rosterID.Hex()).
		Str("batchId", batch.ID).
		Int("undelivered", len(failed)).
		Int("attempt", batch.Attempts+1).
		Msg("Notification batch partially delivered")
	return false, w.rosterStore.UpdatePendingBatch(ctx, rosterID, batch.ID, failed)
}
