package service

import (
	"context"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// NotificationService appends notifications to the outbox and mirrors them
// to the courier.
type NotificationService struct {
	notificationOutbox NotificationOutbox
	courier            Courier
	metrics            *metrics.Metrics
	fanOutLimit        int
	now                func() time.Time
}

func NewNotificationService(notificationOutbox NotificationOutbox, courier Courier, m *metrics.Metrics, fanOutLimit int) *NotificationService {
	if courier == nil {
		courier = NopCourier{}
	}
	if fanOutLimit < 1 {
		fanOutLimit = 1
	}
	return &NotificationService{
		notificationOutbox: notificationOutbox,
		courier:            courier,
		metrics:            m,
		fanOutLimit:        fanOutLimit,
		now:                time.Now,
	}
}

// Notify appends a single notification. The error is already logged.
func (s *NotificationService) Notify(ctx context.Context, notification entity.Notification) error {
	return s.append(ctx, notification, nil)
}

// Deliver appends every notification of batch in parallel and returns the
// ones that could not be appended. With newRetrier set each append is retried.
func (s *NotificationService) Deliver(ctx context.Context, batch *entity.NotificationBatch, newRetrier func() *retry.Retrier) []entity.Notification {
	var (
		mu     sync.Mutex
		failed []entity.Notification
	)

	errwg := new(errgroup.Group)
	errwg.SetLimit(s.fanOutLimit)
	for i := range batch.Notifications {
		notification := batch.Notifications[i]
		errwg.Go(func() error {
			var retrier *retry.Retrier
			if newRetrier != nil {
				retrier = newRetrier()
			}
			if err := s.append(ctx, notification, retrier); err != nil {
				mu.Lock()
				failed = append(failed, notification)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = errwg.Wait()

	return failed
}

// Dispatch delivers batch once and writes its log row. Returns the number of
// notifications that failed.
func (s *NotificationService) Dispatch(ctx context.Context, batch *entity.NotificationBatch) int {
	failed := s.Deliver(ctx, batch, nil)

	status := entity.BatchSuccess
	for _, notification := range failed {
		if notification.Category == entity.NotificationRoster {
			status = entity.BatchFailure
			break
		}
	}

	s.LogBatch(ctx, batch, status)
	return len(failed)
}

func (s *NotificationService) LogBatch(ctx context.Context, batch *entity.NotificationBatch, status entity.BatchStatus) {
	batchLog := entity.BatchLog{
		BatchID:        batch.ID,
		Title:          batch.Title,
		RecipientCount: batch.RecipientCount,
		Status:         status,
		SentAt:         s.now().UTC(),
	}

	err := s.notificationOutbox.AppendBatchLog(ctx, batchLog)
	if err != nil {
		log.Error().Err(err).Str("batchId", batch.ID).Msg("Error appending batch log:")
	}
}

func (s *NotificationService) append(ctx context.Context, notification entity.Notification, retrier *retry.Retrier) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now().UTC()
	}
	notification.Read = false

	appendFn := func() error {
		return s.notificationOutbox.AppendNotification(ctx, notification)
	}

	var err error
	if retrier != nil {
		err = retrier.Run(appendFn)
	} else {
		err = appendFn()
	}
	if err != nil {
		s.metrics.IncFailed(string(notification.Category))
		log.Error().Err(err).
			Str("recipient", notification.Recipient).
			Str("title", notification.Title).
			Msg("Error appending notification:")
		return err
	}
	s.metrics.IncDelivered(string(notification.Category))

	err = s.courier.Deliver(ctx, notification)
	if err != nil {
		log.Warn().Err(err).Str("recipient", notification.Recipient).Msg("Error mirroring notification:")
	}
	return nil
}
