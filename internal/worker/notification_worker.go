package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/notify"
	"github.com/spec-kit/study-share/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartWelcomeRequeue periodically feeds failed welcome mail back to the
// dispatcher until ctx is done. A non-positive interval disables it. The
// returned channel closes when the loop has exited.
func StartWelcomeRequeue(ctx context.Context, interval time.Duration, batch int, store notify.FailureStore, dispatcher *notify.Dispatcher, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 || store == nil || dispatcher == nil {
		close(done)
		return done
	}
	if batch <= 0 {
		batch = 50
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := notify.Requeue(ctx, store, dispatcher, batch)
				if err != nil && ctx.Err() == nil {
					logger.Warn("welcome requeue failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("welcome mail requeued", zap.Int("count", n))
				}
			}
		}
	}()
	return done
}
