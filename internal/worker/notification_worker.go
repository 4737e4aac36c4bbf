package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/config"
	"github.com/spec-kit/eventix/internal/events"
	"github.com/spec-kit/eventix/internal/service"
)

// StartNotificationWorker subscribes ticket lifecycle notifications to
// dispatcher. It returns nil when there is no dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg)
	notifications.RegisterHandlers()
	logger.Info("notification worker started", zap.Bool("webhook", cfg.WebhookURL != ""))
	return notifications
}
