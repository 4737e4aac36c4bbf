package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/config"
	"github.com/spec-kit/eventix/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketPurchased, n.handleTicketPurchased)
	n.dispatcher.Subscribe(events.EventTicketListed, n.handleTicketListed)
	n.dispatcher.Subscribe(events.EventTicketResold, n.handleTicketResold)
	n.dispatcher.Subscribe(events.EventOwnershipRepair, n.handleOwnershipRepair)
}

func (n *NotificationService) handleTicketPurchased(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketPurchased", zap.String("mint", event.Mint), zap.String("wallet", event.Wallet), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketListed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketListed", zap.String("mint", event.Mint), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketResold(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketResold", zap.String("mint", event.Mint), zap.String("wallet", event.Wallet), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleOwnershipRepair(_ context.Context, event events.Event) error {
	n.logger.Warn("TicketOwnershipReconciled", zap.String("mint", event.Mint), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("mint", event.Mint),
		zap.String("event_type", string(event.Type)))
}
