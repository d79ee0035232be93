package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/events"
	"github.com/spec-kit/study-share/internal/notify"
)

// WelcomeSender queues welcome mail without blocking.
type WelcomeSender interface {
	SendWelcome(to, displayName string) <-chan notify.Result
}

// NotificationService turns domain events into outbound notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     WelcomeSender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender WelcomeSender, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger.Named("notifications"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventReportFiled, n.handleAudit)
	n.dispatcher.Subscribe(events.EventReportResolved, n.handleAudit)
	n.dispatcher.Subscribe(events.EventQuestionDeleted, n.handleAudit)
	n.dispatcher.Subscribe(events.EventRoleChanged, n.handleAudit)
}

func (n *NotificationService) handleUserRegistered(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if n.sender == nil {
		return nil
	}
	result := n.sender.SendWelcome(payload.Email, payload.Name)
	go func() {
		res := <-result
		if !res.OK() {
			n.logger.Warn("welcome mail not delivered",
				zap.String("user_id", payload.UserID),
				zap.String("job_id", res.JobID),
				zap.String("reason", string(res.Reason)),
			)
		}
	}()
	return nil
}

func (n *NotificationService) handleAudit(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload),
	)
	return nil
}
