package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// NotificationService reads and mutates a user's own notifications.
type NotificationService struct {
	notifications notificationRepository
	logger        *zap.Logger
}

// NewNotificationService constructs a NotificationService instance.
func NewNotificationService(notifications notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: notifications, logger: logger}
}

// Notify creates a notification for a user.
func (s *NotificationService) Notify(ctx context.Context, userID, message string) error {
	if err := s.notifications.Create(ctx, &models.Notification{UserID: userID, Message: message}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return nil
}

// ListForUser returns the user's notifications newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags one of the user's own notifications as read. A
// notification belonging to someone else reads as not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	updated, err := s.notifications.MarkRead(ctx, id, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}
