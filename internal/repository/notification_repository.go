package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/school-portal-api/internal/models"
)

const insertNotificationQuery = `INSERT INTO notifications (id, user_id, message, read, created_at)
    VALUES (:id, :user_id, :message, :read, :created_at)`

// NotificationRepository handles persistence of user notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func prepareNotification(notification *models.Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	prepareNotification(notification)
	if _, err := r.db.NamedExecContext(ctx, insertNotificationQuery, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// createNotificationTx inserts a notification inside an existing transaction.
func createNotificationTx(ctx context.Context, tx *sqlx.Tx, notification *models.Notification) error {
	prepareNotification(notification)
	if _, err := tx.NamedExecContext(ctx, insertNotificationQuery, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's notifications newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	const query = `SELECT id, user_id, message, read, created_at
        FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read. The user scope keeps one user
// from touching another user's notifications; false means no such row.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return affected == 1, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}
