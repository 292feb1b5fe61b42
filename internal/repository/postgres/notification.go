package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
)

const notificationColumns = `id, provider_id, type, message, status, created_at, updated_at`

const insertNotification = `
	INSERT INTO notifications (id, provider_id, type, message, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type notificationRepository struct {
	*BaseRepository
}

func NewNotificationRepository(base *BaseRepository) repository.NotificationRepository {
	return &notificationRepository{
		BaseRepository: base,
	}
}

func prepareNotification(n *model.Notification, now time.Time) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = model.NotificationStatusUnread
	}
	n.CreatedAt = now
	n.UpdatedAt = now
}

func notificationArgs(n *model.Notification) []interface{} {
	return []interface{}{n.ID, n.ProviderID, n.Type, n.Message, n.Status, n.CreatedAt, n.UpdatedAt}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	prepareNotification(n, time.Now().UTC())
	if _, err := r.GetDB().ExecContext(ctx, insertNotification, notificationArgs(n)...); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// BulkCreate inserts all rows or none.
func (r *notificationRepository) BulkCreate(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, n := range notifications {
			prepareNotification(n, now)
			if _, err := tx.ExecContext(ctx, insertNotification, notificationArgs(n)...); err != nil {
				return fmt.Errorf("failed to create notification for provider %s: %w", n.ProviderID, err)
			}
		}
		return nil
	})
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	var n model.Notification
	if err := r.GetDB().GetContext(ctx, &n, query, id); err != nil {
		return nil, lookupErr(err, "notification")
	}
	return &n, nil
}

func (r *notificationRepository) List(ctx context.Context) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at, id`
	notifications := []*model.Notification{}
	if err := r.GetDB().SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.GetDB().ExecContext(ctx, query, model.NotificationStatusRead, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return requireRow(result, "notification")
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireRow(result, "notification")
}
