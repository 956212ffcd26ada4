package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

// NotificationStore persists inbox notifications. A unique key on
// (auction_id, type, recipient) makes redelivery a no-op: INSERT IGNORE
// affects zero rows for a duplicate.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (r *NotificationStore) SaveNotification(ctx context.Context, notification *domain.Notification) (bool, error) {
	payload, err := json.Marshal(notification.Payload)
	if err != nil {
		return false, err
	}

	query := `
        INSERT IGNORE INTO notifications (id, type, auction_id, recipient, payload, created_at, is_read)
        VALUES (?, ?, ?, ?, ?, ?, FALSE)
    `
	result, err := r.db.ExecContext(ctx, query,
		notification.ID, string(notification.Type), notification.AuctionID,
		notification.Recipient, payload, notification.CreatedAt)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *NotificationStore) ListForRecipient(ctx context.Context, recipient string) ([]*domain.Notification, error) {
	query := `
        SELECT id, type, auction_id, recipient, payload, created_at, is_read
        FROM notifications
        WHERE recipient = ?
        ORDER BY created_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var notification domain.Notification
		var notificationType string
		var payload []byte

		err := rows.Scan(&notification.ID, &notificationType, &notification.AuctionID,
			&notification.Recipient, &payload, &notification.CreatedAt, &notification.Read)
		if err != nil {
			return nil, err
		}

		notification.Type = domain.NotificationType(notificationType)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &notification.Payload); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, &notification)
	}

	return notifications, rows.Err()
}

func (r *NotificationStore) MarkRead(ctx context.Context, notificationID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = ?`, notificationID)
	return err
}
