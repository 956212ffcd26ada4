package domain

import (
	"fmt"
	"time"
)

// Notification is a persisted point-to-point message destined for a user's
// inbox. Delivery is at-least-once; the idempotency key makes duplicate
// delivery a no-op at the store.
type Notification struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	AuctionID string                 `json:"auction_id"`
	Recipient string                 `json:"recipient"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Read      bool                   `json:"read"`
}

type NotificationType string

const (
	NotificationOutbid NotificationType = "outbid"
	NotificationWon    NotificationType = "won"
	NotificationSold   NotificationType = "sold"
	NotificationEnded  NotificationType = "ended"
)

// IdempotencyKey identifies a notification across redeliveries.
func (n *Notification) IdempotencyKey() string {
	return fmt.Sprintf("%s:%s:%s", n.AuctionID, n.Type, n.Recipient)
}
