package domain

import (
	"context"
)

// Store interfaces
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	// UpdateAuction applies the mutated record only if the stored version
	// still equals expectedVersion; otherwise it fails with
	// ErrVersionConflict and writes nothing.
	UpdateAuction(ctx context.Context, auction *Auction, expectedVersion int64) error
	ListByStatus(ctx context.Context, statuses ...AuctionStatus) ([]*Auction, error)
}

type NotificationStore interface {
	// SaveNotification returns false when a notification with the same
	// idempotency key already exists.
	SaveNotification(ctx context.Context, notification *Notification) (bool, error)
	ListForRecipient(ctx context.Context, recipient string) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
}

type OrderStore interface {
	SaveOrder(ctx context.Context, order *Order) error
	UpdatePaymentStatus(ctx context.Context, auctionID string, status PaymentStatus) error
}

// Cache interfaces
type AuctionStatusCache interface {
	SetAuctionStatus(ctx context.Context, auctionID string, status AuctionStatus) error
	GetAuctionStatus(ctx context.Context, auctionID string) (AuctionStatus, error)
}

// Event interfaces
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

// Notification interfaces
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}

// Settlement boundary
type SettlementClient interface {
	Settle(ctx context.Context, order *Order) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, auctionID string, conn WebSocketConnection) error
	UnregisterConnection(userID, auctionID string) error
	GetConnectionsForAuction(auctionID string) []WebSocketConnection
	GetConnectionsForUser(userID string) []WebSocketConnection
	BroadcastToAuction(auctionID string, message interface{}) error
	NotifyUser(userID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}
