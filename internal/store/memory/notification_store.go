package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

// NotificationStore is the in-memory inbox with idempotency-key dedup.
type NotificationStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.Notification
	keys map[string]bool
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		byID: make(map[string]*domain.Notification),
		keys: make(map[string]bool),
	}
}

func (s *NotificationStore) SaveNotification(ctx context.Context, notification *domain.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := notification.IdempotencyKey()
	if s.keys[key] {
		return false, nil
	}

	copied := *notification
	s.byID[notification.ID] = &copied
	s.keys[key] = true
	return true, nil
}

func (s *NotificationStore) ListForRecipient(ctx context.Context, recipient string) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var notifications []*domain.Notification
	for _, n := range s.byID {
		if n.Recipient == recipient {
			copied := *n
			notifications = append(notifications, &copied)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.Before(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, exists := s.byID[notificationID]; exists {
		n.Read = true
	}
	return nil
}
