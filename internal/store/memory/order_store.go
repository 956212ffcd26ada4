package memory

import (
	"context"
	"sync"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*domain.Order)}
}

func (s *OrderStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *order
	s.orders[order.AuctionID] = &copied
	return nil
}

func (s *OrderStore) UpdatePaymentStatus(ctx context.Context, auctionID string, status domain.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order, exists := s.orders[auctionID]; exists {
		order.PaymentStatus = status
	}
	return nil
}

// GetOrder is used by tests to observe settlement outcomes.
func (s *OrderStore) GetOrder(auctionID string) (*domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[auctionID]
	if !exists {
		return nil, false
	}
	copied := *order
	return &copied, true
}
