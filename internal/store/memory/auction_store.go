package memory

import (
	"context"
	"sync"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

// AuctionStore keeps auction records in process memory behind the same
// versioned conditional-write contract as the MySQL store. It backs unit
// tests and single-node deployments.
type AuctionStore struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{
		auctions: make(map[string]*domain.Auction),
	}
}

func (s *AuctionStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := auction.Clone()
	stored.Version = 1
	s.auctions[auction.ID] = stored
	auction.Version = stored.Version
	return nil
}

func (s *AuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, exists := s.auctions[auctionID]
	if !exists {
		return nil, domain.ErrAuctionNotFound
	}
	return auction.Clone(), nil
}

func (s *AuctionStore) UpdateAuction(ctx context.Context, auction *domain.Auction, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.auctions[auction.ID]
	if !exists {
		return domain.ErrAuctionNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	updated := auction.Clone()
	updated.Version = expectedVersion + 1
	s.auctions[auction.ID] = updated
	auction.Version = updated.Version
	return nil
}

func (s *AuctionStore) ListByStatus(ctx context.Context, statuses ...domain.AuctionStatus) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var auctions []*domain.Auction
	for _, auction := range s.auctions {
		for _, status := range statuses {
			if auction.Status == status {
				auctions = append(auctions, auction.Clone())
				break
			}
		}
	}
	return auctions, nil
}
