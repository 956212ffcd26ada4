package services

import (
	"context"
	"errors"
	"time"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

// maxBidAttempts bounds the internal retry after a lost conditional write.
// One reload against fresh state, then the conflict is surfaced.
const maxBidAttempts = 2

// BidService accepts bids and buy-now purchases. Acceptance is a
// compare-and-swap on the auction record: the mutation is built against a
// loaded version and applied only if that version is still current, so two
// callers racing at the same price can never both win it.
type BidService struct {
	store          domain.AuctionStore
	eventPub       domain.EventPublisher
	auctionManager *AuctionManager
	log            logger.Logger
	now            func() time.Time
}

func NewBidService(
	store domain.AuctionStore,
	eventPub domain.EventPublisher,
	auctionManager *AuctionManager,
	log logger.Logger,
) *BidService {
	return &BidService{
		store:          store,
		eventPub:       eventPub,
		auctionManager: auctionManager,
		log:            log,
		now:            time.Now,
	}
}

type BidResult struct {
	CurrentBid float64 `json:"current_bid"`
	TotalBids  int     `json:"total_bids"`
	// Finalized is set when the bid met the buy-now price and closed the
	// auction in the same step.
	Finalized bool `json:"finalized"`
}

type BuyNowResult struct {
	FinalPrice float64 `json:"final_price"`
}

// PlaceBid validates and atomically applies one bid. A bid at or above the
// buy-now price finalizes the auction to sold in the same write instead of
// leaving it live above the advertised instant price.
func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*BidResult, error) {
	var lastErr error

	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		auction, err := s.store.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		if auction.Status != domain.AuctionLive {
			return nil, domain.ErrAuctionNotLive
		}
		if amount <= 0 || amount < auction.MinimumNextBid() {
			return nil, &domain.BidTooLowError{
				CurrentBid: auction.CurrentBid,
				MinimumBid: auction.MinimumNextBid(),
			}
		}

		previousLeader := auction.HighestBidder()
		placedAt := s.now()

		updated := auction.Clone()
		updated.BidHistory = append(updated.BidHistory, domain.Bid{
			Bidder:    bidderID,
			Amount:    amount,
			Timestamp: placedAt,
		})
		updated.CurrentBid = amount
		updated.TotalBids++
		updated.UpdatedAt = placedAt

		finalized := auction.BuyNowPrice > 0 && amount >= auction.BuyNowPrice
		if finalized {
			updated.Status = domain.AuctionSold
			updated.Winner = bidderID
			updated.WinningBid = amount
		}

		if err := s.store.UpdateAuction(ctx, updated, auction.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				// Price or status moved underneath us; retry once against
				// the fresh record.
				lastErr = err
				continue
			}
			return nil, err
		}

		if finalized {
			s.auctionManager.AfterSold(ctx, updated)
		} else {
			s.publishEvent(ctx, domain.NewBidAcceptedEvent(auctionID, bidderID, amount, updated.TotalBids, placedAt))
			if previousLeader != "" && previousLeader != bidderID {
				s.auctionManager.QueueNotification(ctx, domain.NotificationOutbid, auctionID, previousLeader,
					map[string]interface{}{
						"current_bid": amount,
						"your_bid":    auction.CurrentBid,
					})
			}
		}

		s.log.Info("Bid accepted", "auction_id", auctionID, "bidder", bidderID,
			"amount", amount, "total_bids", updated.TotalBids, "finalized", finalized)

		return &BidResult{
			CurrentBid: updated.CurrentBid,
			TotalBids:  updated.TotalBids,
			Finalized:  finalized,
		}, nil
	}

	return nil, lastErr
}

// BuyNow short-circuits a live auction to sold at the configured buy-now
// price. It races against top-of-market bids on the same record; exactly one
// finalization wins, the loser gets ErrAuctionFinalized.
func (s *BidService) BuyNow(ctx context.Context, auctionID, buyerID string) (*BuyNowResult, error) {
	var lastErr error

	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		auction, err := s.store.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		if auction.Status.Terminal() {
			return nil, domain.ErrAuctionFinalized
		}
		if auction.Status != domain.AuctionLive {
			return nil, domain.ErrAuctionNotLive
		}
		if auction.BuyNowPrice <= 0 {
			return nil, domain.ErrBuyNowUnavailable
		}

		boughtAt := s.now()
		updated := auction.Clone()
		updated.Status = domain.AuctionSold
		updated.Winner = buyerID
		updated.WinningBid = auction.BuyNowPrice
		updated.UpdatedAt = boughtAt

		if err := s.store.UpdateAuction(ctx, updated, auction.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				lastErr = domain.ErrAuctionFinalized
				continue
			}
			return nil, err
		}

		s.auctionManager.AfterSold(ctx, updated)
		s.log.Info("Buy-now accepted", "auction_id", auctionID, "buyer", buyerID,
			"final_price", updated.WinningBid)

		return &BuyNowResult{FinalPrice: updated.WinningBid}, nil
	}

	return nil, lastErr
}

func (s *BidService) publishEvent(ctx context.Context, event *domain.AuctionEvent) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "type", event.Type,
			"auction_id", event.AuctionID, "error", err)
	}
}
