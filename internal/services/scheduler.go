package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

// LifecycleScheduler sweeps all non-terminal auctions and advances them by
// elapsed time: scheduled auctions go live at their start time, live
// auctions emit countdown ticks and a single ending-soon signal, and expired
// auctions close to ended or sold. Every transition reuses the same
// conditional-write path as the bidding side, so a sweep racing a
// last-second bid loses cleanly and re-evaluates on the next tick.
type LifecycleScheduler struct {
	cron           *cron.Cron
	store          domain.AuctionStore
	auctionMgr     *AuctionManager
	eventPub       domain.EventPublisher
	leaderElection domain.LeaderElection
	instanceID     string
	threshold      time.Duration
	log            logger.Logger
	now            func() time.Time

	mu          sync.Mutex
	endingSoon  map[string]bool
	cronEntryID cron.EntryID
}

func NewLifecycleScheduler(
	store domain.AuctionStore,
	auctionMgr *AuctionManager,
	eventPub domain.EventPublisher,
	leaderElection domain.LeaderElection,
	instanceID string,
	endingSoonThreshold time.Duration,
	log logger.Logger,
) *LifecycleScheduler {
	return &LifecycleScheduler{
		cron:           cron.New(cron.WithSeconds()),
		store:          store,
		auctionMgr:     auctionMgr,
		eventPub:       eventPub,
		leaderElection: leaderElection,
		instanceID:     instanceID,
		threshold:      endingSoonThreshold,
		log:            log,
		now:            time.Now,
		endingSoon:     make(map[string]bool),
	}
}

func (s *LifecycleScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting lifecycle scheduler", "ending_soon_threshold", s.threshold)

	entryID, err := s.cron.AddFunc("@every 1s", func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cronEntryID = entryID
	s.cron.Start()
	return nil
}

func (s *LifecycleScheduler) Stop() error {
	s.log.Info("Stopping lifecycle scheduler")
	s.cron.Stop()
	return nil
}

// Sweep runs one pass over all scheduled and live auctions. Only the leader
// instance drives transitions; followers idle until they win the lease.
func (s *LifecycleScheduler) Sweep(ctx context.Context) {
	if s.leaderElection != nil {
		isLeader, err := s.leaderElection.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Leader check failed", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	auctions, err := s.store.ListByStatus(ctx, domain.AuctionScheduled, domain.AuctionLive)
	if err != nil {
		s.log.Error("Failed to list auctions for sweep", "error", err)
		return
	}

	live := make(map[string]bool, len(auctions))
	for _, auction := range auctions {
		if auction.Status == domain.AuctionLive {
			live[auction.ID] = true
		}
	}
	s.pruneEndingSoon(live)

	now := s.now()
	for _, auction := range auctions {
		s.advance(ctx, auction, now)
	}
}

func (s *LifecycleScheduler) advance(ctx context.Context, auction *domain.Auction, now time.Time) {
	switch auction.Status {
	case domain.AuctionScheduled:
		if !now.Before(auction.StartTime) {
			if err := s.auctionMgr.Activate(ctx, auction); err != nil && !errors.Is(err, domain.ErrVersionConflict) {
				s.log.Error("Failed to activate auction", "auction_id", auction.ID, "error", err)
			}
		}

	case domain.AuctionLive:
		if !now.Before(auction.EndTime) {
			err := s.auctionMgr.CloseExpired(ctx, auction)
			if err != nil && !errors.Is(err, domain.ErrVersionConflict) {
				s.log.Error("Failed to close auction", "auction_id", auction.ID, "error", err)
			}
			if err == nil {
				s.clearEndingSoon(auction.ID)
			}
			return
		}

		remaining := auction.RemainingTime(now)
		s.publishEvent(ctx, domain.NewCountdownEvent(auction.ID, remaining, now))

		if remaining < s.threshold && s.markEndingSoon(auction.ID) {
			s.publishEvent(ctx, domain.NewEndingSoonEvent(auction.ID, remaining, now))
			s.log.Info("Auction ending soon", "auction_id", auction.ID, "remaining", remaining)
		}
	}
}

// markEndingSoon returns true only on the first crossing per auction.
func (s *LifecycleScheduler) markEndingSoon(auctionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.endingSoon[auctionID] {
		return false
	}
	s.endingSoon[auctionID] = true
	return true
}

func (s *LifecycleScheduler) clearEndingSoon(auctionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.endingSoon, auctionID)
}

// pruneEndingSoon drops flags for auctions that left the live set through
// any path this instance did not drive itself, such as a cancellation or a
// close performed by another leader.
func (s *LifecycleScheduler) pruneEndingSoon(live map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for auctionID := range s.endingSoon {
		if !live[auctionID] {
			delete(s.endingSoon, auctionID)
		}
	}
}

func (s *LifecycleScheduler) publishEvent(ctx context.Context, event *domain.AuctionEvent) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "type", event.Type,
			"auction_id", event.AuctionID, "error", err)
	}
}
