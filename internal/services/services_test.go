package services

import (
	"context"
	"sync"
	"time"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/internal/store/memory"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
	"github.com/viru4/CraftCurio-sub000/pkg/utils"
)

// capturePublisher records published events for assertions. Safe for
// concurrent use so race tests can share it.
type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.AuctionEvent
}

func (p *capturePublisher) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(eventType domain.EventType) []*domain.AuctionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []*domain.AuctionEvent
	for _, event := range p.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type testEnv struct {
	store         *memory.AuctionStore
	notifications *memory.NotificationStore
	publisher     *capturePublisher
	auctionMgr    *AuctionManager
	bidService    *BidService
	scheduler     *LifecycleScheduler
	now           time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:         memory.NewAuctionStore(),
		notifications: memory.NewNotificationStore(),
		publisher:     &capturePublisher{},
		now:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	log := logger.NewNop()
	env.auctionMgr = NewAuctionManager(env.store, env.notifications, nil, env.publisher, nil, nil, log)
	env.bidService = NewBidService(env.store, env.publisher, env.auctionMgr, log)
	env.scheduler = NewLifecycleScheduler(env.store, env.auctionMgr, env.publisher, nil, "test-instance",
		5*time.Minute, log)

	clock := func() time.Time { return env.now }
	env.auctionMgr.now = clock
	env.bidService.now = clock
	env.scheduler.now = clock

	return env
}

func (env *testEnv) advanceClock(d time.Duration) {
	env.now = env.now.Add(d)
}

type auctionOpts struct {
	status       domain.AuctionStatus
	startingBid  float64
	reservePrice float64
	buyNowPrice  float64
	minIncrement float64
	startIn      time.Duration
	endIn        time.Duration
}

func (env *testEnv) seedAuction(opts auctionOpts) *domain.Auction {
	if opts.endIn == 0 {
		opts.endIn = 2 * time.Hour
	}
	if opts.startingBid == 0 {
		opts.startingBid = 100
	}

	auction := &domain.Auction{
		ID:           utils.GenerateID("auction"),
		Seller:       "seller-1",
		Status:       opts.status,
		StartTime:    env.now.Add(opts.startIn),
		EndTime:      env.now.Add(opts.endIn),
		StartingBid:  opts.startingBid,
		ReservePrice: opts.reservePrice,
		BuyNowPrice:  opts.buyNowPrice,
		MinIncrement: opts.minIncrement,
		CurrentBid:   opts.startingBid,
		CreatedAt:    env.now,
		UpdatedAt:    env.now,
	}

	if err := env.store.CreateAuction(context.Background(), auction); err != nil {
		panic(err)
	}
	return auction
}

func (env *testEnv) reload(auctionID string) *domain.Auction {
	auction, err := env.store.GetAuction(context.Background(), auctionID)
	if err != nil {
		panic(err)
	}
	return auction
}

func (env *testEnv) notificationsFor(recipient string) []*domain.Notification {
	notifications, err := env.notifications.ListForRecipient(context.Background(), recipient)
	if err != nil {
		panic(err)
	}
	return notifications
}
