package services

import (
	"context"
	"errors"
	"time"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/internal/settlement"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
	"github.com/viru4/CraftCurio-sub000/pkg/utils"
)

const minAuctionDuration = time.Hour

// AuctionManager owns every auction state transition that is not a bid:
// creation, activation, time-driven close, cancellation and relisting. All
// writes go through the store's conditional-update path keyed on the record
// version; a lost write is surfaced (or skipped, for sweep-driven
// transitions) rather than overwriting a concurrent mutation.
type AuctionManager struct {
	store         domain.AuctionStore
	notifications domain.NotificationStore
	statusCache   domain.AuctionStatusCache
	eventPub      domain.EventPublisher
	notifier      domain.UserNotifier
	settlements   *settlement.Processor
	log           logger.Logger
	now           func() time.Time
}

func NewAuctionManager(
	store domain.AuctionStore,
	notifications domain.NotificationStore,
	statusCache domain.AuctionStatusCache,
	eventPub domain.EventPublisher,
	notifier domain.UserNotifier,
	settlements *settlement.Processor,
	log logger.Logger,
) *AuctionManager {
	return &AuctionManager{
		store:         store,
		notifications: notifications,
		statusCache:   statusCache,
		eventPub:      eventPub,
		notifier:      notifier,
		settlements:   settlements,
		log:           log,
		now:           time.Now,
	}
}

type CreateAuctionParams struct {
	Seller       string
	StartTime    time.Time
	EndTime      time.Time
	StartingBid  float64
	ReservePrice float64
	BuyNowPrice  float64
	MinIncrement float64
}

func (am *AuctionManager) CreateAuction(ctx context.Context, params CreateAuctionParams) (*domain.Auction, error) {
	if !params.EndTime.After(params.StartTime) || params.EndTime.Sub(params.StartTime) < minAuctionDuration {
		return nil, domain.ErrInvalidTimeRange
	}
	if params.StartingBid <= 0 {
		return nil, errors.New("starting bid must be positive")
	}

	now := am.now()
	auction := &domain.Auction{
		ID:           utils.GenerateID("auction"),
		Seller:       params.Seller,
		Status:       domain.AuctionScheduled,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		StartingBid:  params.StartingBid,
		ReservePrice: params.ReservePrice,
		BuyNowPrice:  params.BuyNowPrice,
		MinIncrement: params.MinIncrement,
		CurrentBid:   params.StartingBid,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := am.store.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}

	am.setStatusCache(ctx, auction.ID, auction.Status)
	am.log.Info("Auction created", "auction_id", auction.ID, "seller", auction.Seller,
		"start_time", auction.StartTime, "end_time", auction.EndTime)
	return auction, nil
}

// Activate moves a scheduled auction to live once its start time arrives.
// Called by the lifecycle sweep; a lost conditional write means another
// instance already advanced the record, so the caller skips the tick.
func (am *AuctionManager) Activate(ctx context.Context, auction *domain.Auction) error {
	if auction.Status != domain.AuctionScheduled {
		return nil
	}

	updated := auction.Clone()
	updated.Status = domain.AuctionLive
	updated.UpdatedAt = am.now()

	if err := am.store.UpdateAuction(ctx, updated, auction.Version); err != nil {
		return err
	}

	am.setStatusCache(ctx, auction.ID, domain.AuctionLive)
	am.log.Info("Auction went live", "auction_id", auction.ID)
	return nil
}

// CloseExpired drives a live auction past its end time into ended or sold.
// Sold requires at least one bid and the reserve (if any) to be met. The
// conditional write guarantees a last-moment bid that already advanced the
// version is never overwritten; the caller skips and re-evaluates next sweep.
func (am *AuctionManager) CloseExpired(ctx context.Context, auction *domain.Auction) error {
	if auction.Status != domain.AuctionLive {
		return nil
	}

	updated := auction.Clone()
	updated.UpdatedAt = am.now()
	if auction.TotalBids > 0 && auction.ReserveMet() {
		updated.Status = domain.AuctionSold
		updated.Winner = auction.HighestBidder()
		updated.WinningBid = auction.CurrentBid
	} else {
		updated.Status = domain.AuctionEnded
	}

	if err := am.store.UpdateAuction(ctx, updated, auction.Version); err != nil {
		return err
	}

	if updated.Status == domain.AuctionSold {
		am.AfterSold(ctx, updated)
	} else {
		am.afterEndedUnsold(ctx, updated)
	}
	return nil
}

// Cancel terminates a live auction that has no bids.
func (am *AuctionManager) Cancel(ctx context.Context, auctionID string) error {
	auction, err := am.store.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}

	if auction.Status != domain.AuctionLive {
		return domain.ErrAuctionNotLive
	}
	if auction.TotalBids > 0 {
		return domain.ErrCannotCancelWithBids
	}

	updated := auction.Clone()
	updated.Status = domain.AuctionCancelled
	updated.UpdatedAt = am.now()

	if err := am.store.UpdateAuction(ctx, updated, auction.Version); err != nil {
		return err
	}

	am.setStatusCache(ctx, auctionID, domain.AuctionCancelled)
	am.publishEvent(ctx, domain.NewCancelledEvent(auctionID, am.now()))
	am.log.Info("Auction cancelled", "auction_id", auctionID)
	return nil
}

type RelistParams struct {
	StartTime    time.Time
	EndTime      time.Time
	StartingBid  float64
	ReservePrice float64
	MinIncrement float64
}

// Relist derives a fresh scheduled auction from an ended, unsold one. The
// source is claimed first (RelistedAs set under a conditional write) so a
// racing relist of the same auction fails with ErrAlreadyRelisted instead of
// producing two successors.
func (am *AuctionManager) Relist(ctx context.Context, auctionID string, params RelistParams) (*domain.Auction, error) {
	source, err := am.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if source.Status != domain.AuctionEnded {
		return nil, domain.ErrNotEligibleForRelist
	}
	if source.RelistedAs != "" {
		return nil, domain.ErrAlreadyRelisted
	}

	now := am.now()
	if !params.EndTime.After(params.StartTime) || params.StartTime.Before(now) {
		return nil, domain.ErrInvalidTimeRange
	}

	successor := &domain.Auction{
		ID:           utils.GenerateID("auction"),
		Seller:       source.Seller,
		Status:       domain.AuctionScheduled,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		StartingBid:  source.StartingBid,
		ReservePrice: source.ReservePrice,
		BuyNowPrice:  source.BuyNowPrice,
		MinIncrement: source.MinIncrement,
		RelistOf:     source.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if params.StartingBid > 0 {
		successor.StartingBid = params.StartingBid
	}
	if params.ReservePrice > 0 {
		successor.ReservePrice = params.ReservePrice
	}
	if params.MinIncrement > 0 {
		successor.MinIncrement = params.MinIncrement
	}
	successor.CurrentBid = successor.StartingBid

	claimed := source.Clone()
	claimed.RelistedAs = successor.ID
	claimed.UpdatedAt = now
	if err := am.store.UpdateAuction(ctx, claimed, source.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, domain.ErrAlreadyRelisted
		}
		return nil, err
	}

	if err := am.store.CreateAuction(ctx, successor); err != nil {
		am.releaseRelistClaim(ctx, claimed)
		return nil, err
	}

	am.setStatusCache(ctx, successor.ID, successor.Status)
	am.log.Info("Auction relisted", "auction_id", source.ID, "relisted_as", successor.ID)
	return successor, nil
}

// releaseRelistClaim undoes a committed claim whose successor was never
// created, so the source must not stay pointed at a nonexistent auction.
// The conditional write is keyed on the claim's own version; nothing else
// mutates an ended auction, so the release cannot lose a race.
func (am *AuctionManager) releaseRelistClaim(ctx context.Context, claimed *domain.Auction) {
	released := claimed.Clone()
	released.RelistedAs = ""
	released.UpdatedAt = am.now()

	if err := am.store.UpdateAuction(ctx, released, claimed.Version); err != nil {
		am.log.Error("Failed to release relist claim", "auction_id", claimed.ID,
			"orphaned_successor", claimed.RelistedAs, "error", err)
	}
}

type AuctionSnapshot struct {
	AuctionID        string       `json:"auction_id"`
	Status           string       `json:"status"`
	CurrentBid       float64      `json:"current_bid"`
	MinimumNextBid   float64      `json:"minimum_next_bid"`
	TotalBids        int          `json:"total_bids"`
	BidHistory       []domain.Bid `json:"bid_history"`
	StartTime        time.Time    `json:"start_time"`
	EndTime          time.Time    `json:"end_time"`
	RemainingSeconds float64      `json:"remaining_seconds"`
	BuyNowPrice      float64      `json:"buy_now_price,omitempty"`
	Winner           string       `json:"winner,omitempty"`
	WinningBid       float64      `json:"winning_bid,omitempty"`
	RelistOf         string       `json:"relist_of,omitempty"`
	RelistedAs       string       `json:"relisted_as,omitempty"`
}

// Snapshot is the authoritative read a newly joined subscriber fetches
// instead of replaying historical events.
func (am *AuctionManager) Snapshot(ctx context.Context, auctionID string) (*AuctionSnapshot, error) {
	auction, err := am.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	return &AuctionSnapshot{
		AuctionID:        auction.ID,
		Status:           auction.Status.String(),
		CurrentBid:       auction.CurrentBid,
		MinimumNextBid:   auction.MinimumNextBid(),
		TotalBids:        auction.TotalBids,
		BidHistory:       auction.BidHistory,
		StartTime:        auction.StartTime,
		EndTime:          auction.EndTime,
		RemainingSeconds: auction.RemainingTime(am.now()).Seconds(),
		BuyNowPrice:      auction.BuyNowPrice,
		Winner:           auction.Winner,
		WinningBid:       auction.WinningBid,
		RelistOf:         auction.RelistOf,
		RelistedAs:       auction.RelistedAs,
	}, nil
}

// AfterSold runs the side effects of a committed sold transition: status
// cache, auction-ended fan-out, won/sold notifications and the settlement
// handoff. The sold state is already durable; nothing here can revert it.
func (am *AuctionManager) AfterSold(ctx context.Context, auction *domain.Auction) {
	am.setStatusCache(ctx, auction.ID, domain.AuctionSold)
	am.publishEvent(ctx, domain.NewEndedEvent(auction, am.now()))

	am.QueueNotification(ctx, domain.NotificationWon, auction.ID, auction.Winner, map[string]interface{}{
		"winning_bid": auction.WinningBid,
	})
	am.QueueNotification(ctx, domain.NotificationSold, auction.ID, auction.Seller, map[string]interface{}{
		"winning_bid": auction.WinningBid,
		"winner":      auction.Winner,
	})

	if am.settlements != nil {
		go am.settlements.Submit(context.Background(), auction)
	}

	am.log.Info("Auction sold", "auction_id", auction.ID, "winner", auction.Winner,
		"winning_bid", auction.WinningBid)
}

func (am *AuctionManager) afterEndedUnsold(ctx context.Context, auction *domain.Auction) {
	am.setStatusCache(ctx, auction.ID, domain.AuctionEnded)
	am.publishEvent(ctx, domain.NewEndedEvent(auction, am.now()))

	am.QueueNotification(ctx, domain.NotificationEnded, auction.ID, auction.Seller, map[string]interface{}{
		"total_bids": auction.TotalBids,
	})
	if bidder := auction.HighestBidder(); bidder != "" {
		// Bids existed but the reserve was not met.
		am.QueueNotification(ctx, domain.NotificationEnded, auction.ID, bidder, map[string]interface{}{
			"reserve_met": false,
		})
	}

	am.log.Info("Auction ended without sale", "auction_id", auction.ID, "total_bids", auction.TotalBids)
}

// QueueNotification persists a point-to-point notification and pushes it to
// the recipient's live connections. The store dedupes on the idempotency
// key, so redelivery is harmless.
func (am *AuctionManager) QueueNotification(ctx context.Context, notificationType domain.NotificationType,
	auctionID, recipient string, payload map[string]interface{}) {
	if recipient == "" {
		return
	}

	notification := &domain.Notification{
		ID:        utils.GenerateID("notif"),
		Type:      notificationType,
		AuctionID: auctionID,
		Recipient: recipient,
		Payload:   payload,
		CreatedAt: am.now(),
	}

	created, err := am.notifications.SaveNotification(ctx, notification)
	if err != nil {
		am.log.Error("Failed to persist notification", "type", notificationType,
			"auction_id", auctionID, "recipient", recipient, "error", err)
		return
	}
	if !created {
		return
	}

	if am.notifier != nil {
		if err := am.notifier.NotifyUser(ctx, recipient, notification); err != nil {
			am.log.Error("Failed to push notification", "recipient", recipient, "error", err)
		}
	}
}

func (am *AuctionManager) publishEvent(ctx context.Context, event *domain.AuctionEvent) {
	if am.eventPub == nil {
		return
	}
	if err := am.eventPub.PublishAuctionEvent(ctx, event); err != nil {
		am.log.Error("Failed to publish event", "type", event.Type,
			"auction_id", event.AuctionID, "error", err)
	}
}

func (am *AuctionManager) setStatusCache(ctx context.Context, auctionID string, status domain.AuctionStatus) {
	if am.statusCache == nil {
		return
	}
	if err := am.statusCache.SetAuctionStatus(ctx, auctionID, status); err != nil {
		am.log.Error("Failed to update status cache", "auction_id", auctionID, "error", err)
	}
}
