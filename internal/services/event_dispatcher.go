package services

import (
	"context"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

// EventDispatcher bridges the cross-instance event channel to this
// instance's websocket subscribers. Delivery is best-effort and at-most-once
// per subscriber; there is no replay queue, late joiners fetch a snapshot.
type EventDispatcher struct {
	broadcaster domain.AuctionBroadcaster
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewEventDispatcher(connManager domain.ConnectionManager,
	broadcaster domain.AuctionBroadcaster, log logger.Logger) *EventDispatcher {
	return &EventDispatcher{
		broadcaster: broadcaster,
		connManager: connManager,
		log:         log,
	}
}

func (d *EventDispatcher) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	d.log.Info("Starting event dispatcher")
	return subscriber.SubscribeToAuctionEvents(ctx, d.handleEvent)
}

func (d *EventDispatcher) handleEvent(event *domain.AuctionEvent) error {
	if err := d.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, event); err != nil {
		d.log.Error("Failed to broadcast event", "type", event.Type,
			"auction_id", event.AuctionID, "error", err)
		return err
	}

	// Terminal events also tear down the auction's subscriber set; the
	// record stays readable through the snapshot endpoint.
	switch event.Type {
	case domain.EventEnded, domain.EventCancelled:
		if err := d.connManager.CloseAndUnregisterConnections(event.AuctionID); err != nil {
			d.log.Error("Failed to close connections", "auction_id", event.AuctionID, "error", err)
			return err
		}
	}

	return nil
}
