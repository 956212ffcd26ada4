package domain

import (
	"time"
)

// AuctionEvent is the single wire shape for all fan-out variants. The Type
// tag decides which optional fields are populated; each variant has a fixed
// field set.
type AuctionEvent struct {
	Type       EventType `json:"type"`
	AuctionID  string    `json:"auction_id"`
	CurrentBid float64   `json:"current_bid,omitempty"`
	TotalBids  int       `json:"total_bids,omitempty"`
	Bidder     string    `json:"bidder,omitempty"`
	Remaining  float64   `json:"remaining_seconds,omitempty"`
	Status     string    `json:"status,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	FinalPrice float64   `json:"final_price,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type EventType string

const (
	EventBidAccepted EventType = "bid-accepted"
	EventCountdown   EventType = "countdown"
	EventEndingSoon  EventType = "auction-ending-soon"
	EventEnded       EventType = "auction-ended"
	EventCancelled   EventType = "auction-cancelled"
)

func NewBidAcceptedEvent(auctionID, bidder string, currentBid float64, totalBids int, at time.Time) *AuctionEvent {
	return &AuctionEvent{
		Type:       EventBidAccepted,
		AuctionID:  auctionID,
		CurrentBid: currentBid,
		TotalBids:  totalBids,
		Bidder:     bidder,
		Timestamp:  at,
	}
}

func NewCountdownEvent(auctionID string, remaining time.Duration, at time.Time) *AuctionEvent {
	return &AuctionEvent{
		Type:      EventCountdown,
		AuctionID: auctionID,
		Remaining: remaining.Seconds(),
		Timestamp: at,
	}
}

func NewEndingSoonEvent(auctionID string, remaining time.Duration, at time.Time) *AuctionEvent {
	return &AuctionEvent{
		Type:      EventEndingSoon,
		AuctionID: auctionID,
		Remaining: remaining.Seconds(),
		Timestamp: at,
	}
}

func NewEndedEvent(a *Auction, at time.Time) *AuctionEvent {
	event := &AuctionEvent{
		Type:      EventEnded,
		AuctionID: a.ID,
		Status:    a.Status.String(),
		Timestamp: at,
	}
	if a.Status == AuctionSold {
		event.Winner = a.Winner
		event.FinalPrice = a.WinningBid
	}
	return event
}

func NewCancelledEvent(auctionID string, at time.Time) *AuctionEvent {
	return &AuctionEvent{
		Type:      EventCancelled,
		AuctionID: auctionID,
		Status:    AuctionCancelled.String(),
		Timestamp: at,
	}
}
