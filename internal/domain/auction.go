package domain

import (
	"math"
	"time"
)

type Auction struct {
	ID           string
	Seller       string
	Status       AuctionStatus
	StartTime    time.Time
	EndTime      time.Time
	StartingBid  float64
	ReservePrice float64 // 0 means no reserve
	BuyNowPrice  float64 // 0 means buy-now disabled
	MinIncrement float64 // 0 means derived from current bid
	CurrentBid   float64
	TotalBids    int
	BidHistory   []Bid
	Winner       string
	WinningBid   float64
	RelistOf     string
	RelistedAs   string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Bid struct {
	Bidder    string    `json:"bidder"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

type AuctionStatus int

const (
	AuctionScheduled AuctionStatus = iota
	AuctionLive
	AuctionEnded
	AuctionSold
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionScheduled:
		return "scheduled"
	case AuctionLive:
		return "live"
	case AuctionEnded:
		return "ended"
	case AuctionSold:
		return "sold"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the auction can never change state again.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionEnded || s == AuctionSold || s == AuctionCancelled
}

// MinimumIncrement returns the increment required over the current bid.
// When no explicit increment is configured it derives one as 5% of the
// current bid, floored at 1.
func (a *Auction) MinimumIncrement() float64 {
	if a.MinIncrement > 0 {
		return a.MinIncrement
	}
	return math.Max(1, a.CurrentBid*0.05)
}

// MinimumNextBid is the lowest amount the next bid may carry.
func (a *Auction) MinimumNextBid() float64 {
	return a.CurrentBid + a.MinimumIncrement()
}

// HighestBidder returns the bidder of the most recent accepted bid, or ""
// when no bids were placed. History is append-only and monotonic, so the
// last entry always holds the top of market.
func (a *Auction) HighestBidder() string {
	if len(a.BidHistory) == 0 {
		return ""
	}
	return a.BidHistory[len(a.BidHistory)-1].Bidder
}

// RemainingTime is never negative, even after the end time passed.
func (a *Auction) RemainingTime(now time.Time) time.Duration {
	remaining := a.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ReserveMet reports whether a close at the current price produces a sale.
func (a *Auction) ReserveMet() bool {
	return a.ReservePrice == 0 || a.CurrentBid >= a.ReservePrice
}

// Clone returns a deep copy so callers can mutate a working copy without
// touching shared state.
func (a *Auction) Clone() *Auction {
	clone := *a
	clone.BidHistory = make([]Bid, len(a.BidHistory))
	copy(clone.BidHistory, a.BidHistory)
	return &clone
}
