package domain

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestMinimumIncrement_DerivedFromCurrentBid(t *testing.T) {
	auction := &Auction{CurrentBid: 100}
	check.Equal(t, 5.0, auction.MinimumIncrement())
	check.Equal(t, 105.0, auction.MinimumNextBid())

	// Low prices floor the derived increment at 1.
	auction.CurrentBid = 10
	check.Equal(t, 1.0, auction.MinimumIncrement())

	auction.CurrentBid = 1000
	check.Equal(t, 50.0, auction.MinimumIncrement())
}

func TestMinimumIncrement_ExplicitWins(t *testing.T) {
	auction := &Auction{CurrentBid: 1000, MinIncrement: 25}
	check.Equal(t, 25.0, auction.MinimumIncrement())
	check.Equal(t, 1025.0, auction.MinimumNextBid())
}

func TestRemainingTime_ClampsAtZero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	auction := &Auction{EndTime: now.Add(90 * time.Second)}

	check.Equal(t, 90*time.Second, auction.RemainingTime(now))
	check.Equal(t, time.Duration(0), auction.RemainingTime(now.Add(2*time.Minute)))
}

func TestReserveMet(t *testing.T) {
	noReserve := &Auction{CurrentBid: 100}
	check.True(t, noReserve.ReserveMet())

	unmet := &Auction{CurrentBid: 100, ReservePrice: 150}
	check.False(t, unmet.ReserveMet())

	met := &Auction{CurrentBid: 150, ReservePrice: 150}
	check.True(t, met.ReserveMet())
}

func TestHighestBidder_TracksLastAcceptedBid(t *testing.T) {
	auction := &Auction{}
	check.Equal(t, "", auction.HighestBidder())

	auction.BidHistory = []Bid{
		{Bidder: "bidder-1", Amount: 105},
		{Bidder: "bidder-2", Amount: 115},
	}
	check.Equal(t, "bidder-2", auction.HighestBidder())
}

func TestStatusTerminal(t *testing.T) {
	check.False(t, AuctionScheduled.Terminal())
	check.False(t, AuctionLive.Terminal())
	check.True(t, AuctionEnded.Terminal())
	check.True(t, AuctionSold.Terminal())
	check.True(t, AuctionCancelled.Terminal())
}

func TestClone_IsolatesBidHistory(t *testing.T) {
	auction := &Auction{
		ID:         "auction_1",
		BidHistory: []Bid{{Bidder: "bidder-1", Amount: 105}},
	}

	clone := auction.Clone()
	clone.BidHistory = append(clone.BidHistory, Bid{Bidder: "bidder-2", Amount: 115})
	clone.BidHistory[0].Amount = 999

	check.Equal(t, 1, len(auction.BidHistory))
	check.Equal(t, 105.0, auction.BidHistory[0].Amount)
}
