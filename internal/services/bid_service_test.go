package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

func TestPlaceBid_FirstBidMeetsDerivedMinimum(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100})

	// Derived increment on 100 is max(1, 5%) = 5, so the floor is 105.
	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 102)
	var tooLow *domain.BidTooLowError
	check.True(t, errors.As(err, &tooLow))
	check.Equal(t, 100.0, tooLow.CurrentBid)
	check.Equal(t, 105.0, tooLow.MinimumBid)

	result, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 105)
	check.Nil(t, err)
	check.Equal(t, 105.0, result.CurrentBid)
	check.Equal(t, 1, result.TotalBids)
	check.False(t, result.Finalized)

	stored := env.reload(auction.ID)
	check.Equal(t, 105.0, stored.CurrentBid)
	check.Equal(t, 1, stored.TotalBids)
	check.Equal(t, 1, len(stored.BidHistory))
	check.Equal(t, "bidder-1", stored.BidHistory[0].Bidder)
}

func TestPlaceBid_RejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100})

	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", -5)
	var tooLow *domain.BidTooLowError
	check.True(t, errors.As(err, &tooLow))

	_, err = env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 0)
	check.True(t, errors.As(err, &tooLow))
}

func TestPlaceBid_AuctionNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.bidService.PlaceBid(context.Background(), "auction_missing", "bidder-1", 100)
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}

func TestPlaceBid_AuctionNotLive(t *testing.T) {
	env := newTestEnv()

	for _, status := range []domain.AuctionStatus{
		domain.AuctionScheduled, domain.AuctionEnded, domain.AuctionSold, domain.AuctionCancelled,
	} {
		auction := env.seedAuction(auctionOpts{status: status, startingBid: 100})
		_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 200)
		check.True(t, errors.Is(err, domain.ErrAuctionNotLive))
	}
}

func TestPlaceBid_ExplicitIncrementHonored(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100, minIncrement: 25})

	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 110)
	var tooLow *domain.BidTooLowError
	check.True(t, errors.As(err, &tooLow))
	check.Equal(t, 125.0, tooLow.MinimumBid)

	result, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 125)
	check.Nil(t, err)
	check.Equal(t, 125.0, result.CurrentBid)
}

func TestPlaceBid_HistoryStaysMonotonicAndConsistent(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100, minIncrement: 10})

	amounts := []float64{110, 125, 140, 160}
	bidders := []string{"a", "b", "a", "c"}
	for i, amount := range amounts {
		_, err := env.bidService.PlaceBid(context.Background(), auction.ID, bidders[i], amount)
		check.Nil(t, err)
	}

	stored := env.reload(auction.ID)
	check.Equal(t, len(amounts), stored.TotalBids)
	check.Equal(t, stored.TotalBids, len(stored.BidHistory))
	check.Equal(t, amounts[len(amounts)-1], stored.CurrentBid)
	for i := 1; i < len(stored.BidHistory); i++ {
		check.True(t, stored.BidHistory[i].Amount >= stored.BidHistory[i-1].Amount+10)
	}
}

func TestPlaceBid_EmitsEventAndOutbidNotification(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100, minIncrement: 10})

	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 110)
	check.Nil(t, err)
	_, err = env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-2", 120)
	check.Nil(t, err)

	accepted := env.publisher.byType(domain.EventBidAccepted)
	check.Equal(t, 2, len(accepted))
	check.Equal(t, 120.0, accepted[1].CurrentBid)
	check.Equal(t, 2, accepted[1].TotalBids)
	check.Equal(t, "bidder-2", accepted[1].Bidder)

	outbid := env.notificationsFor("bidder-1")
	check.Equal(t, 1, len(outbid))
	check.Equal(t, domain.NotificationOutbid, outbid[0].Type)
	check.Equal(t, auction.ID, outbid[0].AuctionID)

	// The first bidder had no predecessor, and a bidder raising their own
	// bid must not be notified about themselves.
	check.Equal(t, 0, len(env.notificationsFor("bidder-2")))
}

func TestPlaceBid_SelfOutbidDoesNotNotify(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100, minIncrement: 10})

	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 110)
	check.Nil(t, err)
	_, err = env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 120)
	check.Nil(t, err)

	check.Equal(t, 0, len(env.notificationsFor("bidder-1")))
}

func TestPlaceBid_AtBuyNowPriceFinalizesSale(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{
		status: domain.AuctionLive, startingBid: 400, buyNowPrice: 500, minIncrement: 10,
	})

	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 480)
	check.Nil(t, err)

	result, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-2", 500)
	check.Nil(t, err)
	check.True(t, result.Finalized)
	check.Equal(t, 500.0, result.CurrentBid)

	stored := env.reload(auction.ID)
	check.Equal(t, domain.AuctionSold, stored.Status)
	check.Equal(t, "bidder-2", stored.Winner)
	check.Equal(t, 500.0, stored.WinningBid)
	check.Equal(t, 2, stored.TotalBids)
	check.Equal(t, stored.TotalBids, len(stored.BidHistory))

	ended := env.publisher.byType(domain.EventEnded)
	check.Equal(t, 1, len(ended))
	check.Equal(t, "sold", ended[0].Status)
	check.Equal(t, "bidder-2", ended[0].Winner)
	check.Equal(t, 500.0, ended[0].FinalPrice)

	// Won/sold notifications for buyer and seller.
	won := env.notificationsFor("bidder-2")
	check.Equal(t, 1, len(won))
	check.Equal(t, domain.NotificationWon, won[0].Type)
	sold := env.notificationsFor("seller-1")
	check.Equal(t, 1, len(sold))
	check.Equal(t, domain.NotificationSold, sold[0].Type)
}

func TestPlaceBid_ConcurrentBiddersNeverShareAPrice(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100, minIncrement: 5})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.bidService.PlaceBid(context.Background(), auction.ID,
				[]string{"bidder-a", "bidder-b"}[i], 105)
		}(i)
	}
	wg.Wait()

	// Exactly one bid may land at 105; the loser re-validates against the
	// fresh price and is told the new minimum.
	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var tooLow *domain.BidTooLowError
		check.True(t, errors.As(err, &tooLow))
		check.Equal(t, 110.0, tooLow.MinimumBid)
	}
	check.Equal(t, 1, successes)

	stored := env.reload(auction.ID)
	check.Equal(t, 105.0, stored.CurrentBid)
	check.Equal(t, 1, stored.TotalBids)
	check.Equal(t, stored.TotalBids, len(stored.BidHistory))
}

func TestPlaceBid_ConcurrentDistinctAmountsStayMonotonic(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100, minIncrement: 5})

	amounts := []float64{105, 120, 140, 170, 200}
	var wg sync.WaitGroup
	for i, amount := range amounts {
		wg.Add(1)
		go func(i int, amount float64) {
			defer wg.Done()
			env.bidService.PlaceBid(context.Background(), auction.ID, "bidder", amount)
		}(i, amount)
	}
	wg.Wait()

	stored := env.reload(auction.ID)
	check.Equal(t, stored.TotalBids, len(stored.BidHistory))
	check.True(t, stored.TotalBids >= 1)
	check.Equal(t, stored.BidHistory[len(stored.BidHistory)-1].Amount, stored.CurrentBid)
	for i := 1; i < len(stored.BidHistory); i++ {
		check.True(t, stored.BidHistory[i].Amount >= stored.BidHistory[i-1].Amount+5)
	}
}

func TestBuyNow_SetsWinnerAtBuyNowPrice(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{
		status: domain.AuctionLive, startingBid: 100, buyNowPrice: 500, minIncrement: 10,
	})

	result, err := env.bidService.BuyNow(context.Background(), auction.ID, "buyer-1")
	check.Nil(t, err)
	check.Equal(t, 500.0, result.FinalPrice)

	stored := env.reload(auction.ID)
	check.Equal(t, domain.AuctionSold, stored.Status)
	check.Equal(t, "buyer-1", stored.Winner)
	check.Equal(t, 500.0, stored.WinningBid)
}

func TestBuyNow_UnavailableWithoutPrice(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100})

	_, err := env.bidService.BuyNow(context.Background(), auction.ID, "buyer-1")
	check.True(t, errors.Is(err, domain.ErrBuyNowUnavailable))
}

func TestBuyNow_FailsOnScheduledAndTerminalStates(t *testing.T) {
	env := newTestEnv()

	scheduled := env.seedAuction(auctionOpts{status: domain.AuctionScheduled, buyNowPrice: 500})
	_, err := env.bidService.BuyNow(context.Background(), scheduled.ID, "buyer-1")
	check.True(t, errors.Is(err, domain.ErrAuctionNotLive))

	sold := env.seedAuction(auctionOpts{status: domain.AuctionSold, buyNowPrice: 500})
	_, err = env.bidService.BuyNow(context.Background(), sold.ID, "buyer-1")
	check.True(t, errors.Is(err, domain.ErrAuctionFinalized))
}

func TestBuyNow_RacesWithWinningBid_ExactlyOneFinalizes(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{
		status: domain.AuctionLive, startingBid: 400, buyNowPrice: 500, minIncrement: 10,
	})
	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "early-bidder", 480)
	check.Nil(t, err)

	var wg sync.WaitGroup
	var bidErr, buyErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, bidErr = env.bidService.PlaceBid(context.Background(), auction.ID, "sniper", 500)
	}()
	go func() {
		defer wg.Done()
		_, buyErr = env.bidService.BuyNow(context.Background(), auction.ID, "instant-buyer")
	}()
	wg.Wait()

	successes := 0
	if bidErr == nil {
		successes++
	}
	if buyErr == nil {
		successes++
	}
	check.Equal(t, 1, successes)

	stored := env.reload(auction.ID)
	check.Equal(t, domain.AuctionSold, stored.Status)
	check.Equal(t, 500.0, stored.WinningBid)
	if bidErr == nil {
		check.Equal(t, "sniper", stored.Winner)
		check.True(t, errors.Is(buyErr, domain.ErrAuctionFinalized))
	} else {
		check.Equal(t, "instant-buyer", stored.Winner)
		check.True(t, errors.Is(bidErr, domain.ErrAuctionNotLive) || errors.Is(bidErr, domain.ErrVersionConflict))
	}

	// Only one terminal event regardless of who won the race.
	check.Equal(t, 1, len(env.publisher.byType(domain.EventEnded)))
}

func TestPlaceBid_TimestampsComeFromClock(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(auctionOpts{status: domain.AuctionLive, startingBid: 100, minIncrement: 5})

	_, err := env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-1", 105)
	check.Nil(t, err)
	env.advanceClock(30 * time.Second)
	_, err = env.bidService.PlaceBid(context.Background(), auction.ID, "bidder-2", 115)
	check.Nil(t, err)

	stored := env.reload(auction.ID)
	check.True(t, stored.BidHistory[1].Timestamp.After(stored.BidHistory[0].Timestamp))
}
