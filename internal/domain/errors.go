package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrAuctionNotLive       = errors.New("auction is not live")
	ErrBuyNowUnavailable    = errors.New("auction has no buy-now price")
	ErrAuctionFinalized     = errors.New("auction already finalized")
	ErrCannotCancelWithBids = errors.New("cannot cancel an auction with active bids")
	ErrNotEligibleForRelist = errors.New("auction is not eligible for relisting")
	ErrAlreadyRelisted      = errors.New("auction has already been relisted")
	ErrInvalidTimeRange     = errors.New("invalid auction time range")
	ErrVersionConflict      = errors.New("auction record changed concurrently")
)

// BidTooLowError carries the authoritative minimum so the caller can retry
// without re-fetching the snapshot.
type BidTooLowError struct {
	CurrentBid float64
	MinimumBid float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: current bid %.2f, minimum acceptable %.2f", e.CurrentBid, e.MinimumBid)
}
