package domain

import "time"

// Order is the settlement handoff record created when an auction is sold.
// Settlement failures are recorded here; they never revert the auction's
// sold state.
type Order struct {
	AuctionID     string        `json:"auction_id"`
	Buyer         string        `json:"buyer"`
	Seller        string        `json:"seller"`
	Amount        float64       `json:"amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSettled PaymentStatus = "settled"
	PaymentFailed  PaymentStatus = "failed"
)
