package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

// Processor hands a sold auction off to the external payment settlement
// service. The auction's sold state is already committed before Submit is
// called; a settlement timeout or failure only marks the order as failed,
// to be retried out of band.
type Processor struct {
	client  domain.SettlementClient
	orders  domain.OrderStore
	timeout time.Duration
	log     logger.Logger
}

func NewProcessor(client domain.SettlementClient, orders domain.OrderStore,
	timeout time.Duration, log logger.Logger) *Processor {
	return &Processor{
		client:  client,
		orders:  orders,
		timeout: timeout,
		log:     log,
	}
}

// Submit records a pending order and invokes the settlement service.
func (p *Processor) Submit(ctx context.Context, auction *domain.Auction) {
	order := &domain.Order{
		AuctionID:     auction.ID,
		Buyer:         auction.Winner,
		Seller:        auction.Seller,
		Amount:        auction.WinningBid,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := p.orders.SaveOrder(ctx, order); err != nil {
		p.log.Error("Failed to record order", "auction_id", auction.ID, "error", err)
		return
	}

	settleCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Settle(settleCtx, order); err != nil {
		p.log.Error("Settlement failed, order marked for retry",
			"auction_id", auction.ID, "buyer", order.Buyer, "error", err)
		if err := p.orders.UpdatePaymentStatus(ctx, auction.ID, domain.PaymentFailed); err != nil {
			p.log.Error("Failed to mark order payment failed", "auction_id", auction.ID, "error", err)
		}
		return
	}

	if err := p.orders.UpdatePaymentStatus(ctx, auction.ID, domain.PaymentSettled); err != nil {
		p.log.Error("Failed to mark order settled", "auction_id", auction.ID, "error", err)
	}
}

// HTTPClient posts orders to the settlement service's REST endpoint.
type HTTPClient struct {
	http *resty.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &HTTPClient{http: client}
}

func (c *HTTPClient) Settle(ctx context.Context, order *domain.Order) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(order).
		Post("/settlements")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("settlement service returned %s", resp.Status())
	}
	return nil
}
