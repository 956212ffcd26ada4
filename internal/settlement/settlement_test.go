package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/internal/store/memory"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

type fakeClient struct {
	err    error
	orders []*domain.Order
}

func (c *fakeClient) Settle(ctx context.Context, order *domain.Order) error {
	c.orders = append(c.orders, order)
	return c.err
}

func soldAuction() *domain.Auction {
	return &domain.Auction{
		ID:         "auction_1",
		Seller:     "seller-1",
		Status:     domain.AuctionSold,
		Winner:     "bidder-1",
		WinningBid: 250,
	}
}

func TestSubmit_SettlesOrder(t *testing.T) {
	client := &fakeClient{}
	orders := memory.NewOrderStore()
	processor := NewProcessor(client, orders, time.Second, logger.NewNop())

	processor.Submit(context.Background(), soldAuction())

	check.Equal(t, 1, len(client.orders))
	check.Equal(t, "bidder-1", client.orders[0].Buyer)
	check.Equal(t, 250.0, client.orders[0].Amount)

	order, exists := orders.GetOrder("auction_1")
	check.True(t, exists)
	check.Equal(t, domain.PaymentSettled, order.PaymentStatus)
	check.Equal(t, "seller-1", order.Seller)
}

func TestSubmit_FailureMarksOrderFailed(t *testing.T) {
	client := &fakeClient{err: errors.New("gateway unavailable")}
	orders := memory.NewOrderStore()
	processor := NewProcessor(client, orders, time.Second, logger.NewNop())

	auction := soldAuction()
	processor.Submit(context.Background(), auction)

	order, exists := orders.GetOrder("auction_1")
	check.True(t, exists)
	check.Equal(t, domain.PaymentFailed, order.PaymentStatus)

	// The sale itself is untouched; only the payment needs a retry.
	check.Equal(t, domain.AuctionSold, auction.Status)
	check.Equal(t, "bidder-1", auction.Winner)
}

func TestSubmit_TimeoutPropagatesToClient(t *testing.T) {
	client := &slowClient{delay: 50 * time.Millisecond}
	orders := memory.NewOrderStore()
	processor := NewProcessor(client, orders, time.Millisecond, logger.NewNop())

	processor.Submit(context.Background(), soldAuction())

	order, exists := orders.GetOrder("auction_1")
	check.True(t, exists)
	check.Equal(t, domain.PaymentFailed, order.PaymentStatus)
}

type slowClient struct {
	delay time.Duration
}

func (c *slowClient) Settle(ctx context.Context, order *domain.Order) error {
	select {
	case <-time.After(c.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
