package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (r *OrderStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	query := `
        INSERT INTO orders (auction_id, buyer, seller, amount, payment_status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE payment_status = VALUES(payment_status), updated_at = VALUES(updated_at)
    `
	_, err := r.db.ExecContext(ctx, query,
		order.AuctionID, order.Buyer, order.Seller, order.Amount,
		string(order.PaymentStatus), order.CreatedAt, order.UpdatedAt)
	return err
}

func (r *OrderStore) UpdatePaymentStatus(ctx context.Context, auctionID string, status domain.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE auction_id = ?`,
		string(status), time.Now(), auctionID)
	return err
}
