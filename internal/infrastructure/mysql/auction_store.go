package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

// AuctionStore persists auction records with a version column used for
// optimistic conditional writes. Bid history lives in a separate append-only
// table keyed by (auction_id, position); both are written in one
// transaction so totalBids can never drift from the history length.
type AuctionStore struct {
	db *sql.DB
}

func NewAuctionStore(db *sql.DB) *AuctionStore {
	return &AuctionStore{db: db}
}

func (r *AuctionStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, seller, status, start_time, end_time, starting_bid,
            reserve_price, buy_now_price, min_increment, current_bid, total_bids,
            winner, winning_bid, relist_of, relisted_as, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.Seller, int(auction.Status),
		auction.StartTime, auction.EndTime, auction.StartingBid,
		auction.ReservePrice, auction.BuyNowPrice, auction.MinIncrement,
		auction.CurrentBid, auction.TotalBids,
		auction.Winner, auction.WinningBid, auction.RelistOf, auction.RelistedAs,
		auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return err
	}

	auction.Version = 1
	return nil
}

func (r *AuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `
        SELECT id, seller, status, start_time, end_time, starting_bid,
            reserve_price, buy_now_price, min_increment, current_bid, total_bids,
            winner, winning_bid, relist_of, relisted_as, version, created_at, updated_at
        FROM auctions WHERE id = ?
    `

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		return nil, err
	}

	history, err := r.loadBidHistory(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	auction.BidHistory = history

	return auction, nil
}

func (r *AuctionStore) UpdateAuction(ctx context.Context, auction *domain.Auction, expectedVersion int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE auctions
        SET status = ?, current_bid = ?, total_bids = ?, winner = ?, winning_bid = ?,
            relisted_as = ?, updated_at = ?, version = version + 1
        WHERE id = ? AND version = ?
    `
	result, err := tx.ExecContext(ctx, query,
		int(auction.Status), auction.CurrentBid, auction.TotalBids,
		auction.Winner, auction.WinningBid, auction.RelistedAs,
		auction.UpdatedAt, auction.ID, expectedVersion)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM auctions WHERE id = ?`, auction.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrAuctionNotFound
		}
		return domain.ErrVersionConflict
	}

	// Append the history tail added by this mutation.
	var stored int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE auction_id = ?`, auction.ID).Scan(&stored); err != nil {
		return err
	}
	for position := stored; position < len(auction.BidHistory); position++ {
		bid := auction.BidHistory[position]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bids (auction_id, position, bidder, amount, bid_time) VALUES (?, ?, ?, ?, ?)`,
			auction.ID, position, bid.Bidder, bid.Amount, bid.Timestamp)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	auction.Version = expectedVersion + 1
	return nil
}

func (r *AuctionStore) ListByStatus(ctx context.Context, statuses ...domain.AuctionStatus) ([]*domain.Auction, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = int(status)
	}

	query := `
        SELECT id, seller, status, start_time, end_time, starting_bid,
            reserve_price, buy_now_price, min_increment, current_bid, total_bids,
            winner, winning_bid, relist_of, relisted_as, version, created_at, updated_at
        FROM auctions WHERE status IN (` + strings.Join(placeholders, ", ") + `)
    `

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, auction := range auctions {
		history, err := r.loadBidHistory(ctx, auction.ID)
		if err != nil {
			return nil, err
		}
		auction.BidHistory = history
	}

	return auctions, nil
}

func (r *AuctionStore) loadBidHistory(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT bidder, amount, bid_time FROM bids WHERE auction_id = ? ORDER BY position ASC`,
		auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.Bid
	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(&bid.Bidder, &bid.Amount, &bid.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, bid)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status int

	err := row.Scan(&auction.ID, &auction.Seller, &status,
		&auction.StartTime, &auction.EndTime, &auction.StartingBid,
		&auction.ReservePrice, &auction.BuyNowPrice, &auction.MinIncrement,
		&auction.CurrentBid, &auction.TotalBids,
		&auction.Winner, &auction.WinningBid, &auction.RelistOf, &auction.RelistedAs,
		&auction.Version, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	return &auction, nil
}
