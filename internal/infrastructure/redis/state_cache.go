package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
)

// StateCache mirrors each auction's lifecycle status in redis so read-heavy
// callers (and other instances) can check liveness without touching the
// durable store. The store remains authoritative; the cache is best-effort.
type StateCache struct {
	client *redis.Client
}

func NewStateCache(client *redis.Client) *StateCache {
	return &StateCache{client: client}
}

func (r *StateCache) SetAuctionStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	key := fmt.Sprintf("auction:%s:status", auctionID)
	return r.client.Set(ctx, key, int(status), 0).Err()
}

func (r *StateCache) GetAuctionStatus(ctx context.Context, auctionID string) (domain.AuctionStatus, error) {
	key := fmt.Sprintf("auction:%s:status", auctionID)

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return domain.AuctionScheduled, domain.ErrAuctionNotFound
		}
		return domain.AuctionScheduled, err
	}

	status, err := strconv.Atoi(result)
	if err != nil {
		return domain.AuctionScheduled, err
	}

	return domain.AuctionStatus(status), nil
}
