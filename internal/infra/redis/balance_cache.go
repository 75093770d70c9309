package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/repository"
)

var _ repository.BalanceCache = (*BalanceCache)(nil)

// BalanceCache caches on-chain token balances per wallet. Strictly advisory:
// it serves the fast-fail path of job creation and the post-payout credit,
// while every gating decision re-reads the chain.
type BalanceCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewBalanceCache(client RedisClient, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(wallet string) string {
	return fmt.Sprintf("balance_cache:%s", wallet)
}

func (b *BalanceCache) Get(ctx context.Context, wallet string) (model.Amount, bool, error) {
	v, err := b.client.Get(ctx, balanceKey(wallet))
	if err != nil {
		if IsNil(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Corrupt entry: drop it rather than poison future reads.
		_ = b.client.Del(ctx, balanceKey(wallet))
		return 0, false, nil
	}
	return model.Amount(n), true, nil
}

func (b *BalanceCache) Set(ctx context.Context, wallet string, amount model.Amount) error {
	return b.client.Set(ctx, balanceKey(wallet), strconv.FormatInt(int64(amount), 10), b.ttl)
}

func (b *BalanceCache) Add(ctx context.Context, wallet string, delta model.Amount) error {
	_, found, err := b.Get(ctx, wallet)
	if err != nil || !found {
		return err
	}
	_, err = b.client.IncrBy(ctx, balanceKey(wallet), int64(delta))
	return err
}

func (b *BalanceCache) Invalidate(ctx context.Context, wallet string) error {
	return b.client.Del(ctx, balanceKey(wallet))
}
