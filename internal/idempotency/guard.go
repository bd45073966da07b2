package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
	"github.com/marianocruz/pos-inventory-backend/pkg/redis"
)

const guardScope = "deduction"

// Guard is the Redis fast path in front of the database idempotency table.
// It is advisory: a cache miss or Redis outage degrades to the table lookup,
// never to a double deduction.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewGuard wires the fast-path guard. ttl bounds how long a marker survives;
// the database record remains the source of truth afterwards.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("redis idempotency store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("idempotency ttl must be positive")
	}
	return &Guard{store: store, ttl: ttl, logg: logg}, nil
}

func (g *Guard) key(transactionID, stockID string) string {
	return g.store.IdempotencyKey(guardScope, transactionID+":"+stockID)
}

// CheckAndMark atomically claims the (transaction, stock) pair. It returns
// true when this caller won the claim and should proceed with the deduction.
// Redis failures are logged and treated as a win so the database check decides.
func (g *Guard) CheckAndMark(ctx context.Context, transactionID, stockID string) bool {
	ok, err := g.store.SetNX(ctx, g.key(transactionID, stockID), "1", g.ttl)
	if err != nil {
		if g.logg != nil {
			g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()),
				"idempotency cache unavailable, falling back to database check")
		}
		return true
	}
	return ok
}

// Release drops the marker so a failed deduction can be retried immediately.
func (g *Guard) Release(ctx context.Context, transactionID, stockID string) {
	if err := g.store.Del(ctx, g.key(transactionID, stockID)); err != nil && g.logg != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "failed to release idempotency marker")
	}
}
