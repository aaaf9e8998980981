package ingress

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	"github.com/angelmondragon/offerpay-backend/pkg/redis"
)

// SettledGuard short-circuits replays of events already committed to the
// ledger. The ledger's unique index stays authoritative: marker errors are
// logged and treated as a miss.
type SettledGuard struct {
	store redis.MarkerStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewSettledGuard(store redis.MarkerStore, ttl time.Duration, logg *logger.Logger) (*SettledGuard, error) {
	if store == nil {
		return nil, errors.New("marker store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &SettledGuard{store: store, ttl: ttl, logg: logg}, nil
}

// Settled reports whether the event was marked after a committed settlement.
func (g *SettledGuard) Settled(ctx context.Context, eventType enums.PaymentEventType, transactionID string) bool {
	found, err := g.store.Exists(ctx, g.store.SettledKey(eventType.String(), transactionID))
	if err != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "settled marker lookup failed")
		return false
	}
	return found
}

// MarkSettled records a committed settlement. Call only after the ledger write.
func (g *SettledGuard) MarkSettled(ctx context.Context, eventType enums.PaymentEventType, transactionID string) {
	if err := g.store.Set(ctx, g.store.SettledKey(eventType.String(), transactionID), "1", g.ttl); err != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "settled marker write failed")
	}
}
