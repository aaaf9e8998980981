package currency

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	"github.com/angelmondragon/offerpay-backend/pkg/redis"
)

// Cached values outlive the TTL in redis so a failed refresh can still serve
// the last known rate.
const staleRetentionFactor = 24

type cachedRate struct {
	Value     decimal.Decimal `json:"value"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// CachedProvider refreshes rates from a Source at most once per TTL per pair.
type CachedProvider struct {
	source Source
	store  redis.ValueStore
	ttl    time.Duration
	logg   *logger.Logger
	now    func() time.Time

	mu          sync.RWMutex
	entries     map[string]Rate
	lastRefresh time.Time
}

// NewCachedProvider wraps source. store may be nil, in which case rates are
// only cached in process.
func NewCachedProvider(source Source, store redis.ValueStore, ttl time.Duration, logg *logger.Logger) (*CachedProvider, error) {
	if source == nil {
		return nil, errors.New("rate source required")
	}
	if ttl <= 0 {
		return nil, errors.New("rate ttl must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedProvider{
		source:  source,
		store:   store,
		ttl:     ttl,
		logg:    logg,
		now:     time.Now,
		entries: make(map[string]Rate),
	}, nil
}

// LastRefresh is when any pair was last fetched from the source.
func (p *CachedProvider) LastRefresh() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRefresh
}

// TTL is the freshness window for a cached rate.
func (p *CachedProvider) TTL() time.Duration {
	return p.ttl
}

func (p *CachedProvider) Rate(ctx context.Context, from, to string) (Rate, error) {
	from, to = normalizeCode(from), normalizeCode(to)
	if from == "" || to == "" {
		return Rate{}, ErrRateUnavailable
	}
	if from == to {
		return Rate{From: from, To: to, Value: decimal.NewFromInt(1), FetchedAt: p.now()}, nil
	}

	key := pairKey(from, to)
	p.mu.RLock()
	cached, ok := p.entries[key]
	p.mu.RUnlock()
	if ok && p.fresh(cached) {
		return cached, nil
	}

	if shared, found := p.loadShared(ctx, from, to); found {
		if !ok || shared.FetchedAt.After(cached.FetchedAt) {
			cached, ok = shared, true
			p.remember(key, shared, false)
		}
		if p.fresh(shared) {
			return shared, nil
		}
	}

	value, err := p.source.Fetch(ctx, from, to)
	if err != nil {
		if ok {
			p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
				"pair":       key,
				"fetched_at": cached.FetchedAt,
				"error":      err.Error(),
			}), "fx refresh failed, serving stale rate")
			return cached, nil
		}
		return Rate{}, err
	}

	rate := Rate{From: from, To: to, Value: value, FetchedAt: p.now()}
	p.remember(key, rate, true)
	p.storeShared(ctx, rate)
	return rate, nil
}

// Refresh fetches the pair from the source regardless of cache age and
// writes it through to the shared store.
func (p *CachedProvider) Refresh(ctx context.Context, from, to string) (Rate, error) {
	from, to = normalizeCode(from), normalizeCode(to)
	if from == "" || to == "" {
		return Rate{}, ErrRateUnavailable
	}
	value, err := p.source.Fetch(ctx, from, to)
	if err != nil {
		return Rate{}, err
	}
	rate := Rate{From: from, To: to, Value: value, FetchedAt: p.now()}
	p.remember(pairKey(from, to), rate, true)
	p.storeShared(ctx, rate)
	return rate, nil
}

func (p *CachedProvider) fresh(rate Rate) bool {
	return p.now().Sub(rate.FetchedAt) < p.ttl
}

func (p *CachedProvider) remember(key string, rate Rate, refreshed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = rate
	if refreshed {
		p.lastRefresh = rate.FetchedAt
	}
}

func (p *CachedProvider) loadShared(ctx context.Context, from, to string) (Rate, bool) {
	if p.store == nil {
		return Rate{}, false
	}
	raw, err := p.store.Get(ctx, p.store.FXKey(from, to))
	if err != nil {
		if !redis.IsNil(err) {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "fx cache read failed")
		}
		return Rate{}, false
	}
	var decoded cachedRate
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "fx cache entry malformed")
		return Rate{}, false
	}
	return Rate{From: from, To: to, Value: decoded.Value, FetchedAt: decoded.FetchedAt}, true
}

func (p *CachedProvider) storeShared(ctx context.Context, rate Rate) {
	if p.store == nil {
		return
	}
	payload, err := json.Marshal(cachedRate{Value: rate.Value, FetchedAt: rate.FetchedAt})
	if err != nil {
		return
	}
	if err := p.store.Set(ctx, p.store.FXKey(rate.From, rate.To), string(payload), p.ttl*staleRetentionFactor); err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "fx cache write failed")
	}
}
