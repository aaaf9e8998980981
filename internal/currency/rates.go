package currency

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

// ErrRateUnavailable is returned when no rate is known for a pair.
var ErrRateUnavailable = pkgerrors.New(pkgerrors.CodeDependency, "exchange rate unavailable")

const inverseRatePrecision = 10

// Rate is the price of one unit of From expressed in To.
type Rate struct {
	From      string
	To        string
	Value     decimal.Decimal
	FetchedAt time.Time
}

// Provider resolves exchange rates for reporting conversions.
type Provider interface {
	Rate(ctx context.Context, from, to string) (Rate, error)
}

// Source fetches a fresh rate for a pair.
type Source interface {
	Fetch(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Convert applies rate to an amount in minor units and rounds half-up.
func Convert(amountCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amountCents).Mul(rate).Round(0).IntPart()
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func pairKey(from, to string) string {
	return from + ":" + to
}

// StaticSource serves rates loaded from configuration.
type StaticSource struct {
	rates map[string]decimal.Decimal
}

// NewStaticSource parses "BRL:USD=0.18,EUR:USD=1.08". An empty list yields a
// source that only knows identity rates.
func NewStaticSource(list string) (*StaticSource, error) {
	rates := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pair, raw, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("fx rate %q: expected FROM:TO=value", entry)
		}
		from, to, ok := strings.Cut(pair, ":")
		from, to = normalizeCode(from), normalizeCode(to)
		if !ok || len(from) != 3 || len(to) != 3 {
			return nil, fmt.Errorf("fx rate %q: invalid currency pair", entry)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("fx rate %q: %w", entry, err)
		}
		if !value.IsPositive() {
			return nil, fmt.Errorf("fx rate %q: must be positive", entry)
		}
		rates[pairKey(from, to)] = value
	}
	return &StaticSource{rates: rates}, nil
}

// Pairs lists the configured pairs as FROM, TO tuples in a stable order.
func (s *StaticSource) Pairs() [][2]string {
	keys := make([]string, 0, len(s.rates))
	for key := range s.rates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, key := range keys {
		from, to, _ := strings.Cut(key, ":")
		out = append(out, [2]string{from, to})
	}
	return out
}

// Fetch returns the configured rate, its inverse, or 1 for identical codes.
func (s *StaticSource) Fetch(_ context.Context, from, to string) (decimal.Decimal, error) {
	from, to = normalizeCode(from), normalizeCode(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if v, ok := s.rates[pairKey(from, to)]; ok {
		return v, nil
	}
	if v, ok := s.rates[pairKey(to, from)]; ok {
		return decimal.NewFromInt(1).DivRound(v, inverseRatePrecision), nil
	}
	return decimal.Decimal{}, ErrRateUnavailable
}
