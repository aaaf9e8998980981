package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/offerpay-backend/internal/currency"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
)

type rateRefresher interface {
	Refresh(ctx context.Context, from, to string) (currency.Rate, error)
}

type FXRefreshJobParams struct {
	Logger   *logger.Logger
	Provider rateRefresher
	// Pairs are [from, to] currency codes to warm in the shared cache.
	Pairs [][2]string
}

// NewFXRefreshJob re-fetches every configured pair so the API processes read
// fresh rates from redis instead of hitting the source on the settle path.
func NewFXRefreshJob(params FXRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("rate provider required")
	}
	pairs := make([][2]string, len(params.Pairs))
	copy(pairs, params.Pairs)
	return &fxRefreshJob{
		logg:     params.Logger,
		provider: params.Provider,
		pairs:    pairs,
	}, nil
}

type fxRefreshJob struct {
	logg     *logger.Logger
	provider rateRefresher
	pairs    [][2]string
}

func (j *fxRefreshJob) Name() string { return "fx_refresh" }

func (j *fxRefreshJob) Run(ctx context.Context) error {
	var errs error
	refreshed := 0
	for _, pair := range j.pairs {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		rate, err := j.provider.Refresh(ctx, pair[0], pair[1])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh %s:%s: %w", pair[0], pair[1], err))
			continue
		}
		refreshed++
		j.logg.Debug(j.logg.WithFields(ctx, map[string]any{
			"pair": rate.From + ":" + rate.To,
			"rate": rate.Value.String(),
		}), "fx rate refreshed")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"pairs":     len(j.pairs),
		"refreshed": refreshed,
	}), "fx refresh complete")
	return errs
}
