package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/db/models"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	"github.com/angelmondragon/offerpay-backend/pkg/metrics"
)

const defaultTargetTimeout = 15 * time.Second

// Report is the outcome of one target for one sale.
type Report struct {
	Target  enums.DispatchTarget
	Outcome enums.DispatchOutcome
	Err     error
}

// FanOut delivers committed sales to every target in parallel. Each target
// gets its own timeout and cancellation scope.
type FanOut struct {
	dispatcher *Dispatcher
	targets    []Target
	timeout    time.Duration
	logg       *logger.Logger
	metrics    *metrics.DispatchMetrics

	inflight sync.WaitGroup
}

// NewFanOut builds the fan-out over targets.
func NewFanOut(dispatcher *Dispatcher, timeout time.Duration, logg *logger.Logger, m *metrics.DispatchMetrics, targets ...Target) (*FanOut, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if timeout <= 0 {
		timeout = defaultTargetTimeout
	}
	kept := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &FanOut{
		dispatcher: dispatcher,
		targets:    kept,
		timeout:    timeout,
		logg:       logg,
		metrics:    m,
	}, nil
}

// Dispatch starts delivery in the background and returns immediately. The
// request context's cancellation is detached so acknowledging the gateway
// does not abort deliveries.
func (f *FanOut) Dispatch(ctx context.Context, sale models.Sale, offer models.Offer, event settlement.PaymentEvent) {
	delivery := Delivery{Sale: sale, Offer: offer, Event: event}
	detached := context.WithoutCancel(ctx)

	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		reports, err := f.Run(detached, delivery)
		if err != nil {
			f.logg.Warn(f.logg.WithFields(detached, map[string]any{
				"sale_id": sale.ID.String(),
				"failed":  failedTargets(reports),
			}), "fan-out finished with failures")
		}
	}()
}

// Run delivers to every target concurrently and waits for all of them. The
// combined error is informational; it never reflects on the sale.
func (f *FanOut) Run(ctx context.Context, delivery Delivery) ([]Report, error) {
	reports := make([]Report, len(f.targets))
	var (
		mu       sync.Mutex
		combined error
		g        errgroup.Group
	)
	for i, target := range f.targets {
		i, target := i, target
		g.Go(func() error {
			report := f.runTarget(ctx, target, delivery)
			reports[i] = report
			if report.Err != nil {
				mu.Lock()
				combined = multierr.Append(combined, fmt.Errorf("%s: %w", report.Target, report.Err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, combined
}

func (f *FanOut) runTarget(parent context.Context, target Target, delivery Delivery) (report Report) {
	report.Target = target.Name()
	ctx, cancel := context.WithTimeout(parent, f.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			report.Outcome = enums.DispatchOutcomePanicked
			report.Err = fmt.Errorf("panic: %v", r)
			f.metrics.IncDelivery(report.Target.String(), string(report.Outcome))
			f.logg.Error(f.logg.WithFields(ctx, map[string]any{
				"sale_id":         delivery.Sale.ID.String(),
				"dispatch_target": report.Target.String(),
			}), "integration panicked", report.Err)
		}
	}()

	report.Outcome, report.Err = f.dispatcher.Deliver(ctx, target, delivery)
	return report
}

// Wait blocks until background deliveries finish or ctx is done.
func (f *FanOut) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func failedTargets(reports []Report) []string {
	var out []string
	for _, r := range reports {
		if r.Err != nil {
			out = append(out, r.Target.String())
		}
	}
	return out
}
