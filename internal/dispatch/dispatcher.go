package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	"github.com/angelmondragon/offerpay-backend/pkg/metrics"
)

const (
	defaultUserAgent         = "offerpay-dispatch/1.0"
	responseBodyReadLimit    = 1024
	defaultHTTPClientTimeout = 30 * time.Second
)

// Dispatcher performs the build, post and log cycle shared by every
// integration.
type Dispatcher struct {
	httpClient *http.Client
	userAgent  string
	logg       *logger.Logger
	metrics    *metrics.DispatchMetrics
}

// Option configures optional dispatcher behavior.
type Option func(*Dispatcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(d *Dispatcher) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			d.userAgent = trimmed
		}
	}
}

// WithMetrics records delivery outcomes.
func WithMetrics(m *metrics.DispatchMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher builds the shared webhook dispatcher.
func NewDispatcher(logg *logger.Logger, opts ...Option) (*Dispatcher, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	d := &Dispatcher{
		httpClient: &http.Client{Timeout: defaultHTTPClientTimeout},
		userAgent:  defaultUserAgent,
		logg:       logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Deliver runs one target for one sale. Failures are logged and returned to
// the caller for reporting only.
func (d *Dispatcher) Deliver(ctx context.Context, target Target, delivery Delivery) (enums.DispatchOutcome, error) {
	name := target.Name()
	ctx = d.logg.WithFields(ctx, map[string]any{
		"sale_id":         delivery.Sale.ID.String(),
		"dispatch_target": name.String(),
	})

	started := time.Now()
	outcome, err := d.deliver(ctx, target, delivery)
	d.metrics.IncDelivery(name.String(), string(outcome))
	d.metrics.ObserveDuration(name.String(), time.Since(started))

	switch outcome {
	case enums.DispatchOutcomeDelivered:
		d.logg.Info(ctx, "integration delivered")
	case enums.DispatchOutcomeSkipped:
		d.logg.Debug(ctx, "integration not configured for offer")
	case enums.DispatchOutcomePrecondition:
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "integration precondition failed")
	default:
		d.logg.Error(ctx, "integration delivery failed", err)
	}
	return outcome, err
}

func (d *Dispatcher) deliver(ctx context.Context, target Target, delivery Delivery) (enums.DispatchOutcome, error) {
	req, err := target.Build(ctx, delivery)
	if err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return enums.DispatchOutcomePrecondition, err
		}
		return enums.DispatchOutcomeFailed, err
	}
	if req == nil {
		return enums.DispatchOutcomeSkipped, nil
	}
	if err := d.post(ctx, req); err != nil {
		return enums.DispatchOutcomeFailed, err
	}
	return enums.DispatchOutcomeDelivered, nil
}

func (d *Dispatcher) post(ctx context.Context, req *Request) error {
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal dispatch payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build dispatch request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", d.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute dispatch request")
	}
	defer func() { _ = resp.Body.Close() }()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamReject,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"dispatch request rejected")
	}
	return nil
}
