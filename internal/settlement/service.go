package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/offerpay-backend/internal/sales"
	"github.com/angelmondragon/offerpay-backend/pkg/db/models"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	"github.com/angelmondragon/offerpay-backend/pkg/metrics"
	"github.com/angelmondragon/offerpay-backend/pkg/outbox"
	"github.com/angelmondragon/offerpay-backend/pkg/outbox/payloads"
)

// Outcome describes what Settle did with an event.
type Outcome string

const (
	OutcomeSettled         Outcome = "settled"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeRefunded        Outcome = "refunded"
	OutcomeAlreadyRefunded Outcome = "already_refunded"
)

const outboxSource = "settlement"

// Result is the sale touched by Settle and how.
type Result struct {
	Sale    *models.Sale
	Outcome Outcome
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type offerLoader interface {
	FindBySlug(ctx context.Context, slug string) (*models.Offer, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Dispatcher receives every newly committed sale. Implementations must not
// block the caller on outbound delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, sale models.Sale, offer models.Offer, event PaymentEvent)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, models.Sale, models.Offer, PaymentEvent) {}

// Service settles verified payment events into the sale ledger.
type Service interface {
	Settle(ctx context.Context, event PaymentEvent) (*Result, error)
}

// ServiceParams wires the settlement engine.
type ServiceParams struct {
	Tx         txRunner
	Sales      sales.Repository
	Offers     offerLoader
	Outbox     outboxPublisher
	Dispatcher Dispatcher
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
	FeeBps     int64
	Now        func() time.Time
}

type service struct {
	tx         txRunner
	sales      sales.Repository
	offers     offerLoader
	outbox     outboxPublisher
	dispatcher Dispatcher
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
	feeBps     int64
	now        func() time.Time
}

var errRefundRaced = errors.New("sale changed before refund")

// NewService builds the settlement engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if params.Offers == nil {
		return nil, fmt.Errorf("offer loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.FeeBps < 0 || params.FeeBps > bpsDenominator.IntPart() {
		return nil, fmt.Errorf("fee bps must be within 0..%d", bpsDenominator.IntPart())
	}
	if params.Dispatcher == nil {
		params.Dispatcher = noopDispatcher{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		tx:         params.Tx,
		sales:      params.Sales,
		offers:     params.Offers,
		outbox:     params.Outbox,
		dispatcher: params.Dispatcher,
		metrics:    params.Metrics,
		logg:       params.Logger,
		feeBps:     params.FeeBps,
		now:        params.Now,
	}, nil
}

func (s *service) Settle(ctx context.Context, event PaymentEvent) (*Result, error) {
	event.TransactionID = strings.TrimSpace(event.TransactionID)
	if event.TransactionID == "" {
		return nil, ErrMissingTransaction
	}
	ctx = s.logg.WithTransactionID(ctx, event.TransactionID)

	started := s.now()
	var (
		result *Result
		err    error
	)
	switch event.Type {
	case enums.PaymentEventSucceeded:
		result, err = s.settleSucceeded(ctx, event)
	case enums.PaymentEventRefunded:
		result, err = s.settleRefunded(ctx, event)
	default:
		err = ErrUnsupportedEvent
	}
	s.metrics.ObserveDuration(s.now().Sub(started))

	if err != nil {
		s.metrics.IncOutcome("error")
		return nil, err
	}
	s.metrics.IncOutcome(string(result.Outcome))
	return result, nil
}

func (s *service) settleSucceeded(ctx context.Context, event PaymentEvent) (*Result, error) {
	existing, err := s.sales.FindByTransactionID(ctx, event.TransactionID)
	if err == nil {
		s.logg.Info(s.logg.WithSaleID(ctx, existing.ID.String()), "duplicate payment event ignored")
		return &Result{Sale: existing, Outcome: OutcomeDuplicate}, nil
	}
	if !errors.Is(err, ErrSaleNotFound) {
		return nil, err
	}

	ctx = s.logg.WithOfferSlug(ctx, event.Metadata.OfferSlug)
	offer, err := s.offers.FindBySlug(ctx, event.Metadata.OfferSlug)
	if err != nil {
		return nil, err
	}

	order, err := Reconstruct(offer, event.Metadata)
	if err != nil {
		return nil, err
	}
	if len(order.DroppedBumpIDs) > 0 {
		s.metrics.AddDanglingBumps(len(order.DroppedBumpIDs))
		s.logg.Warn(s.logg.WithField(ctx, "dropped_bump_ids", order.DroppedBumpIDs), "selected order bumps missing from offer")
	}

	total := Total(order.Items)
	if total <= 0 {
		return nil, ErrNonPositiveTotal
	}
	if event.AmountCents != total {
		s.metrics.IncAmountMismatch()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"charged_amount_cents": event.AmountCents,
			"reconstructed_cents":  total,
		}), "charged amount differs from reconstructed total")
	}

	fee := PlatformFee(total, s.feeBps)
	method := event.Metadata.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCard
	}
	sale := &models.Sale{
		ID:                 uuid.New(),
		TransactionID:      event.TransactionID,
		SellerID:           offer.SellerID,
		OfferID:            offer.ID,
		BuyerName:          strings.TrimSpace(event.Metadata.Customer.Name),
		BuyerEmail:         strings.TrimSpace(event.Metadata.Customer.Email),
		Items:              order.Items,
		Quantity:           order.Quantity,
		Currency:           strings.ToUpper(strings.TrimSpace(event.Currency)),
		PaymentMethod:      method,
		TotalAmountCents:   total,
		PlatformFeeCents:   fee,
		SellerNetCents:     total - fee,
		ChargedAmountCents: event.AmountCents,
		Status:             enums.SaleStatusSucceeded,
		SettledAt:          s.now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.sales.WithTx(tx).Create(ctx, sale); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleSettled,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Source:        outboxSource,
			OccurredAt:    sale.SettledAt,
			Data: payloads.SaleSettledEvent{
				SaleID:           sale.ID,
				TransactionID:    sale.TransactionID,
				SellerID:         sale.SellerID,
				OfferID:          sale.OfferID,
				Items:            sale.Items,
				Currency:         sale.Currency,
				PaymentMethod:    sale.PaymentMethod.String(),
				TotalAmountCents: sale.TotalAmountCents,
				PlatformFeeCents: sale.PlatformFeeCents,
				SellerNetCents:   sale.SellerNetCents,
				SettledAt:        sale.SettledAt,
			},
		})
	})
	if err != nil {
		if errors.Is(err, sales.ErrDuplicateTransaction) {
			// Lost the race to a concurrent delivery of the same event.
			winner, findErr := s.sales.FindByTransactionID(ctx, event.TransactionID)
			if findErr != nil {
				return nil, findErr
			}
			s.logg.Info(s.logg.WithSaleID(ctx, winner.ID.String()), "concurrent duplicate payment event ignored")
			return &Result{Sale: winner, Outcome: OutcomeDuplicate}, nil
		}
		return nil, err
	}

	ctx = s.logg.WithSaleID(ctx, sale.ID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total_amount_cents": sale.TotalAmountCents,
		"platform_fee_cents": sale.PlatformFeeCents,
		"items":              len(sale.Items),
	}), "sale settled")

	s.dispatch(ctx, *sale, *offer, event)
	return &Result{Sale: sale, Outcome: OutcomeSettled}, nil
}

// dispatch hands the committed sale to the fan-out. The ledger row is already
// durable, so a dispatcher panic is logged and never reaches the caller.
func (s *service) dispatch(ctx context.Context, sale models.Sale, offer models.Offer, event PaymentEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(ctx, "dispatcher panicked after settlement", fmt.Errorf("panic: %v", r))
		}
	}()
	s.dispatcher.Dispatch(ctx, sale, offer, event)
}

func (s *service) settleRefunded(ctx context.Context, event PaymentEvent) (*Result, error) {
	sale, err := s.sales.FindByTransactionID(ctx, event.TransactionID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithSaleID(ctx, sale.ID.String())

	if sale.Status == enums.SaleStatusRefunded {
		s.logg.Info(ctx, "duplicate refund event ignored")
		return &Result{Sale: sale, Outcome: OutcomeAlreadyRefunded}, nil
	}
	if !sale.Status.CanTransitionTo(enums.SaleStatusRefunded) {
		return nil, invalidTransition(sale.Status, enums.SaleStatusRefunded)
	}

	at := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.sales.WithTx(tx).MarkRefunded(ctx, sale.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return errRefundRaced
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleRefunded,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Source:        outboxSource,
			OccurredAt:    at,
			Data: payloads.SaleRefundedEvent{
				SaleID:           sale.ID,
				TransactionID:    sale.TransactionID,
				SellerID:         sale.SellerID,
				TotalAmountCents: sale.TotalAmountCents,
				Currency:         sale.Currency,
				RefundedAt:       at,
			},
		})
	})
	if errors.Is(err, errRefundRaced) {
		current, findErr := s.sales.FindByTransactionID(ctx, event.TransactionID)
		if findErr != nil {
			return nil, findErr
		}
		if current.Status == enums.SaleStatusRefunded {
			return &Result{Sale: current, Outcome: OutcomeAlreadyRefunded}, nil
		}
		return nil, invalidTransition(current.Status, enums.SaleStatusRefunded)
	}
	if err != nil {
		return nil, err
	}

	sale.Status = enums.SaleStatusRefunded
	sale.RefundedAt = &at
	s.logg.Info(ctx, "sale refunded")
	return &Result{Sale: sale, Outcome: OutcomeRefunded}, nil
}

func invalidTransition(from, to enums.SaleStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, ErrInvalidTransition.Message()).
		WithDetails(map[string]any{"from": from, "to": to})
}
