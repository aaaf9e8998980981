package ingress

import (
	"context"
	"errors"

	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
)

// OutcomeReplayed is reported when the settled marker answered a replay.
const OutcomeReplayed = "replayed"

// OutcomeIgnored is reported for gateway events settlement does not consume.
const OutcomeIgnored = "ignored"

type settler interface {
	Settle(ctx context.Context, event settlement.PaymentEvent) (*settlement.Result, error)
}

type ServiceParams struct {
	Settlement settler
	// Guard is optional; without it every event reaches the ledger gate.
	Guard  *SettledGuard
	Logger *logger.Logger
}

// Result is what the webhook acknowledges.
type Result struct {
	Outcome string `json:"outcome"`
	SaleID  string `json:"saleId,omitempty"`
}

// Service hands verified payment events to settlement.
type Service struct {
	settlement settler
	guard      *SettledGuard
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, errors.New("settlement service required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		settlement: params.Settlement,
		guard:      params.Guard,
		logg:       params.Logger,
	}, nil
}

// Handle settles event. A nil event is a gateway notification that needs no
// settlement and is acknowledged as ignored.
func (s *Service) Handle(ctx context.Context, event *settlement.PaymentEvent) (*Result, error) {
	if event == nil {
		return &Result{Outcome: OutcomeIgnored}, nil
	}
	ctx = s.logg.WithTransactionID(ctx, event.TransactionID)

	if s.guard != nil && s.guard.Settled(ctx, event.Type, event.TransactionID) {
		s.logg.Info(ctx, "payment event replay acknowledged from marker")
		return &Result{Outcome: OutcomeReplayed}, nil
	}

	res, err := s.settlement.Settle(ctx, *event)
	if err != nil {
		return nil, err
	}
	if s.guard != nil {
		s.guard.MarkSettled(ctx, event.Type, event.TransactionID)
	}

	out := &Result{Outcome: string(res.Outcome)}
	if res.Sale != nil {
		out.SaleID = res.Sale.ID.String()
	}
	return out, nil
}
