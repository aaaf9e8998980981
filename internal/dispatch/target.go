package dispatch

import (
	"context"

	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/db/models"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

// ErrPreconditionFailed marks an enabled integration that lacks the
// credentials or URL it needs. It only affects that integration.
var ErrPreconditionFailed = pkgerrors.New(pkgerrors.CodePrecondition, "integration not configured")

// Delivery is one committed sale handed to the integrations. Sale id plus
// target name identify a delivery if failed ones are ever queued for retry.
type Delivery struct {
	Sale  models.Sale
	Offer models.Offer
	Event settlement.PaymentEvent
}

// Request is an outbound JSON POST.
type Request struct {
	URL     string
	Headers map[string]string
	Body    any
}

// Target builds the outbound request for one integration. Build returns a nil
// request when the offer does not use the integration.
type Target interface {
	Name() enums.DispatchTarget
	Build(ctx context.Context, delivery Delivery) (*Request, error)
}

func preconditionFailed(reason string) error {
	return pkgerrors.New(pkgerrors.CodePrecondition, ErrPreconditionFailed.Message()).
		WithDetails(map[string]any{"reason": reason})
}
