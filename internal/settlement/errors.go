package settlement

import (
	"github.com/angelmondragon/offerpay-backend/internal/catalog"
	"github.com/angelmondragon/offerpay-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

var (
	ErrOfferNotFound       = catalog.ErrOfferNotFound
	ErrSaleNotFound        = sales.ErrSaleNotFound
	ErrNonPositiveTotal    = pkgerrors.New(pkgerrors.CodeValidation, "sale total must be positive")
	ErrUpsellNotConfigured = pkgerrors.New(pkgerrors.CodeValidation, "offer has no upsell configured")
	ErrInvalidTransition   = pkgerrors.New(pkgerrors.CodeStateConflict, "sale status transition not allowed")
	ErrUnsupportedEvent    = pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment event type")
	ErrMissingTransaction  = pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
)
