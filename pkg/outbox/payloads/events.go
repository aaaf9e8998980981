package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/offerpay-backend/pkg/types"
)

// SaleSettledEvent is published once per new sale.
type SaleSettledEvent struct {
	SaleID           uuid.UUID       `json:"sale_id"`
	TransactionID    string          `json:"transaction_id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	OfferID          uuid.UUID       `json:"offer_id"`
	Items            types.SaleItems `json:"items"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	TotalAmountCents int64           `json:"total_amount_cents"`
	PlatformFeeCents int64           `json:"platform_fee_cents"`
	SellerNetCents   int64           `json:"seller_net_cents"`
	SettledAt        time.Time       `json:"settled_at"`
}

// SaleRefundedEvent is published when a settled sale is refunded.
type SaleRefundedEvent struct {
	SaleID           uuid.UUID `json:"sale_id"`
	TransactionID    string    `json:"transaction_id"`
	SellerID         uuid.UUID `json:"seller_id"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Currency         string    `json:"currency"`
	RefundedAt       time.Time `json:"refunded_at"`
}
