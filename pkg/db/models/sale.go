package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	"github.com/angelmondragon/offerpay-backend/pkg/types"
)

// Sale is the ledger row for one settled upstream transaction.
type Sale struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID      string              `gorm:"column:transaction_id;not null"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	OfferID            uuid.UUID           `gorm:"column:offer_id;type:uuid;not null"`
	BuyerName          string              `gorm:"column:buyer_name;not null"`
	BuyerEmail         string              `gorm:"column:buyer_email;not null"`
	Items              types.SaleItems     `gorm:"column:items;type:jsonb;not null"`
	Quantity           int64               `gorm:"column:quantity;not null"`
	Currency           string              `gorm:"column:currency;not null"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;not null"`
	TotalAmountCents   int64               `gorm:"column:total_amount_cents;not null"`
	PlatformFeeCents   int64               `gorm:"column:platform_fee_cents;not null"`
	SellerNetCents     int64               `gorm:"column:seller_net_cents;not null"`
	ChargedAmountCents int64               `gorm:"column:charged_amount_cents;not null"`
	Status             enums.SaleStatus    `gorm:"column:status;type:sale_status;not null"`
	SettledAt          time.Time           `gorm:"column:settled_at;not null"`
	RefundedAt         *time.Time          `gorm:"column:refunded_at"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Sale) TableName() string { return "sales" }
