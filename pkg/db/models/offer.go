package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/offerpay-backend/pkg/types"
)

// Offer is the seller-configured product bundle. Read-only for settlement.
type Offer struct {
	ID                        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Slug                      string                  `gorm:"column:slug;not null"`
	SellerID                  uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	MainProductName           string                  `gorm:"column:main_product_name;not null"`
	MainProductPriceCents     int64                   `gorm:"column:main_product_price_cents;not null"`
	MainProductCompareAtCents *int64                  `gorm:"column:main_product_compare_at_cents"`
	OrderBumps                types.OrderBumps        `gorm:"column:order_bumps;type:jsonb;not null"`
	Upsell                    *types.OfferUpsell      `gorm:"column:upsell;type:jsonb"`
	Integrations              types.OfferIntegrations `gorm:"column:integrations;type:jsonb;not null"`
	CreatedAt                 time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Offer) TableName() string { return "offers" }

// HasUpsell reports whether an enabled upsell is configured.
func (o Offer) HasUpsell() bool {
	return o.Upsell != nil && o.Upsell.Enabled
}
