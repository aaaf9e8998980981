package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerIntegration carries seller-wide fallback credentials for outbound integrations.
type SellerIntegration struct {
	SellerID      uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	AdPixelID     *string   `gorm:"column:ad_pixel_id"`
	AdAccessToken *string   `gorm:"column:ad_access_token"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerIntegration) TableName() string { return "seller_integrations" }
