package settlement

import (
	"time"

	"github.com/angelmondragon/offerpay-backend/pkg/enums"
)

// PaymentEvent is a verified gateway notification, already decoded into typed
// fields by the ingress layer.
type PaymentEvent struct {
	TransactionID string
	Type          enums.PaymentEventType
	AmountCents   int64
	Currency      string
	OccurredAt    time.Time
	Metadata      Metadata
}

// Metadata is the checkout context the gateway echoes back with the payment.
type Metadata struct {
	OfferSlug          string
	SelectedOrderBumps []string
	// Quantity is the requested main product quantity. Values below 1 are
	// clamped during reconstruction.
	Quantity      int64
	IsUpsell      bool
	PaymentMethod enums.PaymentMethod
	Customer      Customer
	Tracking      Tracking
}

// Customer is buyer contact and device data. Only name and email are stored.
type Customer struct {
	Name      string
	Email     string
	Phone     string
	Document  string
	IP        string
	UserAgent string
	City      string
	State     string
	Zip       string
	Country   string
}

// Tracking carries marketing attribution parameters captured at checkout.
type Tracking struct {
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string
	Src         string
	Sck         string
	FBC         string
	FBP         string
	GCLID       string
}
