package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/offerpay-backend/internal/currency"
	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
)

const attributionStatusPaid = "paid"

type attributionCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
	Country  string `json:"country,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type attributionProduct struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Quantity     int64  `json:"quantity"`
	PriceInCents int64  `json:"priceInCents"`
	IsOrderBump  bool   `json:"isOrderBump"`
	IsUpsell     bool   `json:"isUpsell"`
}

type attributionTracking struct {
	Src         string `json:"src,omitempty"`
	Sck         string `json:"sck,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`
	IP          string `json:"ip,omitempty"`
}

type attributionCommission struct {
	TotalPriceInCents       int64  `json:"totalPriceInCents"`
	PlatformFeeInCents      int64  `json:"platformFeeInCents"`
	SellerCommissionInCents int64  `json:"sellerCommissionInCents"`
	Currency                string `json:"currency"`
}

type attributionReporting struct {
	Currency          string    `json:"currency"`
	TotalPriceInCents int64     `json:"totalPriceInCents"`
	Rate              string    `json:"rate"`
	RateFetchedAt     time.Time `json:"rateFetchedAt"`
}

type attributionPayload struct {
	OrderID               string                `json:"orderId"`
	TransactionID         string                `json:"transactionId"`
	Platform              string                `json:"platform"`
	PaymentMethod         string                `json:"paymentMethod"`
	Status                string                `json:"status"`
	CreatedAt             time.Time             `json:"createdAt"`
	ApprovedDate          time.Time             `json:"approvedDate"`
	RefundedAt            *time.Time            `json:"refundedAt"`
	SellerID              string                `json:"sellerId"`
	OfferID               string                `json:"offerId"`
	OfferSlug             string                `json:"offerSlug"`
	Customer              attributionCustomer   `json:"customer"`
	Products              []attributionProduct  `json:"products"`
	TrackingParameters    attributionTracking   `json:"trackingParameters"`
	Commission            attributionCommission `json:"commission"`
	ReferencePriceInCents int64                 `json:"referencePriceInCents"`
	Reporting             *attributionReporting `json:"reporting,omitempty"`
}

// AttributionTarget posts a purchase-confirmed payload to the offer's
// analytics webhook.
type AttributionTarget struct {
	platform          string
	rates             currency.Provider
	reportingCurrency string
}

// NewAttributionTarget builds the attribution target. rates may be nil, in
// which case no reporting block is sent.
func NewAttributionTarget(platform string, rates currency.Provider, reportingCurrency string) *AttributionTarget {
	return &AttributionTarget{
		platform:          strings.TrimSpace(platform),
		rates:             rates,
		reportingCurrency: strings.ToUpper(strings.TrimSpace(reportingCurrency)),
	}
}

func (a *AttributionTarget) Name() enums.DispatchTarget {
	return enums.DispatchTargetAttribution
}

func (a *AttributionTarget) Build(ctx context.Context, d Delivery) (*Request, error) {
	url := strings.TrimSpace(d.Offer.Integrations.AnalyticsWebhookURL)
	if url == "" {
		return nil, nil
	}

	sale := d.Sale
	meta := d.Event.Metadata
	products := make([]attributionProduct, 0, len(sale.Items))
	for _, item := range sale.Items {
		products = append(products, attributionProduct{
			ID:           item.ID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			PriceInCents: item.PriceCents,
			IsOrderBump:  item.IsOrderBump,
			IsUpsell:     item.IsUpsell,
		})
	}

	payload := attributionPayload{
		OrderID:       sale.ID.String(),
		TransactionID: sale.TransactionID,
		Platform:      a.platform,
		PaymentMethod: sale.PaymentMethod.String(),
		Status:        attributionStatusPaid,
		CreatedAt:     sale.SettledAt,
		ApprovedDate:  sale.SettledAt,
		RefundedAt:    sale.RefundedAt,
		SellerID:      sale.SellerID.String(),
		OfferID:       sale.OfferID.String(),
		OfferSlug:     d.Offer.Slug,
		Customer: attributionCustomer{
			Name:     sale.BuyerName,
			Email:    sale.BuyerEmail,
			Phone:    meta.Customer.Phone,
			Document: meta.Customer.Document,
			Country:  meta.Customer.Country,
			IP:       meta.Customer.IP,
		},
		Products: products,
		TrackingParameters: attributionTracking{
			Src:         meta.Tracking.Src,
			Sck:         meta.Tracking.Sck,
			UTMSource:   meta.Tracking.UTMSource,
			UTMMedium:   meta.Tracking.UTMMedium,
			UTMCampaign: meta.Tracking.UTMCampaign,
			UTMTerm:     meta.Tracking.UTMTerm,
			UTMContent:  meta.Tracking.UTMContent,
			UserAgent:   meta.Customer.UserAgent,
			IP:          meta.Customer.IP,
		},
		Commission: attributionCommission{
			TotalPriceInCents:       sale.TotalAmountCents,
			PlatformFeeInCents:      sale.PlatformFeeCents,
			SellerCommissionInCents: sale.SellerNetCents,
			Currency:                sale.Currency,
		},
		ReferencePriceInCents: settlement.ReferencePrice(sale.Items),
		Reporting:             a.reporting(ctx, sale.Currency, sale.TotalAmountCents),
	}

	return &Request{URL: url, Body: payload}, nil
}

// reporting converts the total into the reporting currency. A missing rate
// drops the block rather than the delivery.
func (a *AttributionTarget) reporting(ctx context.Context, from string, totalCents int64) *attributionReporting {
	if a.rates == nil || a.reportingCurrency == "" || strings.EqualFold(from, a.reportingCurrency) {
		return nil
	}
	rate, err := a.rates.Rate(ctx, from, a.reportingCurrency)
	if err != nil {
		return nil
	}
	return &attributionReporting{
		Currency:          a.reportingCurrency,
		TotalPriceInCents: currency.Convert(totalCents, rate.Value),
		Rate:              rate.Value.String(),
		RateFetchedAt:     rate.FetchedAt,
	}
}
