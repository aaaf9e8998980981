package types

import "database/sql/driver"

// OrderBump is an add-on offered next to the main product at checkout.
type OrderBump struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	PriceCents          int64  `json:"priceCents"`
	CompareAtPriceCents int64  `json:"compareAtPriceCents,omitempty"`
}

// OrderBumps is the ordered order_bumps JSONB column of an offer.
type OrderBumps []OrderBump

// Find returns the bump with the given id.
func (b OrderBumps) Find(id string) (OrderBump, bool) {
	for _, bump := range b {
		if bump.ID == id {
			return bump, true
		}
	}
	return OrderBump{}, false
}

// Value serializes the bumps to JSON.
func (b OrderBumps) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return jsonValue([]OrderBump(b))
}

// Scan decodes JSONB into the bump list.
func (b *OrderBumps) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	var decoded []OrderBump
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*b = decoded
	return nil
}

// OfferUpsell is the single post-purchase add-on of an offer.
type OfferUpsell struct {
	Enabled     bool   `json:"enabled"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"priceCents"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Value serializes the upsell to JSON.
func (u OfferUpsell) Value() (driver.Value, error) {
	return jsonValue(u)
}

// Scan decodes JSONB into the upsell.
func (u *OfferUpsell) Scan(value interface{}) error {
	if value == nil {
		*u = OfferUpsell{}
		return nil
	}
	return scanJSON(value, u)
}

type MembershipWebhook struct {
	Enabled   bool   `json:"enabled"`
	URL       string `json:"url,omitempty"`
	AuthToken string `json:"authToken,omitempty"`
}

type AdConversion struct {
	Enabled     bool   `json:"enabled"`
	PixelID     string `json:"pixelId,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// OfferIntegrations holds the per-offer outbound integration settings.
type OfferIntegrations struct {
	AnalyticsWebhookURL string            `json:"analyticsWebhookUrl,omitempty"`
	MembershipWebhook   MembershipWebhook `json:"membershipWebhook"`
	AdConversion        AdConversion      `json:"adConversion"`
}

// Value serializes the integrations to JSON.
func (i OfferIntegrations) Value() (driver.Value, error) {
	return jsonValue(i)
}

// Scan decodes JSONB into the integrations.
func (i *OfferIntegrations) Scan(value interface{}) error {
	if value == nil {
		*i = OfferIntegrations{}
		return nil
	}
	return scanJSON(value, i)
}
