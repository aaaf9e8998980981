package types

import "database/sql/driver"

// SaleItem is one frozen line of a settled sale.
type SaleItem struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	PriceCents          int64  `json:"priceCents"`
	CompareAtPriceCents int64  `json:"compareAtPriceCents,omitempty"`
	Quantity            int64  `json:"quantity"`
	IsOrderBump         bool   `json:"isOrderBump"`
	IsUpsell            bool   `json:"isUpsell"`
}

// LineTotal is price times quantity.
func (i SaleItem) LineTotal() int64 {
	return i.PriceCents * i.Quantity
}

// SaleItems is the items JSONB column of a sale.
type SaleItems []SaleItem

// Value serializes the items to JSON.
func (s SaleItems) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonValue([]SaleItem(s))
}

// Scan decodes JSONB into the item list.
func (s *SaleItems) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var decoded []SaleItem
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*s = decoded
	return nil
}
