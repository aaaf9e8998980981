package settlement

import (
	"strings"

	"github.com/angelmondragon/offerpay-backend/pkg/db/models"
	"github.com/angelmondragon/offerpay-backend/pkg/types"
)

const upsellItemSuffix = ":upsell"

// Order is the frozen purchase rebuilt from an offer and event metadata.
type Order struct {
	Items    types.SaleItems
	Quantity int64
	// DroppedBumpIDs lists selected bump ids the offer no longer defines.
	DroppedBumpIDs []string
}

// Reconstruct rebuilds the purchased items. Unknown bump ids are skipped, never
// rejected. An upsell purchase is always the single upsell item.
func Reconstruct(offer *models.Offer, meta Metadata) (Order, error) {
	if offer == nil {
		return Order{}, ErrOfferNotFound
	}

	if meta.IsUpsell {
		if !offer.HasUpsell() {
			return Order{}, ErrUpsellNotConfigured
		}
		return Order{
			Items: types.SaleItems{{
				ID:         offer.ID.String() + upsellItemSuffix,
				Name:       offer.Upsell.Name,
				PriceCents: offer.Upsell.PriceCents,
				Quantity:   1,
				IsUpsell:   true,
			}},
			Quantity: 1,
		}, nil
	}

	quantity := meta.Quantity
	if quantity < 1 {
		quantity = 1
	}

	main := types.SaleItem{
		ID:         offer.ID.String(),
		Name:       offer.MainProductName,
		PriceCents: offer.MainProductPriceCents,
		Quantity:   quantity,
	}
	if offer.MainProductCompareAtCents != nil {
		main.CompareAtPriceCents = *offer.MainProductCompareAtCents
	}

	order := Order{
		Items:    types.SaleItems{main},
		Quantity: quantity,
	}

	seen := make(map[string]struct{}, len(meta.SelectedOrderBumps))
	for _, raw := range meta.SelectedOrderBumps {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		bump, ok := offer.OrderBumps.Find(id)
		if !ok {
			order.DroppedBumpIDs = append(order.DroppedBumpIDs, id)
			continue
		}
		order.Items = append(order.Items, types.SaleItem{
			ID:                  bump.ID,
			Name:                bump.Name,
			PriceCents:          bump.PriceCents,
			CompareAtPriceCents: bump.CompareAtPriceCents,
			Quantity:            1,
			IsOrderBump:         true,
		})
	}
	return order, nil
}

// Total sums price times quantity over items.
func Total(items types.SaleItems) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// ReferencePrice is the pre-discount total shown in outbound payloads. Each
// item uses its compare-at price when that is higher than the sale price.
func ReferencePrice(items types.SaleItems) int64 {
	var total int64
	for _, item := range items {
		unit := item.PriceCents
		if item.CompareAtPriceCents > unit {
			unit = item.CompareAtPriceCents
		}
		total += unit * item.Quantity
	}
	return total
}
