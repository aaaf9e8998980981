package types

import "testing"

func TestOrderBumpsRoundTripThroughColumn(t *testing.T) {
	bumps := OrderBumps{{ID: "B1", Name: "Guide", PriceCents: 990}}
	raw, err := bumps.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var decoded OrderBumps
	if err := decoded.Scan([]byte(raw.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	got, ok := decoded.Find("B1")
	if !ok || got.PriceCents != 990 {
		t.Fatalf("expected bump B1 at 990, got %+v ok=%v", got, ok)
	}
	if _, ok := decoded.Find("missing"); ok {
		t.Fatal("unexpected bump for missing id")
	}
}

func TestScanRejectsUnsupportedType(t *testing.T) {
	var items SaleItems
	if err := items.Scan(42); err == nil {
		t.Fatal("expected error for int scan source")
	}
}

func TestNilColumnsEncodeAsEmptyArray(t *testing.T) {
	var items SaleItems
	raw, err := items.Value()
	if err != nil || raw != "[]" {
		t.Fatalf("expected empty array, got %v %v", raw, err)
	}
}

func TestIntegrationsScanNullLeavesZeroValue(t *testing.T) {
	integrations := OfferIntegrations{AnalyticsWebhookURL: "https://x"}
	if err := integrations.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if integrations.AnalyticsWebhookURL != "" {
		t.Fatalf("expected zero value after null scan, got %+v", integrations)
	}
}
