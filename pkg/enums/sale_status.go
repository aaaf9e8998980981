package enums

import "fmt"

// SaleStatus maps to the sale_status enum in Postgres.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusSucceeded SaleStatus = "succeeded"
	SaleStatusRefunded  SaleStatus = "refunded"
	SaleStatusFailed    SaleStatus = "failed"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPending,
	SaleStatusSucceeded,
	SaleStatusRefunded,
	SaleStatusFailed,
}

var saleTransitions = map[SaleStatus][]SaleStatus{
	SaleStatusPending:   {SaleStatusSucceeded, SaleStatusFailed},
	SaleStatusSucceeded: {SaleStatusRefunded},
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func (s SaleStatus) IsTerminal() bool {
	return len(saleTransitions[s]) == 0
}

// CanTransitionTo reports whether the sale lifecycle allows s -> next.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	for _, candidate := range saleTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
