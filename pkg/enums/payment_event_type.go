package enums

import "fmt"

// PaymentEventType is the normalized kind of an inbound gateway event.
type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "succeeded"
	PaymentEventRefunded  PaymentEventType = "refunded"
)

var validPaymentEventTypes = []PaymentEventType{
	PaymentEventSucceeded,
	PaymentEventRefunded,
}

// String implements fmt.Stringer.
func (p PaymentEventType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentEventType.
func (p PaymentEventType) IsValid() bool {
	for _, candidate := range validPaymentEventTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseEnvelopeEventType maps the signed envelope's type (payment.succeeded,
// payment.refunded) onto a PaymentEventType.
func ParseEnvelopeEventType(value string) (PaymentEventType, error) {
	switch value {
	case "payment.succeeded":
		return PaymentEventSucceeded, nil
	case "payment.refunded":
		return PaymentEventRefunded, nil
	}
	return "", fmt.Errorf("invalid payment event type %q", value)
}
