package ingress

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

const stripePixMethod = "pix"

// FromStripeEvent maps a verified Stripe event onto a payment event. It
// returns nil for event types settlement does not consume, and for partial
// refunds.
func FromStripeEvent(event *stripe.Event) (*settlement.PaymentEvent, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		return fromPaymentIntent(event, &intent)
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge")
		}
		return fromRefundedCharge(event, &charge)
	default:
		return nil, nil
	}
}

func fromPaymentIntent(event *stripe.Event, intent *stripe.PaymentIntent) (*settlement.PaymentEvent, error) {
	if strings.TrimSpace(intent.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	raw := make(map[string]string, len(intent.Metadata)+2)
	for k, v := range intent.Metadata {
		raw[k] = v
	}
	if strings.TrimSpace(raw[KeyCustomerEmail]) == "" && intent.ReceiptEmail != "" {
		raw[KeyCustomerEmail] = intent.ReceiptEmail
	}
	if strings.TrimSpace(raw[KeyPaymentMethod]) == "" && hasPaymentMethodType(intent.PaymentMethodTypes, stripePixMethod) {
		raw[KeyPaymentMethod] = stripePixMethod
	}

	meta, err := ParseMetadata(raw)
	if err != nil {
		return nil, err
	}
	amount := intent.AmountReceived
	if amount == 0 {
		amount = intent.Amount
	}
	return &settlement.PaymentEvent{
		TransactionID: intent.ID,
		Type:          enums.PaymentEventSucceeded,
		AmountCents:   amount,
		Currency:      strings.ToUpper(string(intent.Currency)),
		OccurredAt:    eventTime(event),
		Metadata:      meta,
	}, nil
}

func fromRefundedCharge(event *stripe.Event, charge *stripe.Charge) (*settlement.PaymentEvent, error) {
	if !charge.Refunded {
		return nil, nil
	}
	if charge.PaymentIntent == nil || strings.TrimSpace(charge.PaymentIntent.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refunded charge has no payment intent")
	}
	return &settlement.PaymentEvent{
		TransactionID: charge.PaymentIntent.ID,
		Type:          enums.PaymentEventRefunded,
		AmountCents:   charge.AmountRefunded,
		Currency:      strings.ToUpper(string(charge.Currency)),
		OccurredAt:    eventTime(event),
	}, nil
}

func hasPaymentMethodType(types []string, want string) bool {
	for _, t := range types {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func eventTime(event *stripe.Event) time.Time {
	if event.Created > 0 {
		return time.Unix(event.Created, 0).UTC()
	}
	return time.Now().UTC()
}
