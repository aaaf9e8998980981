package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/db/models"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
)

func validMetadata() map[string]string {
	return map[string]string{
		KeyOfferSlug:          "course-x",
		KeySelectedOrderBumps: `["B1","B2"]`,
		KeyQuantity:           "2",
		KeyCustomerEmail:      " Ana@Example.com ",
		KeyCustomerName:       "Ana Souza",
		KeyCustomerPhone:      "+55 11 99999-0000",
		"utm_source":          "facebook",
		"fbp":                 "fb.1.x",
	}
}

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata(validMetadata())
	require.NoError(t, err)
	assert.Equal(t, "course-x", meta.OfferSlug)
	assert.Equal(t, []string{"B1", "B2"}, meta.SelectedOrderBumps)
	assert.Equal(t, int64(2), meta.Quantity)
	assert.Equal(t, "ana@example.com", meta.Customer.Email)
	assert.Equal(t, enums.PaymentMethodCard, meta.PaymentMethod)
	assert.Equal(t, "facebook", meta.Tracking.UTMSource)
	assert.Equal(t, "fb.1.x", meta.Tracking.FBP)
	assert.False(t, meta.IsUpsell)
}

func TestParseMetadataDefaults(t *testing.T) {
	meta, err := ParseMetadata(map[string]string{
		KeyOfferSlug:     "x",
		KeyCustomerEmail: "a@b.co",
		KeyIsUpsell:      "1",
		KeyPaymentMethod: "PIX",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Quantity)
	assert.Empty(t, meta.SelectedOrderBumps)
	assert.True(t, meta.IsUpsell)
	assert.Equal(t, enums.PaymentMethodPix, meta.PaymentMethod)
}

func TestParseMetadataKeepsNonPositiveQuantity(t *testing.T) {
	raw := validMetadata()
	raw[KeyQuantity] = "0"
	meta, err := ParseMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(0), meta.Quantity, "clamping happens during reconstruction")
}

func TestParseMetadataRejectsMalformed(t *testing.T) {
	tests := map[string]func(map[string]string){
		"bumps not json":    func(m map[string]string) { m[KeySelectedOrderBumps] = "B1,B2" },
		"quantity not int":  func(m map[string]string) { m[KeyQuantity] = "two" },
		"upsell not bool":   func(m map[string]string) { m[KeyIsUpsell] = "maybe" },
		"bad method":        func(m map[string]string) { m[KeyPaymentMethod] = "boleto" },
		"missing slug":      func(m map[string]string) { delete(m, KeyOfferSlug) },
		"missing email":     func(m map[string]string) { delete(m, KeyCustomerEmail) },
		"quantity overflow": func(m map[string]string) { m[KeyQuantity] = "99999999999999999999" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			raw := validMetadata()
			mutate(raw)
			_, err := ParseMetadata(raw)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestParseMetadataAcceptsCapturedOutliers(t *testing.T) {
	raw := validMetadata()
	raw[KeyQuantity] = "1001"
	raw[KeyCustomerEmail] = "not-an-email"
	bumps := make([]string, 60)
	for i := range bumps {
		bumps[i] = "B" + strconv.Itoa(i)
	}
	encoded, err := json.Marshal(bumps)
	require.NoError(t, err)
	raw[KeySelectedOrderBumps] = string(encoded)

	meta, err := ParseMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), meta.Quantity)
	assert.Equal(t, "not-an-email", meta.Customer.Email)
	assert.Len(t, meta.SelectedOrderBumps, 60)
}

func TestServiceSettlesEnvelopeWithOutlierMetadata(t *testing.T) {
	raw := validMetadata()
	raw[KeyQuantity] = "1001"
	raw[KeyCustomerEmail] = "ana at example"
	event, err := Envelope{ID: "txn_9", Type: "payment.succeeded", Amount: 2980, Currency: "BRL", Metadata: raw}.PaymentEvent()
	require.NoError(t, err)

	settler := &fakeSettler{result: &settlement.Result{Sale: &models.Sale{ID: uuid.New()}, Outcome: settlement.OutcomeSettled}}
	svc, err := NewService(ServiceParams{Settlement: settler, Logger: logger.Nop()})
	require.NoError(t, err)

	res, err := svc.Handle(context.Background(), &event)
	require.NoError(t, err)
	assert.Equal(t, "settled", res.Outcome)
	assert.Equal(t, 1, settler.calls)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":"txn_1"}`)
	sig := Sign("shh", body)

	require.NoError(t, VerifySignature("shh", body, sig))
	require.NoError(t, VerifySignature("shh", body, "sha256="+sig))
	assert.True(t, errors.Is(VerifySignature("other", body, sig), ErrInvalidSignature))
	assert.True(t, errors.Is(VerifySignature("shh", []byte(`{"id":"txn_2"}`), sig), ErrInvalidSignature))
	assert.True(t, errors.Is(VerifySignature("shh", body, "not-hex"), ErrInvalidSignature))
	assert.True(t, errors.Is(VerifySignature("shh", body, ""), ErrInvalidSignature))
	assert.Error(t, VerifySignature("", body, sig))
}

func TestEnvelopePaymentEvent(t *testing.T) {
	env := Envelope{ID: "txn_1", Type: "payment.succeeded", Amount: 2980, Currency: "brl", Metadata: validMetadata()}
	event, err := env.PaymentEvent()
	require.NoError(t, err)
	assert.Equal(t, "txn_1", event.TransactionID)
	assert.Equal(t, enums.PaymentEventSucceeded, event.Type)
	assert.Equal(t, "BRL", event.Currency)
	assert.Equal(t, "course-x", event.Metadata.OfferSlug)

	refund := Envelope{ID: "txn_1", Type: "payment.refunded", Amount: 2980, Currency: "BRL"}
	event, err = refund.PaymentEvent()
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentEventRefunded, event.Type)

	_, err = Envelope{ID: "txn_1", Type: "payment.disputed", Currency: "BRL"}.PaymentEvent()
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	_, err = Envelope{Type: "payment.succeeded", Currency: "BRL"}.PaymentEvent()
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func stripeEvent(t *testing.T, eventType stripe.EventType, obj any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return &stripe.Event{ID: "evt_1", Type: eventType, Created: 1700000000, Data: &stripe.EventData{Raw: raw}}
}

func TestFromStripePaymentIntent(t *testing.T) {
	meta := validMetadata()
	delete(meta, KeyCustomerEmail)
	event := stripeEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{
		"id":                   "pi_123",
		"object":               "payment_intent",
		"amount":               2980,
		"amount_received":      2980,
		"currency":             "brl",
		"receipt_email":        "buyer@example.com",
		"payment_method_types": []string{"pix"},
		"metadata":             meta,
	})

	got, err := FromStripeEvent(event)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pi_123", got.TransactionID)
	assert.Equal(t, enums.PaymentEventSucceeded, got.Type)
	assert.Equal(t, int64(2980), got.AmountCents)
	assert.Equal(t, "BRL", got.Currency)
	assert.Equal(t, "buyer@example.com", got.Metadata.Customer.Email)
	assert.Equal(t, enums.PaymentMethodPix, got.Metadata.PaymentMethod)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.OccurredAt)
}

func TestFromStripeRefundedCharge(t *testing.T) {
	full := stripeEvent(t, stripe.EventTypeChargeRefunded, map[string]any{
		"id":              "ch_1",
		"object":          "charge",
		"refunded":        true,
		"amount_refunded": 2980,
		"currency":        "brl",
		"payment_intent":  "pi_123",
	})
	got, err := FromStripeEvent(full)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pi_123", got.TransactionID)
	assert.Equal(t, enums.PaymentEventRefunded, got.Type)

	partial := stripeEvent(t, stripe.EventTypeChargeRefunded, map[string]any{
		"id":              "ch_2",
		"object":          "charge",
		"refunded":        false,
		"amount_refunded": 100,
		"payment_intent":  "pi_123",
	})
	got, err = FromStripeEvent(partial)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFromStripeIgnoresOtherEvents(t *testing.T) {
	got, err := FromStripeEvent(stripeEvent(t, stripe.EventTypeCustomerCreated, map[string]any{"id": "cus_1"}))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = FromStripeEvent(&stripe.Event{Type: stripe.EventTypePaymentIntentSucceeded})
	assert.Error(t, err)
}

type fakeMarkers struct {
	keys      map[string]time.Duration
	existsErr error
	setErr    error
}

func newFakeMarkers() *fakeMarkers { return &fakeMarkers{keys: map[string]time.Duration{}} }

func (f *fakeMarkers) Exists(_ context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.keys[key]
	return ok, nil
}

func (f *fakeMarkers) Set(_ context.Context, key string, _ any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.keys[key] = ttl
	return nil
}

func (f *fakeMarkers) SettledKey(eventType, transactionID string) string {
	return "op:idempotency:settled:" + eventType + ":" + transactionID
}

type fakeSettler struct {
	calls  int
	result *settlement.Result
	err    error
}

func (f *fakeSettler) Settle(context.Context, settlement.PaymentEvent) (*settlement.Result, error) {
	f.calls++
	return f.result, f.err
}

func TestServiceMarksOnlyAfterSettlement(t *testing.T) {
	markers := newFakeMarkers()
	guard, err := NewSettledGuard(markers, time.Hour, logger.Nop())
	require.NoError(t, err)

	saleID := uuid.New()
	settler := &fakeSettler{result: &settlement.Result{Sale: &models.Sale{ID: saleID}, Outcome: settlement.OutcomeSettled}}
	svc, err := NewService(ServiceParams{Settlement: settler, Guard: guard, Logger: logger.Nop()})
	require.NoError(t, err)

	event := &settlement.PaymentEvent{TransactionID: "pi_1", Type: enums.PaymentEventSucceeded}
	res, err := svc.Handle(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "settled", res.Outcome)
	assert.Equal(t, saleID.String(), res.SaleID)
	assert.Equal(t, time.Hour, markers.keys["op:idempotency:settled:succeeded:pi_1"])

	res, err = svc.Handle(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, res.Outcome)
	assert.Equal(t, 1, settler.calls)
}

func TestServiceDoesNotMarkFailures(t *testing.T) {
	markers := newFakeMarkers()
	guard, err := NewSettledGuard(markers, time.Hour, logger.Nop())
	require.NoError(t, err)
	settler := &fakeSettler{err: settlement.ErrOfferNotFound}
	svc, err := NewService(ServiceParams{Settlement: settler, Guard: guard, Logger: logger.Nop()})
	require.NoError(t, err)

	_, err = svc.Handle(context.Background(), &settlement.PaymentEvent{TransactionID: "pi_1", Type: enums.PaymentEventSucceeded})
	require.True(t, errors.Is(err, settlement.ErrOfferNotFound))
	assert.Empty(t, markers.keys)
}

func TestServiceFallsThroughOnMarkerErrors(t *testing.T) {
	markers := newFakeMarkers()
	markers.existsErr = errors.New("redis down")
	markers.setErr = errors.New("redis down")
	guard, err := NewSettledGuard(markers, time.Hour, logger.Nop())
	require.NoError(t, err)
	settler := &fakeSettler{result: &settlement.Result{Sale: &models.Sale{ID: uuid.New()}, Outcome: settlement.OutcomeDuplicate}}
	svc, err := NewService(ServiceParams{Settlement: settler, Guard: guard, Logger: logger.Nop()})
	require.NoError(t, err)

	res, err := svc.Handle(context.Background(), &settlement.PaymentEvent{TransactionID: "pi_1", Type: enums.PaymentEventSucceeded})
	require.NoError(t, err)
	assert.Equal(t, "duplicate", res.Outcome)
	assert.Equal(t, 1, settler.calls)
}

func TestServiceIgnoresNilEvent(t *testing.T) {
	settler := &fakeSettler{}
	svc, err := NewService(ServiceParams{Settlement: settler, Logger: logger.Nop()})
	require.NoError(t, err)
	res, err := svc.Handle(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Zero(t, settler.calls)
}
