package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/offerpay-backend/internal/ingress"
	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/config"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/offerpay-backend/pkg/stripe"
)

const testSigningSecret = "whsec_test"

type fakePaymentHandler struct {
	calls  int
	events []*settlement.PaymentEvent
	result *ingress.Result
	err    error
}

func (f *fakePaymentHandler) Handle(_ context.Context, event *settlement.PaymentEvent) (*ingress.Result, error) {
	f.calls++
	f.events = append(f.events, event)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	if event == nil {
		return &ingress.Result{Outcome: ingress.OutcomeIgnored}, nil
	}
	return &ingress.Result{Outcome: string(settlement.OutcomeSettled), SaleID: "sale-1"}, nil
}

func newTestVerifier(t *testing.T) *pkgstripe.Verifier {
	t.Helper()
	v, err := pkgstripe.NewVerifier(config.StripeConfig{Secret: testSigningSecret, Env: "test"})
	if err != nil {
		t.Fatalf("verifier setup: %v", err)
	}
	return v
}

func buildSignedEvent(t *testing.T, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"livemode":    false,
		"api_version": "2024-06-20",
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return payload, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func paymentIntentObject() map[string]any {
	return map[string]any{
		"id":              "pi_123",
		"object":          "payment_intent",
		"amount":          2980,
		"amount_received": 2980,
		"currency":        "brl",
		"metadata": map[string]string{
			ingress.KeyOfferSlug:     "course-x",
			ingress.KeyCustomerEmail: "ana@example.com",
			ingress.KeyCustomerName:  "Ana Souza",
		},
	}
}

func serveStripe(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) ingress.Result {
	t.Helper()
	var body struct {
		Data ingress.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body.Error.Code
}

func TestStripeWebhook_SettlesPaymentIntent(t *testing.T) {
	svc := &fakePaymentHandler{}
	handler := StripeWebhook(svc, newTestVerifier(t), logger.Nop())

	payload, header := buildSignedEvent(t, "payment_intent.succeeded", paymentIntentObject())
	rec := serveStripe(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 || svc.events[0] == nil {
		t.Fatalf("expected one settled event, got %d calls", svc.calls)
	}
	event := svc.events[0]
	if event.TransactionID != "pi_123" || event.Type != enums.PaymentEventSucceeded {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.AmountCents != 2980 || event.Currency != "BRL" {
		t.Fatalf("unexpected amount %d %s", event.AmountCents, event.Currency)
	}
	if event.Metadata.OfferSlug != "course-x" {
		t.Fatalf("unexpected slug %q", event.Metadata.OfferSlug)
	}
	got := decodeData(t, rec)
	if got.Outcome != string(settlement.OutcomeSettled) || got.SaleID != "sale-1" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestStripeWebhook_AcknowledgesUnhandledEventTypes(t *testing.T) {
	svc := &fakePaymentHandler{}
	handler := StripeWebhook(svc, newTestVerifier(t), nil)

	payload, header := buildSignedEvent(t, "customer.created", map[string]any{"id": "cus_1", "object": "customer"})
	rec := serveStripe(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := decodeData(t, rec); got.Outcome != ingress.OutcomeIgnored {
		t.Fatalf("expected ignored outcome, got %+v", got)
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	svc := &fakePaymentHandler{}
	handler := StripeWebhook(svc, newTestVerifier(t), nil)

	payload, _ := buildSignedEvent(t, "payment_intent.succeeded", paymentIntentObject())
	rec := serveStripe(handler, payload, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be invoked without a signature")
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	svc := &fakePaymentHandler{}
	handler := StripeWebhook(svc, newTestVerifier(t), nil)

	payload, _ := buildSignedEvent(t, "payment_intent.succeeded", paymentIntentObject())
	rec := serveStripe(handler, payload, "t=1,v1=invalid")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeUnauthorized) {
		t.Fatalf("unexpected error code %q", code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestStripeWebhook_MalformedMetadataIsRejected(t *testing.T) {
	svc := &fakePaymentHandler{}
	handler := StripeWebhook(svc, newTestVerifier(t), nil)

	object := paymentIntentObject()
	object["metadata"] = map[string]string{ingress.KeyOfferSlug: "course-x"}
	payload, header := buildSignedEvent(t, "payment_intent.succeeded", object)
	rec := serveStripe(handler, payload, header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be invoked on invalid metadata")
	}
}

func TestStripeWebhook_MapsSettlementErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "offer not found", err: settlement.ErrOfferNotFound, status: http.StatusNotFound},
		{name: "refund before sale", err: settlement.ErrSaleNotFound, status: http.StatusNotFound},
		{name: "illegal transition", err: pkgerrors.New(pkgerrors.CodeStateConflict, "sale cannot move"), status: http.StatusUnprocessableEntity},
		{name: "database down", err: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable"), status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePaymentHandler{err: tt.err}
			handler := StripeWebhook(svc, newTestVerifier(t), nil)
			payload, header := buildSignedEvent(t, "payment_intent.succeeded", paymentIntentObject())
			rec := serveStripe(handler, payload, header)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStripeWebhook_NilDependencies(t *testing.T) {
	payload, header := buildSignedEvent(t, "payment_intent.succeeded", paymentIntentObject())
	if rec := serveStripe(StripeWebhook(nil, newTestVerifier(t), nil), payload, header); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without service, got %d", rec.Code)
	}
	if rec := serveStripe(StripeWebhook(&fakePaymentHandler{}, nil, nil), payload, header); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without verifier, got %d", rec.Code)
	}
}
