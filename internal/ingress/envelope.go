package ingress

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw envelope body.
const SignatureHeader = "X-Signature"

// ErrInvalidSignature is returned when an inbound payload fails verification.
var ErrInvalidSignature = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")

// Envelope is the gateway-neutral signed payment notification.
type Envelope struct {
	ID        string            `json:"id" validate:"required,max=255"`
	Type      string            `json:"type" validate:"required,oneof=payment.succeeded payment.refunded"`
	Amount    int64             `json:"amount" validate:"min=0"`
	Currency  string            `json:"currency" validate:"required,len=3"`
	CreatedAt *time.Time        `json:"createdAt,omitempty"`
	Metadata  map[string]string `json:"metadata"`
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against payload in constant time. An
// optional "sha256=" prefix is accepted.
func VerifySignature(secret string, payload []byte, signature string) error {
	if strings.TrimSpace(secret) == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook signing secret not configured")
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	given, err := hex.DecodeString(signature)
	if err != nil || len(given) == 0 {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(given, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// PaymentEvent validates the envelope and converts it for settlement.
func (e Envelope) PaymentEvent() (settlement.PaymentEvent, error) {
	if err := validate.Struct(e); err != nil {
		return settlement.PaymentEvent{}, formatValidationErrors(err)
	}
	eventType, err := enums.ParseEnvelopeEventType(e.Type)
	if err != nil {
		return settlement.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type")
	}

	event := settlement.PaymentEvent{
		TransactionID: strings.TrimSpace(e.ID),
		Type:          eventType,
		AmountCents:   e.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(e.Currency)),
		OccurredAt:    time.Now().UTC(),
	}
	if e.CreatedAt != nil {
		event.OccurredAt = e.CreatedAt.UTC()
	}
	if eventType == enums.PaymentEventSucceeded {
		meta, err := ParseMetadata(e.Metadata)
		if err != nil {
			return settlement.PaymentEvent{}, err
		}
		event.Metadata = meta
	}
	return event, nil
}
