package stripe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/offerpay-backend/pkg/config"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)

	// ErrModeMismatch is returned when a live event reaches a test deployment or vice versa.
	ErrModeMismatch = errors.New("stripe event livemode does not match environment")
)

// Verifier checks Stripe-Signature headers and decodes webhook events.
type Verifier struct {
	environment   string
	signingSecret string
}

// NewVerifier validates the configured secret and environment.
func NewVerifier(cfg config.StripeConfig) (*Verifier, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	return &Verifier{environment: env, signingSecret: secret}, nil
}

// Environment reports the normalized Stripe environment in use.
func (v *Verifier) Environment() string {
	if v == nil {
		return ""
	}
	return v.environment
}

// ConstructEvent verifies the signature and returns the decoded event.
func (v *Verifier) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if v == nil {
		return stripe.Event{}, errSecretRequired
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, err
	}
	if event.Livemode != (v.environment == liveEnv) {
		return stripe.Event{}, ErrModeMismatch
	}
	return event, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}
