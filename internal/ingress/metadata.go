package ingress

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/offerpay-backend/internal/settlement"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

// Metadata keys the checkout attaches to every payment.
const (
	KeyOfferSlug          = "offerSlug"
	KeySelectedOrderBumps = "selectedOrderBumps"
	KeyQuantity           = "quantity"
	KeyIsUpsell           = "isUpsell"
	KeyPaymentMethod      = "paymentMethod"
	KeyCustomerEmail      = "customerEmail"
	KeyCustomerName       = "customerName"
	KeyCustomerPhone      = "customerPhone"
	KeyCustomerDocument   = "customerDocument"
	KeyCustomerIP         = "customerIp"
	KeyUserAgent          = "userAgent"
	KeyCity               = "city"
	KeyState              = "state"
	KeyZip                = "zip"
	KeyCountry            = "country"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// checkoutFields holds only what settlement cannot run without. The payment is
// already captured, so values are never rejected on business grounds: quantity
// is clamped during reconstruction and unknown bumps are dropped there.
type checkoutFields struct {
	OfferSlug     string `json:"offerSlug" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"required"`
}

// ParseMetadata turns the gateway's string map into typed checkout metadata.
// Malformed encodings fail fast with a validation error; well-formed values
// pass through untouched.
func ParseMetadata(raw map[string]string) (settlement.Metadata, error) {
	get := func(key string) string {
		return strings.TrimSpace(raw[key])
	}

	meta := settlement.Metadata{
		OfferSlug: get(KeyOfferSlug),
		Quantity:  1,
		Customer: settlement.Customer{
			Name:      get(KeyCustomerName),
			Email:     strings.ToLower(get(KeyCustomerEmail)),
			Phone:     get(KeyCustomerPhone),
			Document:  get(KeyCustomerDocument),
			IP:        get(KeyCustomerIP),
			UserAgent: get(KeyUserAgent),
			City:      get(KeyCity),
			State:     get(KeyState),
			Zip:       get(KeyZip),
			Country:   get(KeyCountry),
		},
		Tracking: settlement.Tracking{
			UTMSource:   get("utm_source"),
			UTMMedium:   get("utm_medium"),
			UTMCampaign: get("utm_campaign"),
			UTMTerm:     get("utm_term"),
			UTMContent:  get("utm_content"),
			Src:         get("src"),
			Sck:         get("sck"),
			FBC:         get("fbc"),
			FBP:         get("fbp"),
			GCLID:       get("gclid"),
		},
	}

	if rawBumps := get(KeySelectedOrderBumps); rawBumps != "" {
		var ids []string
		if err := json.Unmarshal([]byte(rawBumps), &ids); err != nil {
			return settlement.Metadata{}, fieldError(KeySelectedOrderBumps, "must be a JSON array of bump ids")
		}
		meta.SelectedOrderBumps = ids
	}

	if rawQty := get(KeyQuantity); rawQty != "" {
		qty, err := strconv.ParseInt(rawQty, 10, 64)
		if err != nil {
			return settlement.Metadata{}, fieldError(KeyQuantity, "must be an integer")
		}
		meta.Quantity = qty
	}

	if rawUpsell := get(KeyIsUpsell); rawUpsell != "" {
		isUpsell, err := strconv.ParseBool(rawUpsell)
		if err != nil {
			return settlement.Metadata{}, fieldError(KeyIsUpsell, "must be a boolean")
		}
		meta.IsUpsell = isUpsell
	}

	method, err := enums.ParsePaymentMethod(get(KeyPaymentMethod))
	if err != nil {
		return settlement.Metadata{}, fieldError(KeyPaymentMethod, "is invalid")
	}
	meta.PaymentMethod = method

	fields := checkoutFields{
		OfferSlug:     meta.OfferSlug,
		CustomerEmail: meta.Customer.Email,
	}
	if err := validate.Struct(fields); err != nil {
		return settlement.Metadata{}, formatValidationErrors(err)
	}
	return meta, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment metadata").
		WithDetails(map[string]string{field: msg})
}

func formatValidationErrors(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment metadata")
	}
	details := map[string]string{}
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment metadata").WithDetails(details)
}
