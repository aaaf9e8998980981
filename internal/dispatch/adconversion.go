package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/offerpay-backend/pkg/config"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
)

const (
	adEventPurchase      = "Purchase"
	adActionSource       = "website"
	adContentTypeProduct = "product"
)

type adUserData struct {
	Email           []string `json:"em,omitempty"`
	Phone           []string `json:"ph,omitempty"`
	FirstName       []string `json:"fn,omitempty"`
	LastName        []string `json:"ln,omitempty"`
	City            []string `json:"ct,omitempty"`
	State           []string `json:"st,omitempty"`
	Zip             []string `json:"zp,omitempty"`
	Country         []string `json:"country,omitempty"`
	ExternalID      []string `json:"external_id,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
	FBC             string   `json:"fbc,omitempty"`
	FBP             string   `json:"fbp,omitempty"`
}

type adContent struct {
	ID        string  `json:"id"`
	Quantity  int64   `json:"quantity"`
	ItemPrice float64 `json:"item_price"`
}

type adCustomData struct {
	Currency    string      `json:"currency"`
	Value       float64     `json:"value"`
	ContentIDs  []string    `json:"content_ids"`
	Contents    []adContent `json:"contents"`
	ContentType string      `json:"content_type"`
	NumItems    int64       `json:"num_items"`
	OrderID     string      `json:"order_id"`
}

type adEvent struct {
	EventName    string       `json:"event_name"`
	EventTime    int64        `json:"event_time"`
	EventID      string       `json:"event_id"`
	ActionSource string       `json:"action_source"`
	UserData     adUserData   `json:"user_data"`
	CustomData   adCustomData `json:"custom_data"`
}

type adPayload struct {
	Data          []adEvent `json:"data"`
	AccessToken   string    `json:"access_token"`
	TestEventCode string    `json:"test_event_code,omitempty"`
}

// AdConversionTarget sends a hashed-PII purchase event to the ads API.
type AdConversionTarget struct {
	baseURL    string
	apiVersion string
	testCode   string
}

// NewAdConversionTarget builds the ad-conversion target from configuration.
func NewAdConversionTarget(cfg config.AdConversionConfig) *AdConversionTarget {
	return &AdConversionTarget{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiVersion: strings.Trim(strings.TrimSpace(cfg.APIVersion), "/"),
		testCode:   strings.TrimSpace(cfg.TestCode),
	}
}

func (a *AdConversionTarget) Name() enums.DispatchTarget {
	return enums.DispatchTargetAdConversion
}

func (a *AdConversionTarget) Build(_ context.Context, d Delivery) (*Request, error) {
	creds := d.Offer.Integrations.AdConversion
	if !creds.Enabled {
		return nil, nil
	}
	pixelID := strings.TrimSpace(creds.PixelID)
	token := strings.TrimSpace(creds.AccessToken)
	switch {
	case pixelID == "":
		return nil, preconditionFailed("pixel id missing")
	case token == "":
		return nil, preconditionFailed("access token missing")
	case a.baseURL == "":
		return nil, preconditionFailed("ad conversion endpoint missing")
	}

	sale := d.Sale
	customer := d.Event.Metadata.Customer
	first, last := splitName(sale.BuyerName)

	contents := make([]adContent, 0, len(sale.Items))
	ids := make([]string, 0, len(sale.Items))
	var numItems int64
	for _, item := range sale.Items {
		ids = append(ids, item.ID)
		contents = append(contents, adContent{
			ID:        item.ID,
			Quantity:  item.Quantity,
			ItemPrice: majorUnits(item.PriceCents),
		})
		numItems += item.Quantity
	}

	eventTime := sale.SettledAt
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	payload := adPayload{
		Data: []adEvent{{
			EventName:    adEventPurchase,
			EventTime:    eventTime.Unix(),
			EventID:      sale.TransactionID,
			ActionSource: adActionSource,
			UserData: adUserData{
				Email:           hashField(sale.BuyerEmail),
				Phone:           hashPhone(customer.Phone),
				FirstName:       hashField(first),
				LastName:        hashField(last),
				City:            hashCompact(customer.City),
				State:           hashField(customer.State),
				Zip:             hashCompact(customer.Zip),
				Country:         hashField(customer.Country),
				ExternalID:      hashField(sale.BuyerEmail),
				ClientIPAddress: strings.TrimSpace(customer.IP),
				ClientUserAgent: strings.TrimSpace(customer.UserAgent),
				FBC:             strings.TrimSpace(d.Event.Metadata.Tracking.FBC),
				FBP:             strings.TrimSpace(d.Event.Metadata.Tracking.FBP),
			},
			CustomData: adCustomData{
				Currency:    sale.Currency,
				Value:       majorUnits(sale.TotalAmountCents),
				ContentIDs:  ids,
				Contents:    contents,
				ContentType: adContentTypeProduct,
				NumItems:    numItems,
				OrderID:     sale.ID.String(),
			},
		}},
		AccessToken:   token,
		TestEventCode: a.testCode,
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events", a.baseURL, a.apiVersion, url.PathEscape(pixelID))
	return &Request{URL: endpoint, Body: payload}, nil
}

func majorUnits(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
