package dispatch

import (
	"context"
	"strings"

	"github.com/angelmondragon/offerpay-backend/pkg/enums"
)

const accessGrantedEvent = "ACCESS_GRANTED"

type accessCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

type accessProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type accessPayload struct {
	Event          string          `json:"event"`
	Customer       accessCustomer  `json:"customer"`
	Products       []accessProduct `json:"products"`
	TransactionID  string          `json:"transactionId"`
	SubscriptionID *string         `json:"subscriptionId"`
}

// AccessTarget tells the seller's membership system to grant access.
type AccessTarget struct{}

// NewAccessTarget builds the access target.
func NewAccessTarget() *AccessTarget {
	return &AccessTarget{}
}

func (a *AccessTarget) Name() enums.DispatchTarget {
	return enums.DispatchTargetAccess
}

func (a *AccessTarget) Build(_ context.Context, d Delivery) (*Request, error) {
	hook := d.Offer.Integrations.MembershipWebhook
	url := strings.TrimSpace(hook.URL)
	if !hook.Enabled || url == "" {
		return nil, nil
	}
	token := strings.TrimSpace(hook.AuthToken)
	if token == "" {
		return nil, preconditionFailed("membership auth token missing")
	}

	products := make([]accessProduct, 0, len(d.Sale.Items))
	for _, item := range d.Sale.Items {
		products = append(products, accessProduct{ID: item.ID, Name: item.Name})
	}

	customer := d.Event.Metadata.Customer
	return &Request{
		URL:     url,
		Headers: map[string]string{"Authorization": "Bearer " + token},
		Body: accessPayload{
			Event: accessGrantedEvent,
			Customer: accessCustomer{
				Name:     d.Sale.BuyerName,
				Email:    d.Sale.BuyerEmail,
				Phone:    customer.Phone,
				Document: customer.Document,
			},
			Products:      products,
			TransactionID: d.Sale.TransactionID,
		},
	}, nil
}
