// Package gateway contains the payment gateway adapter. It is a thin client
// over the provider's orders API; all verification of callbacks happens in
// the payment domain, never here.
package gateway

import (
	"context"

	"github.com/go-faster/errors"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/vishwas0229/riya-collections/internal/domain/payment"
)

var _ payment.Gateway = (*Client)(nil)

// Client creates payment intents against the Razorpay orders API.
type Client struct {
	rz *razorpay.Client
}

// NewClient creates a Client with the given API credentials.
func NewClient(keyID, keySecret string) *Client {
	return &Client{rz: razorpay.NewClient(keyID, keySecret)}
}

// CreateIntent creates a remote order for the given amount and returns its
// external reference. The provider wants amounts in integer minor units.
// The SDK does not accept a context; the parameter is part of the Gateway
// contract for implementations that do.
func (c *Client) CreateIntent(_ context.Context, amount decimal.Decimal, currency, receipt string) (*payment.Intent, error) {
	data := map[string]interface{}{
		"amount":   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := c.rz.Order.Create(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create gateway order")
	}

	ref, ok := body["id"].(string)
	if !ok || ref == "" {
		return nil, errors.New("gateway response missing order id")
	}
	return &payment.Intent{OrderRef: ref}, nil
}
