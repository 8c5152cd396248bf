// Package stripe adapts the Stripe API to checkout and fulfillment.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pipcasso/fulfillment/internal/checkout"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/fulfillment"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

// Gateway implements checkout.PaymentGateway with hosted Checkout Sessions.
type Gateway struct {
	sc *client.API
}

// NewGateway builds a client for secretKey. A nil backends uses Stripe's
// production endpoints.
func NewGateway(secretKey string, backends *stripe.Backends) *Gateway {
	return &Gateway{sc: client.New(secretKey, backends)}
}

// BuildSessionParams translates a session request into Checkout Session params.
func BuildSessionParams(req checkout.SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(req.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(req.ProductName),
					Description: stripe.String(req.Description),
				},
			},
			Quantity: stripe.Int64(req.Quantity),
		}},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	if len(req.ShippingCountries) > 0 {
		countries := make([]*string, 0, len(req.ShippingCountries))
		for _, c := range req.ShippingCountries {
			countries = append(countries, stripe.String(c))
		}
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: countries,
		}
		params.PhoneNumberCollection = &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		}
	}

	params.Metadata = req.Metadata
	return params
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req checkout.SessionRequest) (checkout.Session, error) {
	params := BuildSessionParams(req)
	params.Context = ctx

	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return checkout.Session{}, err
	}
	return checkout.Session{ID: s.ID, URL: s.URL}, nil
}

// GetCompletedSession fetches a session by id for the post-redirect lookup.
func (g *Gateway) GetCompletedSession(ctx context.Context, id string) (fulfillment.CompletedSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return fulfillment.CompletedSession{}, domain.ErrNotFound
		}
		return fulfillment.CompletedSession{}, &domain.PaymentError{Err: err}
	}

	var raw []byte
	if s.LastResponse != nil {
		raw = s.LastResponse.RawJSON
	}
	return SessionFromStripe(s, raw), nil
}

// SessionFromStripe extracts what fulfillment reads from a Checkout Session.
// raw is kept verbatim as the audit payload.
func SessionFromStripe(s *stripe.CheckoutSession, raw []byte) fulfillment.CompletedSession {
	if len(raw) == 0 {
		raw, _ = json.Marshal(s)
	}

	out := fulfillment.CompletedSession{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
		CustomerEmail: s.CustomerEmail,
		Raw:           raw,
	}

	var phone string
	if cd := s.CustomerDetails; cd != nil {
		if cd.Email != "" {
			out.CustomerEmail = cd.Email
		}
		out.CustomerName = cd.Name
		phone = cd.Phone
	}

	if sd := s.ShippingDetails; sd != nil && sd.Address != nil {
		out.Shipping = &domain.ShippingAddress{
			Name:       sd.Name,
			Email:      out.CustomerEmail,
			Phone:      phone,
			Line1:      sd.Address.Line1,
			Line2:      sd.Address.Line2,
			City:       sd.Address.City,
			State:      sd.Address.State,
			PostalCode: sd.Address.PostalCode,
			Country:    sd.Address.Country,
		}
		if sd.Phone != "" {
			out.Shipping.Phone = sd.Phone
		}
	}

	return out
}

// VerifyEvent checks the Stripe-Signature header against the endpoint secret.
func VerifyEvent(payload []byte, signatureHeader, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %w", domain.ErrSignatureInvalid, err)
	}
	return event, nil
}

// SessionFromEvent decodes the Checkout Session carried by a checkout.session.* event.
func SessionFromEvent(event stripe.Event) (fulfillment.CompletedSession, error) {
	if event.Data == nil {
		return fulfillment.CompletedSession{}, fmt.Errorf("%w: event %s has no data", domain.ErrMalformedContext, event.ID)
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return fulfillment.CompletedSession{}, errors.Join(domain.ErrMalformedContext, err)
	}
	return SessionFromStripe(&s, event.Data.Raw), nil
}
