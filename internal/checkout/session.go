// Package checkout prices a selection and opens a payment session carrying
// the encoded purchase context.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/pipcasso/fulfillment/internal/catalog"
	"github.com/pipcasso/fulfillment/internal/domain"
)

// PaymentGateway opens hosted checkout sessions with the payment provider.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
}

// SessionRequest is a single-line-item hosted checkout.
type SessionRequest struct {
	ProductName     string
	Description     string
	UnitAmountCents int64
	Quantity        int64
	Currency        string
	CustomerEmail   string
	Metadata        map[string]string
	SuccessURL      string
	CancelURL       string
	// ShippingCountries, when non-empty, asks the provider to collect a
	// shipping address restricted to these ISO country codes.
	ShippingCountries []string
}

type Session struct {
	ID  string
	URL string
}

type Config struct {
	Currency          string
	SuccessURL        string
	CancelURL         string
	ShippingCountries []string
	Timeout           time.Duration
}

// Factory is stateless; every call is one outbound provider request.
type Factory struct {
	gateway PaymentGateway
	config  Config
}

func NewFactory(gateway PaymentGateway, config Config) *Factory {
	if config.Currency == "" {
		config.Currency = "usd"
	}
	return &Factory{gateway: gateway, config: config}
}

// CreateSession validates and prices the selection, then opens a provider
// session. Catalog and input errors never reach the provider; provider
// failures come back as *domain.PaymentError.
func (f *Factory) CreateSession(ctx context.Context, sel domain.Selection) (Session, error) {
	quote, err := Validate(sel)
	if err != nil {
		return Session{}, err
	}

	metadata, err := EncodeContext(sel, quote)
	if err != nil {
		return Session{}, err
	}

	req := SessionRequest{
		ProductName:     quote.ProductName,
		Description:     fmt.Sprintf("Project: %s", sel.ProjectName),
		UnitAmountCents: quote.UnitPriceCents,
		Quantity:        sel.Quantity,
		Currency:        f.config.Currency,
		CustomerEmail:   sel.CustomerEmail,
		Metadata:        metadata,
		SuccessURL:      f.config.SuccessURL,
		CancelURL:       f.config.CancelURL,
	}
	if sel.Variant.IsPhysical() {
		req.ShippingCountries = f.config.ShippingCountries
	}

	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	session, err := f.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		slog.Error("failed to create checkout session", "error", err, "variant", sel.Variant)
		return Session{}, &domain.PaymentError{Err: err}
	}

	slog.Info("checkout session created",
		"session_id", session.ID,
		"variant", sel.Variant,
		"amount_cents", quote.UnitPriceCents*sel.Quantity)

	return session, nil
}

// Validate checks a selection against the catalog and the fields fulfillment
// will need, returning its quote.
func Validate(sel domain.Selection) (catalog.Quote, error) {
	quote, err := catalog.PriceAndSKU(sel)
	if err != nil {
		return catalog.Quote{}, err
	}

	if sel.Quantity <= 0 {
		return catalog.Quote{}, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(sel.ProjectName) == "" {
		return catalog.Quote{}, domain.MissingField(keyProjectName)
	}
	if strings.IndexFunc(sel.ProjectName, unicode.IsControl) >= 0 {
		return catalog.Quote{}, fmt.Errorf("%w: projectName contains control characters", domain.ErrInvalidInput)
	}
	if sel.CustomerEmail == "" {
		return catalog.Quote{}, domain.MissingField(keyCustomerEmail)
	}
	if _, err := mail.ParseAddress(sel.CustomerEmail); err != nil {
		return catalog.Quote{}, fmt.Errorf("%w: customerEmail is not a valid address", domain.ErrInvalidInput)
	}
	if name := catalog.MissingAsset(sel); name != "" {
		return catalog.Quote{}, domain.MissingField(name)
	}

	return quote, nil
}
