package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls    []SessionRequest
	err      error
	deadline bool
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	g.calls = append(g.calls, req)
	_, g.deadline = ctx.Deadline()
	if g.err != nil {
		return Session{}, g.err
	}
	return Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func testConfig() Config {
	return Config{
		Currency:          "usd",
		SuccessURL:        "https://pipcasso.test/thank-you?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         "https://pipcasso.test/create?canceled=true",
		ShippingCountries: []string{"US", "CA"},
		Timeout:           5 * time.Second,
	}
}

func TestCreateSession_DigitalPDF(t *testing.T) {
	gw := &fakeGateway{}
	f := NewFactory(gw, testConfig())

	sel := domain.Selection{
		Variant:       domain.VariantDigitalPDF,
		Quantity:      1,
		ProjectName:   "Fido",
		CustomerEmail: "a@b.com",
		Assets:        domain.AssetRefs{PDFURL: "https://cdn.example.com/fido.pdf"},
	}

	session, err := f.CreateSession(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)

	require.Len(t, gw.calls, 1)
	req := gw.calls[0]
	assert.Equal(t, int64(1999), req.UnitAmountCents)
	assert.Equal(t, int64(1), req.Quantity)
	assert.Equal(t, "Dice Map PDF", req.ProductName)
	assert.Equal(t, "Project: Fido", req.Description)
	assert.Equal(t, "a@b.com", req.CustomerEmail)
	assert.Empty(t, req.ShippingCountries, "digital purchases do not collect shipping")
	assert.Equal(t, testConfig().SuccessURL, req.SuccessURL)
	assert.True(t, gw.deadline, "provider call should carry a deadline")

	decoded, err := DecodeContext(req.Metadata)
	require.NoError(t, err)
	assert.Equal(t, sel, decoded.Selection)
}

func TestCreateSession_PhysicalCollectsShipping(t *testing.T) {
	gw := &fakeGateway{}
	f := NewFactory(gw, testConfig())

	sel := domain.Selection{
		Variant:       domain.VariantPhysicalPrint,
		Size:          domain.SizeSmall,
		AspectRatio:   domain.AspectSquare,
		Quantity:      2,
		ProjectName:   "Rex",
		CustomerEmail: "rex@example.com",
		Assets:        domain.AssetRefs{HighResURL: "https://cdn.example.com/rex.png"},
	}

	_, err := f.CreateSession(context.Background(), sel)
	require.NoError(t, err)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, []string{"US", "CA"}, gw.calls[0].ShippingCountries)
	assert.Equal(t, int64(5999), gw.calls[0].UnitAmountCents)
	assert.Equal(t, int64(2), gw.calls[0].Quantity)
	assert.NotEmpty(t, gw.calls[0].Metadata[keySKU])
}

func TestCreateSession_RejectsWithoutCallingProvider(t *testing.T) {
	base := domain.Selection{
		Variant:       domain.VariantDigitalPDF,
		Quantity:      1,
		ProjectName:   "Fido",
		CustomerEmail: "a@b.com",
		Assets:        domain.AssetRefs{PDFURL: "https://cdn.example.com/fido.pdf"},
	}

	tests := []struct {
		name string
		edit func(s *domain.Selection)
		want error
	}{
		{"invalid variant", func(s *domain.Selection) { s.Variant = "poster" }, domain.ErrInvalidVariant},
		{"print without size", func(s *domain.Selection) { s.Variant = domain.VariantPhysicalPrint }, domain.ErrInvalidVariant},
		{"zero quantity", func(s *domain.Selection) { s.Quantity = 0 }, domain.ErrInvalidInput},
		{"no project", func(s *domain.Selection) { s.ProjectName = "  " }, domain.ErrMissingField},
		{"project with line break", func(s *domain.Selection) { s.ProjectName = "Fido\r\nBcc: attacker@evil.test" }, domain.ErrInvalidInput},
		{"project with tab", func(s *domain.Selection) { s.ProjectName = "Fido\tRex" }, domain.ErrInvalidInput},
		{"no email", func(s *domain.Selection) { s.CustomerEmail = "" }, domain.ErrMissingField},
		{"bad email", func(s *domain.Selection) { s.CustomerEmail = "not-an-email" }, domain.ErrInvalidInput},
		{"no pdf", func(s *domain.Selection) { s.Assets = domain.AssetRefs{} }, domain.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			f := NewFactory(gw, testConfig())
			sel := base
			tt.edit(&sel)

			_, err := f.CreateSession(context.Background(), sel)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, gw.calls)
		})
	}
}

func TestCreateSession_ProviderErrorSurfaced(t *testing.T) {
	gw := &fakeGateway{err: errors.New("Your card was declined")}
	f := NewFactory(gw, testConfig())

	_, err := f.CreateSession(context.Background(), domain.Selection{
		Variant:       domain.VariantDigitalBasic,
		Quantity:      1,
		ProjectName:   "Fido",
		CustomerEmail: "a@b.com",
		Assets:        domain.AssetRefs{LowResURL: "https://cdn.example.com/fido.png"},
	})
	require.ErrorIs(t, err, domain.ErrPayment)
	assert.Equal(t, "Your card was declined", err.Error())
}
