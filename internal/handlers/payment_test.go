package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pipcasso/fulfillment/internal/catalog"
	"github.com/pipcasso/fulfillment/internal/checkout"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/fulfillment"
	"github.com/pipcasso/fulfillment/internal/purchases"
	"github.com/pipcasso/fulfillment/storage/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

type countingPrintClient struct {
	mu    sync.Mutex
	calls int
}

func (c *countingPrintClient) CreateOrder(_ context.Context, order domain.PrintOrder) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return "gel_" + order.SourceSessionID, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) SendPurchaseConfirmation(context.Context, purchases.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

type webhookHarness struct {
	queries  *db.Queries
	printer  *countingPrintClient
	notifier *countingNotifier
	handler  *PaymentHandler
}

func newWebhookHarness(t *testing.T) *webhookHarness {
	t.Helper()
	_, queries, cleanup := NewTestDB()
	t.Cleanup(cleanup)

	printer := &countingPrintClient{}
	notifier := &countingNotifier{}
	f := fulfillment.NewFulfiller(
		purchases.NewRecorder(queries, notifier),
		fulfillment.NewSubmitter(printer, queries),
		time.Second,
	)
	return &webhookHarness{
		queries:  queries,
		printer:  printer,
		notifier: notifier,
		handler:  NewPaymentHandler(f, testWebhookSecret),
	}
}

func eventPayload(t *testing.T, eventType, sessionID, paymentStatus string, sel domain.Selection) []byte {
	t.Helper()
	quote, err := catalog.PriceAndSKU(sel)
	require.NoError(t, err)
	md, err := checkout.EncodeContext(sel, quote)
	require.NoError(t, err)

	session := map[string]any{
		"id":             sessionID,
		"object":         "checkout.session",
		"payment_status": paymentStatus,
		"customer_email": sel.CustomerEmail,
		"metadata":       md,
		"customer_details": map[string]any{
			"email": sel.CustomerEmail,
			"name":  "Ada Lovelace",
		},
	}
	if sel.Variant.IsPhysical() {
		session["shipping_details"] = map[string]any{
			"name": "Ada Lovelace",
			"address": map[string]any{
				"line1": "12 Analytical Way", "city": "London", "postal_code": "N1 9GU", "country": "GB",
			},
		}
	}

	payload, err := json.Marshal(map[string]any{
		"id":     "evt_" + sessionID,
		"object": "event",
		"type":   eventType,
		"data":   map[string]any{"object": session},
	})
	require.NoError(t, err)
	return payload
}

func pdfSelection() domain.Selection {
	return domain.Selection{
		Variant:       domain.VariantDigitalPDF,
		Quantity:      1,
		ProjectName:   "Fido",
		CustomerEmail: "a@b.com",
		Assets:        domain.AssetRefs{PDFURL: "https://cdn.example.com/fido.pdf"},
	}
}

func printSelection() domain.Selection {
	return domain.Selection{
		Variant:       domain.VariantPhysicalPrint,
		Size:          domain.SizeSmall,
		AspectRatio:   domain.AspectSquare,
		Quantity:      1,
		ProjectName:   "Fido",
		CustomerEmail: "a@b.com",
		Assets:        domain.AssetRefs{HighResURL: "https://cdn.example.com/fido-high.png"},
	}
}

func TestHandleWebhook_CompletedSession(t *testing.T) {
	h := newWebhookHarness(t)
	payload := eventPayload(t, "checkout.session.completed", "cs_pdf", "paid", pdfSelection())

	c, rec := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
	require.NoError(t, h.handler.HandleWebhook(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	p, err := h.queries.GetPurchaseBySessionID(context.Background(), "cs_pdf")
	require.NoError(t, err)
	assert.True(t, purchases.ValidCode(p.Code))
	assert.Equal(t, 1, h.notifier.calls)
	assert.Zero(t, h.printer.calls)
}

func TestHandleWebhook_RedeliveryIsNoOp(t *testing.T) {
	h := newWebhookHarness(t)
	payload := eventPayload(t, "checkout.session.completed", "cs_twice", "paid", printSelection())

	for i := 0; i < 2; i++ {
		c, rec := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
		require.NoError(t, h.handler.HandleWebhook(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	first, err := h.queries.GetPurchaseBySessionID(context.Background(), "cs_twice")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Code)

	assert.Equal(t, 1, h.notifier.calls, "second delivery sends no email")
	assert.Equal(t, 1, h.printer.calls, "second delivery places no print order")
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	h := newWebhookHarness(t)
	payload := eventPayload(t, "checkout.session.completed", "cs_forged", "paid", printSelection())

	tests := []struct {
		name string
		send func() (int, error)
	}{
		{"wrong secret", func() (int, error) {
			c, rec := NewWebhookContext("/api/stripe/webhook", payload, "whsec_attacker")
			err := h.handler.HandleWebhook(c)
			return rec.Code, err
		}},
		{"missing header", func() (int, error) {
			c, rec := NewRawContext("/api/stripe/webhook", payload, "")
			err := h.handler.HandleWebhook(c)
			return rec.Code, err
		}},
		{"garbage header", func() (int, error) {
			c, rec := NewRawContext("/api/stripe/webhook", payload, "t=1,v1=deadbeef")
			err := h.handler.HandleWebhook(c)
			return rec.Code, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := tt.send()
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}

	_, err := h.queries.GetPurchaseBySessionID(context.Background(), "cs_forged")
	assert.Error(t, err, "no purchase for a forged event")
	assert.Zero(t, h.printer.calls)
	assert.Zero(t, h.notifier.calls)
}

func TestHandleWebhook_TamperedBody(t *testing.T) {
	h := newWebhookHarness(t)
	payload := eventPayload(t, "checkout.session.completed", "cs_tamper", "paid", pdfSelection())
	c, _ := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
	signature := c.Request().Header.Get("Stripe-Signature")

	tampered := eventPayload(t, "checkout.session.completed", "cs_tamper2", "paid", pdfSelection())
	c, rec := NewRawContext("/api/stripe/webhook", tampered, signature)
	require.NoError(t, h.handler.HandleWebhook(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhook_IgnoredEvents(t *testing.T) {
	h := newWebhookHarness(t)

	t.Run("other event type", func(t *testing.T) {
		payload := eventPayload(t, "payment_intent.created", "cs_other", "paid", pdfSelection())
		c, rec := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
		require.NoError(t, h.handler.HandleWebhook(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	})

	t.Run("completed but unpaid", func(t *testing.T) {
		payload := eventPayload(t, "checkout.session.completed", "cs_unpaid", "unpaid", pdfSelection())
		c, rec := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
		require.NoError(t, h.handler.HandleWebhook(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	_, err := h.queries.GetPurchaseBySessionID(context.Background(), "cs_other")
	assert.Error(t, err)
	_, err = h.queries.GetPurchaseBySessionID(context.Background(), "cs_unpaid")
	assert.Error(t, err)
}

func TestHandleWebhook_AsyncPaymentSucceeded(t *testing.T) {
	h := newWebhookHarness(t)
	payload := eventPayload(t, "checkout.session.async_payment_succeeded", "cs_async", "paid", pdfSelection())

	c, rec := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
	require.NoError(t, h.handler.HandleWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := h.queries.GetPurchaseBySessionID(context.Background(), "cs_async")
	assert.NoError(t, err)
}

func TestHandleWebhook_MalformedContext(t *testing.T) {
	h := newWebhookHarness(t)

	payload, err := json.Marshal(map[string]any{
		"id":     "evt_bad",
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]any{"object": map[string]any{
			"id":             "cs_bad",
			"object":         "checkout.session",
			"payment_status": "paid",
			"metadata":       map[string]string{"variantKind": "digitalPdf"},
		}},
	})
	require.NoError(t, err)

	c, rec := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
	require.NoError(t, h.handler.HandleWebhook(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err = h.queries.GetPurchaseBySessionID(context.Background(), "cs_bad")
	assert.Error(t, err)
}

type brokenFulfiller struct{}

func (brokenFulfiller) Fulfill(context.Context, fulfillment.CompletedSession) (fulfillment.Result, error) {
	return fulfillment.Result{}, domain.ErrRecord
}

func TestHandleWebhook_RecordFailureAsksForRedelivery(t *testing.T) {
	handler := NewPaymentHandler(brokenFulfiller{}, testWebhookSecret)
	payload := eventPayload(t, "checkout.session.completed", "cs_db_down", "paid", pdfSelection())

	c, rec := NewWebhookContext("/api/stripe/webhook", payload, testWebhookSecret)
	require.NoError(t, handler.HandleWebhook(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
