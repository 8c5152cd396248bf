package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/fulfillment"
	"github.com/pipcasso/fulfillment/internal/stripe"
)

// maxWebhookBody matches Stripe's documented upper bound for event payloads.
const maxWebhookBody = 65536

type SessionFulfiller interface {
	Fulfill(ctx context.Context, sess fulfillment.CompletedSession) (fulfillment.Result, error)
}

type PaymentHandler struct {
	fulfiller     SessionFulfiller
	webhookSecret string
}

func NewPaymentHandler(fulfiller SessionFulfiller, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		fulfiller:     fulfiller,
		webhookSecret: webhookSecret,
	}
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook verifies a Stripe event against the raw body and fulfills
// paid checkout sessions. Storage failures answer 500 so Stripe redelivers;
// fulfillment is idempotent per session.
func (h *PaymentHandler) HandleWebhook(c echo.Context) error {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Request body too large"})
	}

	signatureHeader := c.Request().Header.Get("Stripe-Signature")
	event, err := stripe.VerifyEvent(payload, signatureHeader, h.webhookSecret)
	if err != nil {
		slog.Warn("webhook signature verification failed", "error", err, "remote_ip", c.RealIP())
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid signature"})
	}

	switch event.Type {
	case stripe.EventCheckoutCompleted, stripe.EventCheckoutAsyncPaymentSucceed:
	default:
		slog.Debug("ignoring webhook event", "type", event.Type, "event_id", event.ID)
		return c.JSON(http.StatusOK, WebhookResponse{Received: true})
	}

	sess, err := stripe.SessionFromEvent(event)
	if err != nil {
		slog.Error("failed to parse checkout session from event", "error", err, "event_id", event.ID, "alert", true)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Malformed session"})
	}

	if !sess.Paid() {
		// Delayed payment methods complete unpaid; async_payment_succeeded follows.
		slog.Info("checkout completed without payment, waiting for async result",
			"session_id", sess.ID,
			"payment_status", sess.PaymentStatus)
		return c.JSON(http.StatusOK, WebhookResponse{Received: true})
	}

	res, err := h.fulfiller.Fulfill(c.Request().Context(), sess)
	switch {
	case errors.Is(err, domain.ErrMalformedContext):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Malformed session context"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record purchase"})
	}

	slog.Info("webhook fulfilled session",
		"event_id", event.ID,
		"type", event.Type,
		"session_id", sess.ID,
		"code", res.Code,
		"created", res.Created,
		"warning", res.Warning)

	return c.JSON(http.StatusOK, WebhookResponse{Received: true})
}
