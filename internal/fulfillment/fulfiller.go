// Package fulfillment turns a completed payment session into a recorded
// purchase and, for physical variants, a print order.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipcasso/fulfillment/internal/checkout"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/purchases"
)

const PrintFailedWarning = "Purchase saved, but the print order could not be submitted yet."

// CompletedSession is the subset of a completed checkout session that
// fulfillment reads. Shipping is nil when the provider collected none.
type CompletedSession struct {
	ID            string
	PaymentStatus string
	Metadata      map[string]string
	CustomerEmail string
	CustomerName  string
	Shipping      *domain.ShippingAddress
	Raw           []byte
}

// Paid reports whether money has been collected for the session.
func (s CompletedSession) Paid() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

type PurchaseRecorder interface {
	Record(ctx context.Context, in purchases.RecordInput) (purchases.RecordResult, error)
}

type PrintSubmitter interface {
	Submit(ctx context.Context, sessionID string, sel domain.Selection, shipping domain.ShippingAddress) (string, error)
}

type Result struct {
	Context         checkout.Context
	Code            string
	Created         bool
	Warning         string
	ProviderOrderID string
	Purchase        purchases.RecordResult
}

type Fulfiller struct {
	recorder     PurchaseRecorder
	submitter    PrintSubmitter
	printTimeout time.Duration
}

func NewFulfiller(recorder PurchaseRecorder, submitter PrintSubmitter, printTimeout time.Duration) *Fulfiller {
	if printTimeout <= 0 {
		printTimeout = 8 * time.Second
	}
	return &Fulfiller{
		recorder:     recorder,
		submitter:    submitter,
		printTimeout: printTimeout,
	}
}

// Fulfill records the purchase for a paid session and submits the print
// order for physical variants. It is safe to call any number of times for
// the same session. Only decode and record failures are returned as errors;
// print trouble is reported in Result.Warning.
func (f *Fulfiller) Fulfill(ctx context.Context, sess CompletedSession) (Result, error) {
	sc, err := checkout.DecodeContext(sess.Metadata)
	if err != nil {
		slog.Error("paid session has unreadable context",
			"error", err,
			"session_id", sess.ID,
			"payment_status", sess.PaymentStatus,
			"alert", true)
		return Result{}, errors.Join(domain.ErrMalformedContext, err)
	}

	sel := sc.Selection

	rec, err := f.recorder.Record(ctx, purchases.RecordInput{
		SessionID:  sess.ID,
		Selection:  sel,
		RawPayload: sess.Raw,
	})
	if err != nil {
		slog.Error("failed to record paid purchase",
			"error", err,
			"session_id", sess.ID,
			"project", sel.ProjectName,
			"alert", true)
		if errors.Is(err, domain.ErrRecord) || errors.Is(err, domain.ErrCodeExhausted) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", domain.ErrRecord, err)
	}

	res := Result{
		Context:  sc,
		Code:     rec.Code,
		Created:  rec.Created,
		Warning:  rec.Warning,
		Purchase: rec,
	}

	if sel.Variant.IsPhysical() && f.submitter != nil {
		providerID, warn := f.submitPrint(ctx, sess, sel)
		res.ProviderOrderID = providerID
		res.Warning = joinWarnings(res.Warning, warn)
	}

	return res, nil
}

func (f *Fulfiller) submitPrint(ctx context.Context, sess CompletedSession, sel domain.Selection) (string, string) {
	if sess.Shipping == nil {
		slog.Error("physical purchase completed without shipping details",
			"session_id", sess.ID,
			"variant", sel.Variant,
			"alert", true)
		return "", PrintFailedWarning
	}

	shipping := *sess.Shipping
	if shipping.Name == "" {
		shipping.Name = sess.CustomerName
	}
	if shipping.Email == "" {
		shipping.Email = sess.CustomerEmail
	}

	ctx, cancel := context.WithTimeout(ctx, f.printTimeout)
	defer cancel()

	providerID, err := f.submitter.Submit(ctx, sess.ID, sel, shipping)
	switch {
	case err == nil:
		return providerID, ""
	case errors.Is(err, ErrAlreadyClaimed):
		slog.Info("print order already claimed by an earlier delivery", "session_id", sess.ID)
		return "", ""
	default:
		slog.Error("print submission failed", "error", err, "session_id", sess.ID, "alert", true)
		return "", PrintFailedWarning
	}
}

func joinWarnings(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
