// Package purchases records completed purchases under a redemption code and
// looks them up again by email and code.
package purchases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/storage"
	"github.com/pipcasso/fulfillment/storage/db"
)

// maxCodeAttempts bounds regeneration after a code collision.
const maxCodeAttempts = 5

// EmailFailedWarning is returned alongside a saved purchase whose
// confirmation could not be sent.
const EmailFailedWarning = "Purchase saved, but email failed to send."

// PurchaseStore is the durable purchase table. Uniqueness of code and of
// session id is enforced by the store, not in process.
type PurchaseStore interface {
	CreatePurchase(ctx context.Context, arg db.CreatePurchaseParams) (db.Purchase, error)
	GetPurchaseBySessionID(ctx context.Context, stripeSessionID string) (db.Purchase, error)
	GetPurchaseByEmailAndCode(ctx context.Context, arg db.GetPurchaseByEmailAndCodeParams) (db.Purchase, error)
}

// Confirmation is what the customer is told after a purchase is saved.
type Confirmation struct {
	Email       string
	Code        string
	ProjectName string
	AssetURL    string
	PDFURL      string
}

type Notifier interface {
	SendPurchaseConfirmation(ctx context.Context, c Confirmation) error
}

type RecordInput struct {
	SessionID  string
	Selection  domain.Selection
	RawPayload []byte
}

type RecordResult struct {
	Code     string
	Created  bool
	Warning  string
	Purchase db.Purchase
}

type Recorder struct {
	store    PurchaseStore
	notifier Notifier
	newCode  func() (string, error)
}

func NewRecorder(store PurchaseStore, notifier Notifier) *Recorder {
	return &Recorder{
		store:    store,
		notifier: notifier,
		newCode:  NewCode,
	}
}

// Record persists one purchase per session. A repeat call for the same
// session returns the existing code with Created=false and sends nothing.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (RecordResult, error) {
	sel := in.Selection
	email := NormalizeEmail(sel.CustomerEmail)

	switch {
	case in.SessionID == "":
		return RecordResult{}, domain.MissingField("sessionId")
	case email == "":
		return RecordResult{}, domain.MissingField("customerEmail")
	case strings.TrimSpace(sel.ProjectName) == "":
		return RecordResult{}, domain.MissingField("projectName")
	case sel.Assets.Empty():
		return RecordResult{}, domain.MissingField("assetRefs")
	}

	stripeData := "{}"
	if len(in.RawPayload) > 0 {
		stripeData = string(in.RawPayload)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return RecordResult{}, fmt.Errorf("%w: %w", domain.ErrRecord, err)
		}

		purchase, err := r.store.CreatePurchase(ctx, db.CreatePurchaseParams{
			ID:              ulid.Make().String(),
			Code:            code,
			StripeSessionID: in.SessionID,
			Email:           email,
			ProjectName:     sel.ProjectName,
			Variant:         string(sel.Variant),
			AssetUrl:        sel.Assets.Primary(),
			PdfUrl:          nullString(sel.Assets.PDFURL),
			HighResUrl:      nullString(sel.Assets.HighResURL),
			LowResUrl:       nullString(sel.Assets.LowResURL),
			StripeData:      stripeData,
		})

		switch {
		case err == nil:
			slog.Info("purchase recorded", "session_id", in.SessionID, "code", code, "project", sel.ProjectName)
			result := RecordResult{Code: code, Created: true, Purchase: purchase}
			result.Warning = r.notify(ctx, purchase)
			return result, nil

		case errors.Is(err, sql.ErrNoRows):
			// Session already recorded by an earlier or concurrent delivery.
			existing, err := r.store.GetPurchaseBySessionID(ctx, in.SessionID)
			if err != nil {
				return RecordResult{}, fmt.Errorf("%w: failed to load existing purchase: %w", domain.ErrRecord, err)
			}
			slog.Info("purchase already recorded", "session_id", in.SessionID, "code", existing.Code)
			return RecordResult{Code: existing.Code, Created: false, Purchase: existing}, nil

		case storage.IsUniqueViolation(err, "purchases.code"):
			slog.Warn("redemption code collision, regenerating", "attempt", attempt)
			continue

		default:
			return RecordResult{}, fmt.Errorf("%w: %w", domain.ErrRecord, err)
		}
	}

	slog.Error("could not allocate a unique redemption code",
		"session_id", in.SessionID,
		"attempts", maxCodeAttempts,
		"alert", true)
	return RecordResult{}, domain.ErrCodeExhausted
}

// notify sends the confirmation and turns a failure into a warning. The
// purchase is never rolled back or re-sent: the code stays retrievable
// through redemption.
func (r *Recorder) notify(ctx context.Context, p db.Purchase) string {
	if r.notifier == nil {
		return ""
	}

	err := r.notifier.SendPurchaseConfirmation(ctx, Confirmation{
		Email:       p.Email,
		Code:        p.Code,
		ProjectName: p.ProjectName,
		AssetURL:    p.AssetUrl,
		PDFURL:      p.PdfUrl.String,
	})
	if err != nil {
		slog.Error("failed to send purchase confirmation", "error", err, "code", p.Code, "email", p.Email)
		return EmailFailedWarning
	}

	slog.Info("purchase confirmation sent", "code", p.Code, "email", p.Email)
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
