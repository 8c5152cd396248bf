package fulfillment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pipcasso/fulfillment/internal/catalog"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/storage/db"
)

// ErrAlreadyClaimed means another delivery of the same session owns the
// print order. Its outcome is tracked on the print_orders row.
var ErrAlreadyClaimed = errors.New("print order already claimed for session")

// PrintFulfillmentClient places an order with the print provider and returns
// the provider's order id.
type PrintFulfillmentClient interface {
	CreateOrder(ctx context.Context, order domain.PrintOrder) (string, error)
}

// PrintOrderStore is the print_orders claim table.
type PrintOrderStore interface {
	ClaimPrintOrder(ctx context.Context, arg db.ClaimPrintOrderParams) (db.PrintOrder, error)
	GetPrintOrderBySessionID(ctx context.Context, stripeSessionID string) (db.PrintOrder, error)
	MarkPrintOrderSubmitted(ctx context.Context, arg db.MarkPrintOrderSubmittedParams) error
	MarkPrintOrderFailed(ctx context.Context, arg db.MarkPrintOrderFailedParams) error
	MarkPrintOrderUnknown(ctx context.Context, arg db.MarkPrintOrderUnknownParams) error
	ReclaimPrintOrder(ctx context.Context, arg db.ReclaimPrintOrderParams) (db.PrintOrder, error)
}

type Submitter struct {
	client PrintFulfillmentClient
	store  PrintOrderStore
}

func NewSubmitter(client PrintFulfillmentClient, store PrintOrderStore) *Submitter {
	return &Submitter{client: client, store: store}
}

// BuildPrintOrder validates everything the provider needs. It never calls out.
func BuildPrintOrder(sessionID string, sel domain.Selection, shipping domain.ShippingAddress) (domain.PrintOrder, error) {
	switch {
	case strings.TrimSpace(shipping.Line1) == "":
		return domain.PrintOrder{}, domain.MissingField("shipping.line1")
	case strings.TrimSpace(shipping.City) == "":
		return domain.PrintOrder{}, domain.MissingField("shipping.city")
	case strings.TrimSpace(shipping.Country) == "":
		return domain.PrintOrder{}, domain.MissingField("shipping.country")
	case strings.TrimSpace(shipping.PostalCode) == "":
		return domain.PrintOrder{}, domain.MissingField("shipping.postalCode")
	}

	if !sel.Variant.IsPhysical() {
		return domain.PrintOrder{}, domain.InvalidVariant("variantKind", string(sel.Variant))
	}
	quote, err := catalog.PriceAndSKU(sel)
	if err != nil {
		return domain.PrintOrder{}, err
	}
	if quote.SKU == "" {
		return domain.PrintOrder{}, domain.InvalidVariant("sizeOrKit", string(sel.Size))
	}

	image := catalog.PrintImage(sel)
	if image == "" {
		return domain.PrintOrder{}, domain.MissingField("imageUrl")
	}

	email := shipping.Email
	if email == "" {
		email = sel.CustomerEmail
	}
	first, last := domain.SplitName(shipping.Name)

	return domain.PrintOrder{
		SourceSessionID: sessionID,
		SKU:             quote.SKU,
		ImageURL:        image,
		Quantity:        sel.Quantity,
		FirstName:       first,
		LastName:        last,
		Email:           email,
		Address:         shipping,
	}, nil
}

// Submit places at most one provider order per session. A second call for
// the same session returns the stored provider id or ErrAlreadyClaimed.
func (s *Submitter) Submit(ctx context.Context, sessionID string, sel domain.Selection, shipping domain.ShippingAddress) (string, error) {
	order, err := BuildPrintOrder(sessionID, sel, shipping)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to encode print order: %w", err)
	}

	row, err := s.store.ClaimPrintOrder(ctx, db.ClaimPrintOrderParams{
		ID:              uuid.New().String(),
		StripeSessionID: sessionID,
		Sku:             order.SKU,
		ImageUrl:        order.ImageURL,
		RequestJson:     string(payload),
	})
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := s.store.GetPrintOrderBySessionID(ctx, sessionID)
		if err != nil {
			return "", fmt.Errorf("failed to load claimed print order: %w", err)
		}
		if existing.Status == "submitted" {
			return existing.ProviderOrderID.String, nil
		}
		return "", ErrAlreadyClaimed
	}
	if err != nil {
		return "", fmt.Errorf("failed to claim print order: %w", err)
	}

	return s.dispatch(ctx, row, order)
}

// Retry resubmits a stored failed order. The row is moved back to pending
// first, so only one caller resubmits it; the others get ErrAlreadyClaimed.
func (s *Submitter) Retry(ctx context.Context, row db.PrintOrder) (string, error) {
	return s.resubmit(ctx, row, "failed")
}

// ResubmitPending resubmits a row left pending by an unanswered call. Only
// use it once the provider is known not to hold an order for the session.
func (s *Submitter) ResubmitPending(ctx context.Context, row db.PrintOrder) (string, error) {
	return s.resubmit(ctx, row, "pending")
}

func (s *Submitter) resubmit(ctx context.Context, row db.PrintOrder, from string) (string, error) {
	var order domain.PrintOrder
	if err := json.Unmarshal([]byte(row.RequestJson), &order); err != nil {
		return "", fmt.Errorf("failed to decode stored print order %s: %w", row.ID, err)
	}

	claimed, err := s.store.ReclaimPrintOrder(ctx, db.ReclaimPrintOrderParams{
		ID:     row.ID,
		Status: from,
	})
	if errors.Is(err, sql.ErrNoRows) {
		slog.Info("print order no longer retryable, skipping", "print_order_id", row.ID, "expected_status", from)
		return "", ErrAlreadyClaimed
	}
	if err != nil {
		return "", fmt.Errorf("failed to reclaim print order %s: %w", row.ID, err)
	}

	return s.dispatch(ctx, claimed, order)
}

func (s *Submitter) dispatch(ctx context.Context, row db.PrintOrder, order domain.PrintOrder) (string, error) {
	providerID, err := s.client.CreateOrder(ctx, order)

	// The row must be updated even when ctx expired during the provider call.
	markCtx := context.WithoutCancel(ctx)

	if err != nil {
		var rejected *domain.ProviderRejectedError
		if !errors.As(err, &rejected) {
			rejected = &domain.ProviderRejectedError{Details: err.Error()}
			err = rejected
		}
		if ctx.Err() != nil && rejected.Status == 0 {
			rejected.Unconfirmed = true
		}

		lastError := sql.NullString{String: err.Error(), Valid: true}
		if rejected.Unconfirmed {
			// The provider may hold the order. The row stays pending and is
			// left out of automatic retries.
			if markErr := s.store.MarkPrintOrderUnknown(markCtx, db.MarkPrintOrderUnknownParams{
				LastError: lastError,
				ID:        row.ID,
			}); markErr != nil {
				slog.Error("failed to record unconfirmed print order", "error", markErr, "print_order_id", row.ID)
			}
			slog.Error("print order outcome unknown, check the provider before resubmitting",
				"error", err,
				"session_id", order.SourceSessionID,
				"sku", order.SKU,
				"attempt", row.Attempts+1,
				"alert", true)
			return "", err
		}

		if markErr := s.store.MarkPrintOrderFailed(markCtx, db.MarkPrintOrderFailedParams{
			LastError: lastError,
			ID:        row.ID,
		}); markErr != nil {
			slog.Error("failed to mark print order failed", "error", markErr, "print_order_id", row.ID)
		}
		slog.Error("print order submission failed",
			"error", err,
			"session_id", order.SourceSessionID,
			"sku", order.SKU,
			"attempt", row.Attempts+1,
			"alert", true)
		return "", err
	}

	if markErr := s.store.MarkPrintOrderSubmitted(markCtx, db.MarkPrintOrderSubmittedParams{
		ProviderOrderID: sql.NullString{String: providerID, Valid: providerID != ""},
		ID:              row.ID,
	}); markErr != nil {
		slog.Error("failed to mark print order submitted", "error", markErr, "print_order_id", row.ID, "provider_order_id", providerID)
	}

	slog.Info("print order submitted", "session_id", order.SourceSessionID, "sku", order.SKU, "provider_order_id", providerID)
	return providerID, nil
}
