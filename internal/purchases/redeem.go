package purchases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/storage/db"
)

type Redemption struct {
	Code        string
	ProjectName string
	AssetURL    string
	PDFURL      string
	HighResURL  string
	LowResURL   string
}

type Redeemer struct {
	store PurchaseStore
}

func NewRedeemer(store PurchaseStore) *Redeemer {
	return &Redeemer{store: store}
}

// Redeem finds a purchase by exact match on the normalized (email, code)
// pair. Any miss is domain.ErrNotFound, whichever half was wrong.
func (r *Redeemer) Redeem(ctx context.Context, email, code string) (Redemption, error) {
	email = NormalizeEmail(email)
	code = NormalizeCode(code)
	if email == "" || !ValidCode(code) {
		return Redemption{}, domain.ErrNotFound
	}

	p, err := r.store.GetPurchaseByEmailAndCode(ctx, db.GetPurchaseByEmailAndCodeParams{
		Email: email,
		Code:  code,
	})
	if errors.Is(err, sql.ErrNoRows) {
		slog.Info("redeem miss", "code", code)
		return Redemption{}, domain.ErrNotFound
	}
	if err != nil {
		return Redemption{}, fmt.Errorf("failed to look up purchase: %w", err)
	}

	return Redemption{
		Code:        p.Code,
		ProjectName: p.ProjectName,
		AssetURL:    p.AssetUrl,
		PDFURL:      p.PdfUrl.String,
		HighResURL:  p.HighResUrl.String,
		LowResURL:   p.LowResUrl.String,
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
