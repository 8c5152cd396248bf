package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pipcasso/fulfillment/internal/catalog"
	"github.com/pipcasso/fulfillment/internal/checkout"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/purchases"
	"github.com/pipcasso/fulfillment/storage"
	"github.com/pipcasso/fulfillment/storage/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakePrintClient struct {
	mu     sync.Mutex
	orders []domain.PrintOrder
	err    error
	block  bool
}

func (c *fakePrintClient) CreateOrder(ctx context.Context, order domain.PrintOrder) (string, error) {
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = append(c.orders, order)
	if c.err != nil {
		return "", c.err
	}
	return "gel_" + order.SourceSessionID, nil
}

func (c *fakePrintClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

type harness struct {
	queries   *db.Queries
	client    *fakePrintClient
	fulfiller *Fulfiller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	_, queries, cleanup, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	client := &fakePrintClient{}
	return &harness{
		queries:   queries,
		client:    client,
		fulfiller: NewFulfiller(purchases.NewRecorder(queries, nil), NewSubmitter(client, queries), 200*time.Millisecond),
	}
}

func printSelection() domain.Selection {
	return domain.Selection{
		Variant:       domain.VariantPhysicalPrint,
		Size:          domain.SizeSmall,
		AspectRatio:   domain.AspectSquare,
		Quantity:      1,
		StyleID:       3,
		ProjectName:   "Fido",
		CustomerEmail: "a@b.com",
		Assets: domain.AssetRefs{
			LowResURL:  "https://cdn.example.com/fido-low.png",
			HighResURL: "https://cdn.example.com/fido-high.png",
		},
	}
}

func completedSession(t *testing.T, id string, sel domain.Selection) CompletedSession {
	t.Helper()
	quote, err := catalog.PriceAndSKU(sel)
	require.NoError(t, err)
	md, err := checkout.EncodeContext(sel, quote)
	require.NoError(t, err)

	return CompletedSession{
		ID:            id,
		PaymentStatus: "paid",
		Metadata:      md,
		CustomerEmail: sel.CustomerEmail,
		CustomerName:  "Ada Lovelace",
		Shipping: &domain.ShippingAddress{
			Name:       "Ada Lovelace",
			Line1:      "12 Analytical Way",
			City:       "London",
			PostalCode: "N1 9GU",
			Country:    "GB",
		},
		Raw: []byte(`{"id":"` + id + `"}`),
	}
}

func TestFulfill_PrintCreatesPurchaseAndOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.fulfiller.Fulfill(ctx, completedSession(t, "cs_print", printSelection()))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, purchases.ValidCode(res.Code))
	assert.Empty(t, res.Warning)
	assert.Equal(t, "gel_cs_print", res.ProviderOrderID)

	require.Equal(t, 1, h.client.count())
	order := h.client.orders[0]
	assert.Equal(t, "posters_pf_300x300-mm_pt_200-gsm-poster-paper_cl_4-0_ver", order.SKU)
	assert.Equal(t, "https://cdn.example.com/fido-high.png", order.ImageURL)
	assert.Equal(t, "Ada", order.FirstName)
	assert.Equal(t, "Lovelace", order.LastName)
	assert.Equal(t, "a@b.com", order.Email)
	assert.Equal(t, "N1 9GU", order.Address.PostalCode)

	row, err := h.queries.GetPrintOrderBySessionID(ctx, "cs_print")
	require.NoError(t, err)
	assert.Equal(t, "submitted", row.Status)
	assert.Equal(t, "gel_cs_print", row.ProviderOrderID.String)
}

func TestFulfill_DigitalSkipsPrint(t *testing.T) {
	h := newHarness(t)
	sel := domain.Selection{
		Variant:       domain.VariantDigitalPDF,
		Quantity:      1,
		ProjectName:   "Fido",
		CustomerEmail: "a@b.com",
		Assets:        domain.AssetRefs{PDFURL: "https://cdn.example.com/fido.pdf"},
	}

	res, err := h.fulfiller.Fulfill(context.Background(), completedSession(t, "cs_pdf", sel))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Zero(t, h.client.count())
}

func TestFulfill_DuplicateDeliveriesSubmitOnce(t *testing.T) {
	h := newHarness(t)
	sess := completedSession(t, "cs_dupe", printSelection())

	codes := make([]string, 6)
	var g errgroup.Group
	for i := range codes {
		g.Go(func() error {
			res, err := h.fulfiller.Fulfill(context.Background(), sess)
			codes[i] = res.Code
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, c := range codes {
		assert.Equal(t, codes[0], c)
	}
	assert.Equal(t, 1, h.client.count(), "one provider order per session")
}

func TestFulfill_PrintFailureIsWarning(t *testing.T) {
	h := newHarness(t)
	h.client.err = &domain.ProviderRejectedError{Status: 400, Details: "bad file"}
	ctx := context.Background()

	res, err := h.fulfiller.Fulfill(ctx, completedSession(t, "cs_reject", printSelection()))
	require.NoError(t, err)
	assert.True(t, purchases.ValidCode(res.Code))
	assert.Equal(t, PrintFailedWarning, res.Warning)

	row, err := h.queries.GetPrintOrderBySessionID(ctx, "cs_reject")
	require.NoError(t, err)
	assert.Equal(t, "failed", row.Status)
	assert.EqualValues(t, 1, row.Attempts)
	assert.Contains(t, row.LastError.String, "bad file")
}

func TestFulfill_PrintTimeoutLeavesOrderPending(t *testing.T) {
	h := newHarness(t)
	h.client.block = true
	ctx := context.Background()

	start := time.Now()
	res, err := h.fulfiller.Fulfill(ctx, completedSession(t, "cs_slow", printSelection()))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, PrintFailedWarning, res.Warning)

	row, err := h.queries.GetPrintOrderBySessionID(ctx, "cs_slow")
	require.NoError(t, err)
	assert.Equal(t, "pending", row.Status, "provider may hold the order")
	assert.EqualValues(t, 1, row.Attempts)
	assert.True(t, row.LastError.Valid)

	rows, err := h.queries.ListRetryablePrintOrders(ctx, db.ListRetryablePrintOrdersParams{MaxAttempts: 5, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, rows, "unconfirmed orders are not retried automatically")
}

func TestFulfill_UnconfirmedProviderErrorLeavesOrderPending(t *testing.T) {
	h := newHarness(t)
	h.client.err = &domain.ProviderRejectedError{Details: "request failed: EOF", Unconfirmed: true}
	ctx := context.Background()

	res, err := h.fulfiller.Fulfill(ctx, completedSession(t, "cs_eof", printSelection()))
	require.NoError(t, err)
	assert.Equal(t, PrintFailedWarning, res.Warning)

	row, err := h.queries.GetPrintOrderBySessionID(ctx, "cs_eof")
	require.NoError(t, err)
	assert.Equal(t, "pending", row.Status)
	assert.Contains(t, row.LastError.String, "EOF")
}

func TestFulfill_MissingShippingIsWarning(t *testing.T) {
	h := newHarness(t)
	sess := completedSession(t, "cs_noship", printSelection())
	sess.Shipping = nil

	res, err := h.fulfiller.Fulfill(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, PrintFailedWarning, res.Warning)
	assert.Zero(t, h.client.count())
}

func TestFulfill_MalformedContext(t *testing.T) {
	h := newHarness(t)
	sess := completedSession(t, "cs_bad", printSelection())
	delete(sess.Metadata, "projectName")

	_, err := h.fulfiller.Fulfill(context.Background(), sess)
	assert.ErrorIs(t, err, domain.ErrMalformedContext)
	assert.ErrorIs(t, err, domain.ErrMissingField)

	_, err = h.queries.GetPurchaseBySessionID(context.Background(), "cs_bad")
	assert.Error(t, err, "nothing recorded")
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, purchases.RecordInput) (purchases.RecordResult, error) {
	return purchases.RecordResult{}, errors.New("database is locked")
}

func TestFulfill_RecordFailureIsError(t *testing.T) {
	client := &fakePrintClient{}
	f := NewFulfiller(failingRecorder{}, NewSubmitter(client, nil), time.Second)

	_, err := f.Fulfill(context.Background(), completedSession(t, "cs_x", printSelection()))
	assert.ErrorIs(t, err, domain.ErrRecord)
	assert.Zero(t, client.count(), "no print order without a purchase record")
}

func TestBuildPrintOrder_Validation(t *testing.T) {
	ship := domain.ShippingAddress{Name: "Ada", Line1: "1 St", City: "X", PostalCode: "1", Country: "US"}

	tests := []struct {
		name   string
		mutate func(*domain.Selection, *domain.ShippingAddress)
		target error
	}{
		{"no line1", func(_ *domain.Selection, a *domain.ShippingAddress) { a.Line1 = "" }, domain.ErrMissingField},
		{"no city", func(_ *domain.Selection, a *domain.ShippingAddress) { a.City = "" }, domain.ErrMissingField},
		{"no country", func(_ *domain.Selection, a *domain.ShippingAddress) { a.Country = "" }, domain.ErrMissingField},
		{"no postal code", func(_ *domain.Selection, a *domain.ShippingAddress) { a.PostalCode = " " }, domain.ErrMissingField},
		{"unmapped aspect", func(s *domain.Selection, _ *domain.ShippingAddress) { s.AspectRatio = "" }, domain.ErrInvalidVariant},
		{"digital variant", func(s *domain.Selection, _ *domain.ShippingAddress) {
			s.Variant = domain.VariantDigitalHighRes
			s.Size = ""
		}, domain.ErrInvalidVariant},
		{"no image", func(s *domain.Selection, _ *domain.ShippingAddress) { s.Assets = domain.AssetRefs{} }, domain.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, addr := printSelection(), ship
			tt.mutate(&sel, &addr)
			_, err := BuildPrintOrder("cs", sel, addr)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestBuildPrintOrder_KitUsesDiceMap(t *testing.T) {
	sel := printSelection()
	sel.Variant = domain.VariantPhysicalKit
	sel.Size = domain.Kit8mm
	sel.Assets.PDFURL = "https://cdn.example.com/fido.pdf"

	order, err := BuildPrintOrder("cs_kit", sel, domain.ShippingAddress{
		Name: "Cher", Line1: "1 St", City: "X", PostalCode: "1", Country: "US",
	})
	require.NoError(t, err)
	assert.Equal(t, "PIP-KIT-8MM", order.SKU)
	assert.Equal(t, "https://cdn.example.com/fido.pdf", order.ImageURL)
	assert.Equal(t, "Cher", order.FirstName)
	assert.Equal(t, "-", order.LastName)
}

func TestSubmitter_RetryResubmitsStoredOrder(t *testing.T) {
	h := newHarness(t)
	h.client.err = errors.New("connection reset")
	ctx := context.Background()

	_, err := h.fulfiller.Fulfill(ctx, completedSession(t, "cs_retry", printSelection()))
	require.NoError(t, err)

	rows, err := h.queries.ListRetryablePrintOrders(ctx, db.ListRetryablePrintOrdersParams{MaxAttempts: 5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	h.client.err = nil
	id, err := NewSubmitter(h.client, h.queries).Retry(ctx, rows[0])
	require.NoError(t, err)
	assert.Equal(t, "gel_cs_retry", id)

	row, err := h.queries.GetPrintOrderBySessionID(ctx, "cs_retry")
	require.NoError(t, err)
	assert.Equal(t, "submitted", row.Status)
	assert.EqualValues(t, 2, row.Attempts)
}

func failedPrintOrder(t *testing.T, h *harness, sessionID string) db.PrintOrder {
	t.Helper()
	ctx := context.Background()
	h.client.err = &domain.ProviderRejectedError{Status: 503, Details: "unavailable"}

	_, err := h.fulfiller.Fulfill(ctx, completedSession(t, sessionID, printSelection()))
	require.NoError(t, err)

	row, err := h.queries.GetPrintOrderBySessionID(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, "failed", row.Status)

	h.client.mu.Lock()
	h.client.err = nil
	h.client.orders = nil
	h.client.mu.Unlock()
	return row
}

func TestSubmitter_ConcurrentRetrySubmitsOnce(t *testing.T) {
	h := newHarness(t)
	row := failedPrintOrder(t, h, "cs_race")
	submitter := NewSubmitter(h.client, h.queries)

	const callers = 4
	var (
		g       errgroup.Group
		mu      sync.Mutex
		ids     []string
		skipped int
	)
	for range callers {
		g.Go(func() error {
			id, err := submitter.Retry(context.Background(), row)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrAlreadyClaimed):
				skipped++
				return nil
			case err != nil:
				return err
			}
			ids = append(ids, id)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, h.client.count(), "one provider call per failed row")
	assert.Equal(t, []string{"gel_cs_race"}, ids)
	assert.Equal(t, callers-1, skipped)
}

func TestSubmitter_RetrySkipsPendingRow(t *testing.T) {
	h := newHarness(t)
	h.client.block = true
	ctx := context.Background()

	_, err := h.fulfiller.Fulfill(ctx, completedSession(t, "cs_unknown", printSelection()))
	require.NoError(t, err)
	row, err := h.queries.GetPrintOrderBySessionID(ctx, "cs_unknown")
	require.NoError(t, err)
	require.Equal(t, "pending", row.Status)

	h.client.block = false
	_, err = NewSubmitter(h.client, h.queries).Retry(ctx, row)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Zero(t, h.client.count())

	id, err := NewSubmitter(h.client, h.queries).ResubmitPending(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, "gel_cs_unknown", id)

	row, err = h.queries.GetPrintOrderBySessionID(ctx, "cs_unknown")
	require.NoError(t, err)
	assert.Equal(t, "submitted", row.Status)
	assert.EqualValues(t, 2, row.Attempts)
}
