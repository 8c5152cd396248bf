package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pipcasso/fulfillment/internal/checkout"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/fulfillment"
	"github.com/pipcasso/fulfillment/internal/handlers"
	"github.com/pipcasso/fulfillment/internal/mosaic"
	"github.com/pipcasso/fulfillment/internal/purchases"
	"github.com/pipcasso/fulfillment/storage"
)

const testWebhookSecret = "whsec_test_service"

// fakeGateway stands in for Stripe. Sessions it creates can be looked up
// again once a test marks them paid.
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]fulfillment.CompletedSession
	err      error
	requests []checkout.SessionRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]fulfillment.CompletedSession{}}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req checkout.SessionRequest) (checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return checkout.Session{}, g.err
	}

	g.requests = append(g.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	g.sessions[id] = fulfillment.CompletedSession{
		ID:            id,
		PaymentStatus: "unpaid",
		Metadata:      req.Metadata,
		CustomerEmail: req.CustomerEmail,
	}
	return checkout.Session{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (g *fakeGateway) GetCompletedSession(_ context.Context, id string) (fulfillment.CompletedSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[id]
	if !ok {
		return fulfillment.CompletedSession{}, domain.ErrNotFound
	}
	return sess, nil
}

func (g *fakeGateway) markPaid(id string, shipping *domain.ShippingAddress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess := g.sessions[id]
	sess.PaymentStatus = "paid"
	sess.Shipping = shipping
	sess.Raw, _ = json.Marshal(map[string]string{"id": id})
	g.sessions[id] = sess
}

func (g *fakeGateway) lastRequest() checkout.SessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []purchases.Confirmation
}

func (n *recordingNotifier) SendPurchaseConfirmation(_ context.Context, c purchases.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, c)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingPrintClient struct {
	mu     sync.Mutex
	orders []domain.PrintOrder
}

func (p *recordingPrintClient) CreateOrder(_ context.Context, order domain.PrintOrder) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return fmt.Sprintf("gelato-%d", len(p.orders)), nil
}

type fakeMosaic struct {
	imageURL string
	err      error
	got      mosaic.HighResRequest
}

func (m *fakeMosaic) GenerateHighRes(_ context.Context, req mosaic.HighResRequest) (string, error) {
	m.got = req
	if m.err != nil {
		return "", m.err
	}
	if req.StyleID <= 0 || req.ProjectName == "" || len(req.Grid) == 0 {
		return "", domain.MissingField("grid")
	}
	return m.imageURL, nil
}

type testService struct {
	*Service
	gateway  *fakeGateway
	notifier *recordingNotifier
	printer  *recordingPrintClient
	mosaic   *fakeMosaic
	store    *storage.Storage
}

// setupTestService wires the real recorder, redeemer and fulfiller over an
// in-memory database, with every external provider faked.
func setupTestService(t *testing.T) *testService {
	t.Helper()

	store, cleanup, err := storage.NewTestStorage()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(cleanup)

	config := &Config{
		Environment: "test",
		Port:        "8080",
		BaseURL:     "https://pipcasso.test",
	}
	config.Checkout.Currency = "usd"
	config.Checkout.SuccessPath = "/thank-you?session_id={CHECKOUT_SESSION_ID}"
	config.Checkout.CancelPath = "/create?canceled=true"
	config.Checkout.ShippingCountries = []string{"US", "GB"}

	gateway := newFakeGateway()
	notifier := &recordingNotifier{}
	printer := &recordingPrintClient{}
	mosaicFake := &fakeMosaic{imageURL: "https://mosaic.test/out/fido.png"}

	recorder := purchases.NewRecorder(store.Queries, notifier)
	submitter := fulfillment.NewSubmitter(printer, store.Queries)
	fulfiller := fulfillment.NewFulfiller(recorder, submitter, 0)

	svc := &Service{
		storage: store,
		config:  config,
		checkout: checkout.NewFactory(gateway, checkout.Config{
			Currency:          config.Checkout.Currency,
			SuccessURL:        config.SuccessURL(),
			CancelURL:         config.CancelURL(),
			ShippingCountries: config.Checkout.ShippingCountries,
		}),
		sessions:       gateway,
		fulfiller:      fulfiller,
		paymentHandler: handlers.NewPaymentHandler(fulfiller, testWebhookSecret),
		redeemer:       purchases.NewRedeemer(store.Queries),
		mosaic:         mosaicFake,
	}

	return &testService{
		Service:  svc,
		gateway:  gateway,
		notifier: notifier,
		printer:  printer,
		mosaic:   mosaicFake,
		store:    store,
	}
}

// setupTestEcho creates an Echo instance with routes registered
func setupTestEcho(t *testing.T) (*echo.Echo, *testService) {
	t.Helper()

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if he, ok := err.(*echo.HTTPError); ok {
			c.Response().WriteHeader(he.Code)
		} else {
			c.Response().WriteHeader(http.StatusInternalServerError)
		}
	}

	svc := setupTestService(t)
	svc.RegisterRoutes(e)

	return e, svc
}
