package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pipcasso/fulfillment/internal/checkout"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/email"
	"github.com/pipcasso/fulfillment/internal/fulfillment"
	"github.com/pipcasso/fulfillment/internal/gelato"
	"github.com/pipcasso/fulfillment/internal/handlers"
	"github.com/pipcasso/fulfillment/internal/jobs"
	"github.com/pipcasso/fulfillment/internal/mosaic"
	"github.com/pipcasso/fulfillment/internal/purchases"
	"github.com/pipcasso/fulfillment/internal/stripe"
	"github.com/pipcasso/fulfillment/storage"
	"golang.org/x/time/rate"
)

type CheckoutCreator interface {
	CreateSession(ctx context.Context, sel domain.Selection) (checkout.Session, error)
}

// SessionGetter fetches a checkout session for the post-payment page.
type SessionGetter interface {
	GetCompletedSession(ctx context.Context, id string) (fulfillment.CompletedSession, error)
}

type PurchaseRedeemer interface {
	Redeem(ctx context.Context, email, code string) (purchases.Redemption, error)
}

type HighResGenerator interface {
	GenerateHighRes(ctx context.Context, req mosaic.HighResRequest) (string, error)
}

type Service struct {
	storage        *storage.Storage
	config         *Config
	checkout       CheckoutCreator
	sessions       SessionGetter
	fulfiller      handlers.SessionFulfiller
	paymentHandler *handlers.PaymentHandler
	redeemer       PurchaseRedeemer
	mosaic         HighResGenerator
	printRetrier   *jobs.PrintRetrier
}

func New(storage *storage.Storage, config *Config) *Service {
	gateway := stripe.NewGateway(config.Stripe.SecretKey, nil)

	emailService := email.NewService(email.Config{
		Host:     config.Email.Host,
		Port:     config.Email.Port,
		Username: config.Email.Login,
		Password: config.Email.Key,
		From:     config.Email.From,
		BaseURL:  config.BaseURL,
	}, storage.Queries)

	printClient := gelato.NewClient(gelato.Options{
		APIKey:  config.Print.GelatoAPIKey,
		BaseURL: config.Print.GelatoBaseURL,
	})
	submitter := fulfillment.NewSubmitter(printClient, storage.Queries)

	recorder := purchases.NewRecorder(storage.Queries, emailService)
	fulfiller := fulfillment.NewFulfiller(recorder, submitter, config.Print.SubmitTimeout)

	factory := checkout.NewFactory(gateway, checkout.Config{
		Currency:          config.Checkout.Currency,
		SuccessURL:        config.SuccessURL(),
		CancelURL:         config.CancelURL(),
		ShippingCountries: config.Checkout.ShippingCountries,
		Timeout:           config.Checkout.PaymentTimeout,
	})

	printRetrier := jobs.NewPrintRetrier(storage.Queries, submitter, jobs.PrintRetryConfig{
		Interval:      config.Print.RetryInterval,
		MaxAttempts:   config.Print.MaxAttempts,
		SubmitTimeout: config.Print.SubmitTimeout,
	})

	return &Service{
		storage:        storage,
		config:         config,
		checkout:       factory,
		sessions:       gateway,
		fulfiller:      fulfiller,
		paymentHandler: handlers.NewPaymentHandler(fulfiller, config.Stripe.WebhookSecret),
		redeemer:       purchases.NewRedeemer(storage.Queries),
		mosaic:         mosaic.NewClient(config.Mosaic.BaseURL, 0),
		printRetrier:   printRetrier,
	}
}

// StartJobs starts the background print retry job.
func (s *Service) StartJobs(ctx context.Context) {
	if s.printRetrier != nil {
		s.printRetrier.Start(ctx)
	}
}

func (s *Service) StopJobs() {
	if s.printRetrier != nil {
		s.printRetrier.Stop()
	}
}

func (s *Service) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	// Checkout
	api.POST("/checkout/session", s.handleCreateCheckoutSession)
	api.GET("/checkout/session", s.handleGetCheckoutSession)

	// Stripe webhook reads the raw body for signature verification
	api.POST("/stripe/webhook", s.paymentHandler.HandleWebhook)

	// Redemption
	redeem := api.Group("/redeem")
	if limiter := s.redeemLimiter(); limiter != nil {
		redeem.Use(limiter)
	}
	redeem.POST("", s.handleRedeem)
	redeem.POST("/card", s.handleRedeemCard)

	// Mosaic renderer proxy
	api.POST("/generate-highres", s.handleGenerateHighRes)

	e.GET("/health", s.handleHealth)
}

// redeemLimiter returns nil when rate limiting is not configured.
func (s *Service) redeemLimiter() echo.MiddlewareFunc {
	if s.config.Redeem.RatePerSecond <= 0 {
		return nil
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.config.Redeem.RatePerSecond),
		Burst:     s.config.Redeem.Burst,
		ExpiresIn: 10 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.Warn("redeem rate limit exceeded", "ip", identifier)
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many attempts, try again later"})
		},
	})
}

type checkoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

func (s *Service) handleCreateCheckoutSession(c echo.Context) error {
	var sel domain.Selection
	if err := c.Bind(&sel); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	session, err := s.checkout.CreateSession(c.Request().Context(), sel)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, checkoutResponse{RedirectURL: session.URL})
}

type sessionLookupResponse struct {
	Metadata      map[string]string `json:"metadata"`
	PaymentStatus string            `json:"paymentStatus"`
	PDFURL        string            `json:"pdfUrl,omitempty"`
	AssetURL      string            `json:"assetUrl,omitempty"`
	Code          string            `json:"code,omitempty"`
	Warning       string            `json:"warning,omitempty"`
}

// handleGetCheckoutSession backs the thank-you page. A paid session is
// fulfilled through the same idempotent path as the webhook, so whichever
// arrives first records the purchase and the other sees the same code.
func (s *Service) handleGetCheckoutSession(c echo.Context) error {
	sessionID := strings.TrimSpace(c.QueryParam("session_id"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing or invalid session_id"})
	}

	ctx := c.Request().Context()
	sess, err := s.sessions.GetCompletedSession(ctx, sessionID)
	if err != nil {
		slog.Error("failed to retrieve checkout session", "error", err, "session_id", sessionID)
		return errorResponse(c, err)
	}

	resp := sessionLookupResponse{
		Metadata:      sess.Metadata,
		PaymentStatus: sess.PaymentStatus,
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]string{}
	}

	if !sess.Paid() {
		return c.JSON(http.StatusOK, resp)
	}

	result, err := s.fulfiller.Fulfill(ctx, sess)
	if err != nil {
		return errorResponse(c, err)
	}

	resp.Code = result.Code
	resp.Warning = result.Warning
	resp.AssetURL = result.Purchase.Purchase.AssetUrl
	resp.PDFURL = result.Purchase.Purchase.PdfUrl.String

	return c.JSON(http.StatusOK, resp)
}

func (s *Service) handleGenerateHighRes(c echo.Context) error {
	var req mosaic.HighResRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	imageURL, err := s.mosaic.GenerateHighRes(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrMissingField) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing required fields."})
		}
		slog.Error("high-res image generation failed", "error", err, "project", req.ProjectName)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate high-res image."})
	}

	return c.JSON(http.StatusOK, map[string]string{"imageUrl": imageURL})
}

func (s *Service) handleHealth(c echo.Context) error {
	database := "connected"
	if s.storage != nil && s.storage.Ping() != nil {
		database = "unavailable"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "healthy",
		"environment": s.config.Environment,
		"database":    database,
	})
}

// errorResponse maps the domain error taxonomy onto HTTP statuses. Internal
// detail is only echoed back for caller input errors.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidVariant),
		errors.Is(err, domain.ErrMissingField),
		errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	case errors.Is(err, domain.ErrPayment):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Payment provider unavailable"})
	case errors.Is(err, domain.ErrMalformedContext):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "Purchase details could not be read"})
	case errors.Is(err, domain.ErrRecord), errors.Is(err, domain.ErrCodeExhausted):
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save purchase info"})
	default:
		slog.Error("unhandled request error", "error", err, "path", c.Path())
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
}
