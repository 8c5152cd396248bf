// Package gelato submits print orders to the Gelato order API.
package gelato

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/sony/gobreaker/v2"
)

const DefaultBaseURL = "https://order.gelatoapis.com"

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*OrderResponse]
}

type File struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type Item struct {
	ItemReferenceID string `json:"itemReferenceId"`
	ProductUID      string `json:"productUid"`
	Files           []File `json:"files"`
	Quantity        int64  `json:"quantity"`
}

type Address struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	PostCode     string `json:"postCode"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
}

type OrderRequest struct {
	OrderType           string  `json:"orderType"`
	OrderReferenceID    string  `json:"orderReferenceId"`
	CustomerReferenceID string  `json:"customerReferenceId"`
	Currency            string  `json:"currency"`
	Items               []Item  `json:"items"`
	ShippingAddress     Address `json:"shippingAddress"`
}

type OrderResponse struct {
	ID               string `json:"id"`
	OrderReferenceID string `json:"orderReferenceId"`
	FulfillmentState string `json:"fulfillmentStatus"`
}

type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[*OrderResponse](gobreaker.Settings{
			Name:        "gelato",
			MaxRequests: 1,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// A 4xx is a bad order, not an unhealthy provider.
			IsSuccessful: func(err error) bool {
				var rejected *domain.ProviderRejectedError
				if errors.As(err, &rejected) {
					return rejected.Status >= 400 && rejected.Status < 500
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("print provider circuit changed state", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// BuildOrderRequest maps a print order onto Gelato's order schema.
func BuildOrderRequest(order domain.PrintOrder) OrderRequest {
	qty := order.Quantity
	if qty < 1 {
		qty = 1
	}

	return OrderRequest{
		OrderType:           "order",
		OrderReferenceID:    order.SourceSessionID,
		CustomerReferenceID: order.Email,
		Currency:            "USD",
		Items: []Item{{
			ItemReferenceID: order.SourceSessionID + "-1",
			ProductUID:      order.SKU,
			Files:           []File{{Type: "default", URL: order.ImageURL}},
			Quantity:        qty,
		}},
		ShippingAddress: Address{
			FirstName:    order.FirstName,
			LastName:     order.LastName,
			AddressLine1: order.Address.Line1,
			AddressLine2: order.Address.Line2,
			City:         order.Address.City,
			PostCode:     order.Address.PostalCode,
			State:        order.Address.State,
			Country:      order.Address.Country,
			Email:        order.Email,
			Phone:        order.Address.Phone,
		},
	}
}

// CreateOrder submits one order and returns Gelato's order id.
func (c *Client) CreateOrder(ctx context.Context, order domain.PrintOrder) (string, error) {
	resp, err := c.breaker.Execute(func() (*OrderResponse, error) {
		return c.createOrder(ctx, BuildOrderRequest(order))
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &domain.ProviderRejectedError{Details: "print provider unavailable: " + err.Error()}
	}
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) createOrder(ctx context.Context, body OrderRequest) (*OrderResponse, error) {
	resp, err := c.makeRequest(ctx, http.MethodPost, "/v4/orders", body)
	if err != nil {
		var rejected *domain.ProviderRejectedError
		if errors.As(err, &rejected) {
			return nil, rejected
		}
		return nil, &domain.ProviderRejectedError{Details: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderRejectedError{
			Status:      resp.StatusCode,
			Details:     fmt.Sprintf("failed to read response: %v", err),
			Unconfirmed: resp.StatusCode >= 200 && resp.StatusCode < 300,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ProviderRejectedError{Status: resp.StatusCode, Details: string(raw)}
	}

	var out OrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &domain.ProviderRejectedError{Status: resp.StatusCode, Details: fmt.Sprintf("failed to decode response: %v", err), Unconfirmed: true}
	}
	if out.ID == "" {
		return nil, &domain.ProviderRejectedError{Status: resp.StatusCode, Details: "response carried no order id", Unconfirmed: true}
	}

	return &out, nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	// Once the request is on the wire a transport error says nothing about
	// whether Gelato created the order.
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderRejectedError{Details: "request failed: " + err.Error(), Unconfirmed: true}
	}

	return resp, nil
}
