// Package mosaic talks to the external dice mosaic rendering service.
package mosaic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pipcasso/fulfillment/internal/domain"
)

const DefaultBaseURL = "https://dice-mosaic-backend.onrender.com"

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// HighResRequest is a grid already computed by the preview step.
type HighResRequest struct {
	Grid        json.RawMessage `json:"grid"`
	StyleID     int             `json:"styleId"`
	ProjectName string          `json:"projectName"`
}

type generateImageRequest struct {
	GridData    json.RawMessage `json:"grid_data"`
	StyleID     int             `json:"style_id"`
	ProjectName string          `json:"project_name"`
	Resolution  string          `json:"resolution"`
	Mode        string          `json:"mode"`
}

type generateImageResponse struct {
	ImageURL string `json:"image_url"`
}

// GenerateHighRes renders the grid at print resolution and returns an
// absolute URL to the image.
func (c *Client) GenerateHighRes(ctx context.Context, req HighResRequest) (string, error) {
	switch {
	case len(bytes.TrimSpace(req.Grid)) == 0 || string(bytes.TrimSpace(req.Grid)) == "null":
		return "", domain.MissingField("grid")
	case req.StyleID <= 0:
		return "", domain.MissingField("styleId")
	case strings.TrimSpace(req.ProjectName) == "":
		return "", domain.MissingField("projectName")
	}

	body, err := json.Marshal(generateImageRequest{
		GridData:    req.Grid,
		StyleID:     req.StyleID,
		ProjectName: req.ProjectName,
		Resolution:  "high",
		Mode:        "dice",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-image", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("mosaic service returned status %d: %s", resp.StatusCode, raw)
	}

	var out generateImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.ImageURL == "" {
		return "", fmt.Errorf("mosaic service returned no image url")
	}

	if strings.HasPrefix(out.ImageURL, "http://") || strings.HasPrefix(out.ImageURL, "https://") {
		return out.ImageURL, nil
	}
	return c.baseURL + "/" + strings.TrimLeft(out.ImageURL, "/"), nil
}
