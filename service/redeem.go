package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/redemption"
)

type redeemRequest struct {
	Email  string `json:"email"`
	Code   string `json:"code"`
	Format string `json:"format"`
}

type redeemResponse struct {
	AssetURL    string `json:"assetUrl"`
	PDFURL      string `json:"pdfUrl,omitempty"`
	ProjectName string `json:"projectName"`
	Code        string `json:"code"`
}

func (s *Service) handleRedeem(c echo.Context) error {
	var req redeemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing email or code"})
	}

	r, err := s.redeemer.Redeem(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return redeemError(c, err)
	}

	return c.JSON(http.StatusOK, redeemResponse{
		AssetURL:    r.AssetURL,
		PDFURL:      r.PDFURL,
		ProjectName: r.ProjectName,
		Code:        r.Code,
	})
}

// handleRedeemCard renders a printable card for a redeemed purchase.
func (s *Service) handleRedeemCard(c echo.Context) error {
	var req redeemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing email or code"})
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "png" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "format must be pdf or png"})
	}

	r, err := s.redeemer.Redeem(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return redeemError(c, err)
	}

	card := redemption.Card{
		ProjectName: r.ProjectName,
		Code:        r.Code,
		RedeemURL:   s.config.RedeemURL(),
	}

	var (
		body        []byte
		contentType string
	)
	if format == "png" {
		body, err = redemption.RenderPNG(card)
		contentType = "image/png"
	} else {
		body, err = redemption.RenderPDF(card)
		contentType = "application/pdf"
	}
	if err != nil {
		slog.Error("failed to render redemption card", "error", err, "code", r.Code, "format", format)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to render card"})
	}

	filename := fmt.Sprintf("pipcasso-%s.%s", strings.ToLower(r.Code), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, body)
}

// redeemError never says which half of the pair was wrong.
func redeemError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	slog.Error("redeem lookup failed", "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}
