package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/kgee-io/kgee/pkg/extraction"
)

// maxExtractTextSize bounds the extraction request body text.
const maxExtractTextSize = 100_000

// ExtractRequest is the body for POST /api/v1/extract.
type ExtractRequest struct {
	Text       string `json:"text"`
	Domain     string `json:"domain,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// Extractor runs one document through the extraction pipeline.
type Extractor interface {
	ExtractDocument(ctx context.Context, text, domain, documentID string) (*extraction.Result, error)
}

// extractHandler handles POST /api/v1/extract: runs the configured
// extraction flow over one chunk of text and returns the validated
// entity/relation pair with the hygiene report.
func (s *Server) extractHandler(c *echo.Context) error {
	if s.extractor == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "extraction service not configured")
	}

	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return validationError("text must not be empty")
	}
	if len(req.Text) > maxExtractTextSize {
		return validationError("text exceeds the maximum size")
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.New().String()
	}

	result, err := s.extractor.ExtractDocument(c.Request().Context(), req.Text, req.Domain, documentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "extraction failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
