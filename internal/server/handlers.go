package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/responsed/internal/compression"
	"github.com/fyrsmithlabs/responsed/pkg/engine"
)

// handlePlan computes generation parameters for one message.
func (s *Server) handlePlan(c echo.Context) error {
	var req engine.Request
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid plan request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	plan := s.engine.Plan(c.Request().Context(), req)
	return c.JSON(http.StatusOK, plan)
}

// CompressRequest is the request body for POST /api/v1/compress.
type CompressRequest struct {
	Text string `json:"text"`
	// Mode is none, light, moderate, aggressive, or auto. Empty selects
	// the server default.
	Mode string `json:"mode,omitempty"`
}

// handleCompress applies a compression mode (or auto-selects one) to text.
func (s *Server) handleCompress(c echo.Context) error {
	var req CompressRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid compress request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	mode := req.Mode
	if mode == "" {
		mode = s.config.DefaultCompressionMode
	}

	var res compression.Result
	if mode == "auto" {
		res = s.engine.AutoCompress(c.Request().Context(), req.Text)
	} else {
		if !compression.Mode(mode).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown compression mode")
		}
		res = s.engine.Compress(c.Request().Context(), req.Text, compression.Mode(mode))
	}

	return c.JSON(http.StatusOK, res)
}

// ValidateRequest is the request body for POST /api/v1/validate.
type ValidateRequest struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

// ValidateResponse is the response body for POST /api/v1/validate.
type ValidateResponse struct {
	Valid  bool           `json:"valid"`
	Data   map[string]any `json:"data,omitempty"`
	Errors []string       `json:"errors,omitempty"`
}

// handleValidate checks a candidate response against the template selected
// for the original message. Validation failures are results, not HTTP
// errors: the caller decides whether to retry generation.
func (s *Server) handleValidate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid validate request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	result := s.engine.Validate(req.Message, req.Response)
	return c.JSON(http.StatusOK, ValidateResponse{
		Valid:  result.Valid,
		Data:   result.Data,
		Errors: result.Errors,
	})
}
