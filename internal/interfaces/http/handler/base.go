// Package handler exposes the gin handlers for the review HTTP API and the
// glue that maps domain errors onto the wire envelope.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/closebooks/backend/internal/domain/shared"
	"github.com/closebooks/backend/internal/interfaces/http/dto"
	"github.com/closebooks/backend/internal/interfaces/http/middleware"
)

// BaseHandler carries the response helpers shared by every handler in this
// package. Embed it and call the helpers instead of building envelopes by
// hand, so every error leaves the API in the same shape.
type BaseHandler struct{}

// requestID recovers the id minted by the RequestID middleware. The header
// fallback keeps handlers usable in tests that skip the middleware chain.
func requestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.HeaderRequestID)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, requestID(c)))
}

// Success wraps data in the standard envelope with a 200.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error envelope with an explicit status code.
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	respondError(c, status, code, message)
}

// BadRequest sends a 400 for requests the server could not accept.
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 for unknown rules or resources.
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 without leaking internal detail.
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 envelope carrying per-field details.
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID(c),
		details,
	))
}

// HandleError maps err onto the wire. Wrapped domain sentinels keep their
// code and the full wrapped message so callers see what exactly failed in
// their snapshot; anything else becomes an opaque 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		respondError(c, dto.GetHTTPStatus(code), code, err.Error())
		return
	}

	respondError(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
