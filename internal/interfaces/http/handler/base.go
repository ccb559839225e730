package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
	csvimport "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/import"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/dto"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware,
// falling back to the header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	// Fallback to header when the middleware did not run
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// importErrorCodes maps upload rejections to API codes
var importErrorCodes = []struct {
	err  error
	code string
}{
	{csvimport.ErrEmptyFile, dto.ErrCodeImportEmptyFile},
	{csvimport.ErrInvalidEncoding, dto.ErrCodeImportEncoding},
	{csvimport.ErrMissingHeader, dto.ErrCodeImportMissingHeader},
	{csvimport.ErrNoDataRows, dto.ErrCodeImportNoDataRows},
	{csvimport.ErrTooManyRows, dto.ErrCodeImportTooManyRows},
}

// HandleError converts service errors to HTTP responses. Unknown errors are
// logged and reported as internal errors without their text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var shapeErr *quote.ShapeError
	if errors.As(err, &shapeErr) {
		h.ErrorWithCode(c, dto.ErrCodeUnsupportedShape, shapeErr.Error())
		return
	}

	for _, m := range importErrorCodes {
		if errors.Is(err, m.err) {
			h.ErrorWithCode(c, m.code, m.err.Error())
			return
		}
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
		return
	}

	// Check for domain error using errors.As for wrapped error support
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		if status := dto.GetHTTPStatus(code); status >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
		}
		h.ErrorWithCode(c, code, domainErr.Message)
		return
	}

	// Unknown error type - return as internal error
	logger.L(c.Request.Context()).Error("Unexpected error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}
