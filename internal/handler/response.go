package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dockmatch/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found"
	case errors.Is(err, domain.ErrDeliveryNoteNotFound):
		return http.StatusNotFound, "DELIVERY_NOTE_NOT_FOUND", "delivery note not found"
	case errors.Is(err, domain.ErrMatchingPairNotFound):
		return http.StatusNotFound, "MATCHING_PAIR_NOT_FOUND", "no reconciliation record for this invoice"
	case errors.Is(err, domain.ErrToleranceProfileNotFound):
		return http.StatusNotFound, "TOLERANCE_PROFILE_NOT_FOUND", "no tolerance profile stored for this venue"
	case errors.Is(err, domain.ErrInvalidTolerances):
		return http.StatusBadRequest, "INVALID_TOLERANCES", "tolerance configuration is invalid"
	case errors.Is(err, domain.ErrMatchConflict):
		return http.StatusConflict, "MATCH_CONFLICT", "invoice is already confirmed against a different note; reject it first"
	case errors.Is(err, domain.ErrNoteAlreadyClaimed):
		return http.StatusConflict, "NOTE_ALREADY_CLAIMED", "delivery note is already consumed by another invoice"
	case errors.Is(err, domain.ErrInvalidRecord):
		return http.StatusBadRequest, "INVALID_RECORD", "record is missing required identity fields"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		logrus.WithField("request_id", requestID).WithError(err).Error("internal error")
	}
	RespondError(c, status, code, msg)
}
