package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/brand"
	"github.com/phrazzld/scribe-api/internal/csvimport"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/domainmetrics"
	"github.com/phrazzld/scribe-api/internal/generation"
	"github.com/phrazzld/scribe-api/internal/platform/brandbooster"
	"github.com/phrazzld/scribe-api/internal/platform/semrush"
	"github.com/phrazzld/scribe-api/internal/service"
)

// ErrInvalidID is returned when a path parameter is not a UUID.
var ErrInvalidID = errors.New("invalid id")

// MapErrorToStatusCode maps internal errors to HTTP status codes so clients
// never see internal error types.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidEditionCount),
		errors.Is(err, csvimport.ErrMalformedCSV),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, domainmetrics.ErrNoDomains),
		errors.Is(err, domainmetrics.ErrTooManyDomains),
		errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest

	// Well-formed but unusable input
	case errors.Is(err, service.ErrNoValidRequests),
		errors.Is(err, csvimport.ErrNoValidRows),
		errors.Is(err, brand.ErrBrandNotIdentified),
		errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrBlogNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrTaskInProgress),
		errors.Is(err, service.ErrNothingToExport):
		return http.StatusConflict

	// Upstream errors
	case errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, service.ErrServiceClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, brandbooster.ErrUpstream),
		errors.Is(err, semrush.ErrUpstream),
		errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err. Messages built
// from our own validation sentinels are passed through; everything else gets
// a fixed description.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidEditionCount),
		errors.Is(err, csvimport.ErrMalformedCSV),
		errors.Is(err, csvimport.ErrNoValidRows),
		errors.Is(err, domainmetrics.ErrNoDomains),
		errors.Is(err, domainmetrics.ErrTooManyDomains),
		errors.Is(err, brand.ErrBrandNotIdentified):
		return err.Error()

	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, ErrInvalidID):
		return "Invalid id"
	case errors.Is(err, service.ErrNoValidRequests):
		return "No valid blog requests"
	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrBlogNotFound):
		return "Blog not found"
	case errors.Is(err, service.ErrTaskInProgress):
		return "Task is still in progress"
	case errors.Is(err, service.ErrNothingToExport):
		return "There are no blogs to export"
	case errors.Is(err, service.ErrServiceClosed):
		return "Server is shutting down"
	case errors.Is(err, generation.ErrContentBlocked):
		return "Content was blocked by safety filters"
	case errors.Is(err, generation.ErrTransientFailure):
		return "The language model is temporarily unavailable"
	case errors.Is(err, brandbooster.ErrUpstream),
		errors.Is(err, semrush.ErrUpstream),
		errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse):
		return "An upstream service failed"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err. For
// internal errors defaultMsg, when set, replaces the generic message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}
