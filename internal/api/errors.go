package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/sprout-api/internal/api/shared"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/service/auth"
	"github.com/phrazzld/sprout-api/internal/service/schedule"
	"github.com/phrazzld/sprout-api/internal/store"
)

// ErrUnauthenticated is reported when a protected handler runs without an
// owner in the request context.
var ErrUnauthenticated = errors.New("unauthenticated request")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	case errors.Is(err, schedule.ErrRuleNotOwned),
		errors.Is(err, schedule.ErrOccurrenceNotOwned):
		return http.StatusForbidden

	case errors.Is(err, schedule.ErrRuleNotFound),
		errors.Is(err, schedule.ErrOccurrenceNotFound),
		errors.Is(err, schedule.ErrNoPendingOccurrence),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	case store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var fieldErr *domain.ValidationError
	if errors.As(err, &fieldErr) {
		return fmt.Sprintf("Invalid %s: %s", fieldErr.Field, fieldErr.Message)
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return SanitizeValidationError(ve)
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, schedule.ErrRuleNotOwned):
		return "You do not own this schedule"
	case errors.Is(err, schedule.ErrOccurrenceNotOwned):
		return "You do not own this task"
	case errors.Is(err, schedule.ErrRuleNotFound):
		return "Schedule not found"
	case errors.Is(err, schedule.ErrOccurrenceNotFound):
		return "Task not found"
	case errors.Is(err, schedule.ErrNoPendingOccurrence):
		return "Schedule has no pending task"
	case store.IsNotFoundError(err):
		return "Resource not found"
	case store.IsDuplicateError(err):
		return "Resource already exists"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"
	}
	return "An unexpected error occurred"
}

// SanitizeValidationError turns struct-tag validation failures into a
// message naming the first offending field.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// defaultMsg replaces the generic message for server errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}
