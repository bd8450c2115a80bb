package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/domain/srs"
	"github.com/phrazzld/studykit-api/internal/generation"
	"github.com/phrazzld/studykit-api/internal/service"
	"github.com/phrazzld/studykit-api/internal/service/auth"
	"github.com/phrazzld/studykit-api/internal/service/card"
	"github.com/phrazzld/studykit-api/internal/service/review"
	"github.com/phrazzld/studykit-api/internal/service/tutor"
	"github.com/phrazzld/studykit-api/internal/service/usage"
	"github.com/phrazzld/studykit-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes based on
// the error chain. It never inspects error strings.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, usage.ErrUnknownFeature):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Quotas
	case errors.Is(err, usage.ErrLimitReached):
		return http.StatusTooManyRequests

	// Bad request errors
	case isValidationError(err):
		return http.StatusBadRequest

	// Generation outcomes
	case errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, card.ErrNoCardsGenerated):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generation.ErrTransientFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrGenerationFailed):
		return http.StatusBadGateway

	// Special cases
	case errors.Is(err, review.ErrNoCardsDue):
		return http.StatusNoContent

	default:
		return http.StatusInternalServerError
	}
}

func isValidationError(err error) bool {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return true
	}

	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrInvalidID,
		domain.ErrEmptyContent,
		domain.ErrInvalidCardContent,
		domain.ErrInvalidFeature,
		domain.ErrEmptyUserID,
		domain.ErrInvalidEmail,
		domain.ErrEmptyEmail,
		domain.ErrPasswordTooShort,
		domain.ErrPasswordTooLong,
		domain.ErrEmptyPassword,
		domain.ErrInvalidPlan,
		domain.ErrCardContentEmpty,
		domain.ErrCardContentInvalid,
		domain.ErrCardSourceInvalid,
		store.ErrInvalidEntity,
		review.ErrInvalidDays,
		tutor.ErrInvalidPlanDays,
		tutor.ErrInvalidHistory,
		generation.ErrEmptyInput,
		shared.ErrEmptyBody,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetSafeErrorMessage returns a user facing message for err that does not
// leak internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, auth.ErrMissingToken):
		return "Token required"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this card"

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, usage.ErrUnknownFeature):
		return "Unknown feature"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	// Quotas
	case errors.Is(err, usage.ErrLimitReached):
		return "Usage limit reached for this feature"

	// Bad request errors
	case errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong),
		errors.Is(err, domain.ErrEmptyPassword):
		return fmt.Sprintf("Password must be between %d and %d characters",
			domain.MinPasswordLength, domain.MaxPasswordLength)

	case errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrEmptyEmail):
		return "Invalid email"

	case errors.Is(err, domain.ErrCardContentEmpty),
		errors.Is(err, domain.ErrCardContentInvalid),
		errors.Is(err, domain.ErrInvalidCardContent):
		return "Card content must be a JSON object with front and back"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, review.ErrInvalidDays):
		return fmt.Sprintf("Days must be between 1 and %d", srs.MaxPostponeDays)

	case errors.Is(err, tutor.ErrInvalidPlanDays):
		return fmt.Sprintf("Days must be between %d and %d", tutor.MinPlanDays, tutor.MaxPlanDays)

	case errors.Is(err, tutor.ErrInvalidHistory):
		return "Invalid chat history"

	case errors.Is(err, generation.ErrEmptyInput):
		return "Input text is required"

	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	// Generation outcomes
	case errors.Is(err, generation.ErrContentBlocked):
		return "The content was rejected by the AI provider"

	case errors.Is(err, card.ErrNoCardsGenerated):
		return "No flashcards could be generated from this text"

	case errors.Is(err, generation.ErrTransientFailure):
		return "The AI provider is temporarily unavailable"

	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrGenerationFailed):
		return "The AI provider returned an unusable response"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. A non-empty message
// overrides the default safe message. Limit reached responses carry a
// Retry-After header when the quota window end is known.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}

	var limitErr *usage.LimitReachedError
	if errors.As(err, &limitErr) && !limitErr.Decision.ResetAt.IsZero() {
		w.Header().Set("Retry-After", retryAfterSeconds(limitErr.Decision.ResetAt, time.Now()))
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

func retryAfterSeconds(resetAt, now time.Time) string {
	seconds := math.Ceil(resetAt.Sub(now).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(int(seconds))
}

// SanitizeValidationError turns a request validation error into a user
// facing message naming the first failing field.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "too short or too small"
	case "max", "lte":
		return "too long or too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid ID"
	default:
		return "validation failed"
	}
}
