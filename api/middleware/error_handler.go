// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10" // Import validator for binding errors
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/benmann/supabase/internal/auth"
	"github.com/benmann/supabase/internal/flags"
	"github.com/benmann/supabase/internal/gateway"
	"github.com/benmann/supabase/internal/meta"
	"github.com/benmann/supabase/internal/mutation"
	"github.com/benmann/supabase/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
// It is the single notification channel: handlers attach errors via
// c.Error and never write error JSON themselves, so the surrounding view
// stays interactive after any failure.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// We only handle the last error for the response.
		err := c.Errors.Last().Err

		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		switch {
		case errors.Is(err, meta.ErrEntityNotFound),
			errors.Is(err, storage.ErrUserNotFound),
			errors.Is(err, storage.ErrAPIKeyNotFound),
			errors.Is(err, flags.ErrUnknownFlag):
			statusCode = http.StatusNotFound
			userMessage = err.Error()

		case errors.Is(err, storage.ErrEmailExists):
			statusCode = http.StatusConflict
			userMessage = err.Error()

		case errors.Is(err, mutation.ErrPrimaryKeyNotFound):
			statusCode = http.StatusBadRequest
			userMessage = err.Error()

		case errors.Is(err, gateway.ErrRemoteFailure):
			statusCode = http.StatusBadGateway
			userMessage = displayMessage(err)

		case errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenClaimsInvalid),
			errors.Is(err, auth.ErrUnauthorized),
			errors.Is(err, auth.ErrUnexpectedSigningMethod):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."

		case errors.Is(err, auth.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."

		default:
			if validationErrs, ok := err.(validator.ValidationErrors); ok {
				statusCode = http.StatusBadRequest
				userMessage = "Validation failed. Please check your input."
				for _, fe := range validationErrs {
					customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
				}
				break
			}

			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Printf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Printf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}

// displayMessage coerces a remote failure into something displayable:
// prefer the server's structured detail field, fall back to its message,
// fall back to the raw error text.
func displayMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			return pgErr.Detail
		}
		if pgErr.Message != "" {
			return pgErr.Message
		}
	}
	return err.Error()
}
