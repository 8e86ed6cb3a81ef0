package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error kinds classify failures for transport mapping and caller handling.
const (
	KindValidation          = "validation"
	KindAuthentication      = "authentication"
	KindAuthorization       = "authorization"
	KindNotFound            = "not_found"
	KindConflict            = "conflict"
	KindInsufficientBalance = "insufficient_balance"
	KindPaymentProcessor    = "payment_processor"
	KindDomainState         = "domain_state"
	KindInternal            = "internal"
)

// Error is the service-level error type carrying a kind for the boundary.
type Error struct {
	Kind    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func AuthenticationError(msg string) error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func AuthorizationError(format string, args ...interface{}) error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(resource, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func ConflictError(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func InsufficientBalanceError(balance, required float64) error {
	return &Error{
		Kind:    KindInsufficientBalance,
		Message: fmt.Sprintf("insufficient token balance: have %.2f, need %.2f", balance, required),
	}
}

func PaymentProcessorError(msg string, err error) error {
	return &Error{Kind: KindPaymentProcessor, Message: msg, Err: err}
}

func DomainStateError(format string, args ...interface{}) error {
	return &Error{Kind: KindDomainState, Message: fmt.Sprintf(format, args...)}
}

func InternalError(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// statusFor maps error kinds to HTTP statuses.
func statusFor(kind string) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInsufficientBalance:
		return http.StatusPaymentRequired
	case KindPaymentProcessor:
		return http.StatusBadGateway
	case KindDomainState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Code:    KindInternal,
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RespondError writes a structured JSON failure derived from the error's
// kind. Internal and database failures are returned as a generic message
// without implementation detail.
func RespondError(c *gin.Context, err error) {
	logger := GetLogger()
	kind := KindOf(err)
	status := statusFor(kind)

	if kind == KindInternal {
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Code: kind, Message: "Internal Server Error"})
		return
	}

	logger.Warn("Request rejected",
		zap.String("path", c.FullPath()),
		zap.String("kind", kind),
		zap.Error(err),
	)

	var appErr *Error
	msg := err.Error()
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	c.JSON(status, ErrorResponse{Code: kind, Message: msg})
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Code: KindValidation, Message: message, Details: details})
}
