package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/newsexpress/internal/auth/domain"
	"github.com/smallbiznis/newsexpress/internal/authorization"
	commissiondomain "github.com/smallbiznis/newsexpress/internal/commission/domain"
	complaintdomain "github.com/smallbiznis/newsexpress/internal/complaint/domain"
	customerdomain "github.com/smallbiznis/newsexpress/internal/customer/domain"
	deliverydomain "github.com/smallbiznis/newsexpress/internal/delivery/domain"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
	notificationdomain "github.com/smallbiznis/newsexpress/internal/notification/domain"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	publicationdomain "github.com/smallbiznis/newsexpress/internal/publication/domain"
	subscriptiondomain "github.com/smallbiznis/newsexpress/internal/subscription/domain"
	"github.com/smallbiznis/newsexpress/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrUserInactive),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, notificationdomain.ErrSenderMissing):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return payload.Type, ""
	}
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken):
		return true
	case isAuthValidationError(err),
		isPublicationValidationError(err),
		isSubscriptionValidationError(err),
		isPaymentValidationError(err),
		isDeliveryValidationError(err),
		isCommissionValidationError(err),
		isComplaintValidationError(err),
		isNotificationValidationError(err),
		isReportValidationError(err),
		isCustomerValidationError(err),
		isEmployeeValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, publicationdomain.ErrPublicationInUse),
		errors.Is(err, publicationdomain.ErrPublicationHasUsage),
		errors.Is(err, deliverydomain.ErrAlreadyScheduled),
		errors.Is(err, paymentdomain.ErrInvalidTransition),
		errors.Is(err, complaintdomain.ErrInvalidTransition),
		errors.Is(err, commissiondomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrUserExists):
		return "email already registered"
	case errors.Is(err, publicationdomain.ErrPublicationInUse),
		errors.Is(err, publicationdomain.ErrPublicationHasUsage):
		return "publication is referenced by subscriptions"
	case errors.Is(err, deliverydomain.ErrAlreadyScheduled):
		return "delivery already scheduled for that date"
	case errors.Is(err, paymentdomain.ErrInvalidTransition),
		errors.Is(err, complaintdomain.ErrInvalidTransition),
		errors.Is(err, commissiondomain.ErrInvalidTransition):
		return "status transition not allowed"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, publicationdomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrPauseNotPending),
		errors.Is(err, subscriptiondomain.ErrCustomerNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrSubscriptionNotFound),
		errors.Is(err, deliverydomain.ErrNotFound),
		errors.Is(err, deliverydomain.ErrSubscriptionNotFound),
		errors.Is(err, deliverydomain.ErrIssueNotFound),
		errors.Is(err, commissiondomain.ErrNotFound),
		errors.Is(err, complaintdomain.ErrNotFound),
		errors.Is(err, complaintdomain.ErrNotResolvable),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, employeedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, subscriptiondomain.ErrPauseNotPending):
		return "no pending pause request"
	case errors.Is(err, complaintdomain.ErrNotResolvable):
		return "complaint not found or already resolved"
	default:
		return "not found"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "invalid_page_token"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if field, ok := strings.CutPrefix(code, "invalid_"); ok {
		return field
	}
	if strings.HasPrefix(code, "pause_") {
		return "pause"
	}
	switch code {
	case "subscription_not_active", "publication_unavailable", "customer_inactive":
		return strings.SplitN(code, "_", 2)[0]
	case "not_delivery_person", "employee_inactive":
		return "delivery_person_id"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "pause_start_not_in_future":
		return "pause must start after today"
	case "pause_too_short":
		return "pause must last at least the minimum number of days"
	case "pause_too_long":
		return "pause must not exceed the maximum number of days"
	case "pause_after_subscription_end":
		return "pause must start before the subscription ends"
	case "pause_already_pending":
		return "a pause request is already pending"
	case "subscription_not_active":
		return "subscription is not active"
	case "publication_unavailable":
		return "publication is not available"
	default:
		return "invalid value"
	}
}

func isAuthValidationError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidPassword),
		errors.Is(err, authdomain.ErrInvalidDisplayName),
		errors.Is(err, authdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}
