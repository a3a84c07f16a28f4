package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	billdomain "github.com/railzwaylabs/dormitory/internal/bill/domain"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	meterdomain "github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	"github.com/railzwaylabs/dormitory/internal/promptpay"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	"github.com/railzwaylabs/dormitory/internal/scheduler"
	"github.com/railzwaylabs/dormitory/pkg/db/pagination"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type validationError struct {
	field   string
	code    string
	message string
}

func (e *validationError) Error() string { return e.message }

func newValidationError(field, code, message string) error {
	return &validationError{field: field, code: code, message: message}
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

// bindError turns a gin binding failure into a field level validation error
// when the validator produced one.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return newValidationError(fe.Field(), "invalid_"+fe.Tag(), fe.Error())
	}
	return invalidRequestError()
}

var (
	badRequestErrors = []error{
		ErrInvalidRequest,
		pagination.ErrInvalidCursor,
		dormitorydomain.ErrInvalidName,
		dormitorydomain.ErrInvalidDueDay,
		dormitorydomain.ErrInvalidChannel,
		dormitorydomain.ErrInvalidDestination,
		dormitorydomain.ErrInvalidEvent,
		dormitorydomain.ErrMissingCredential,
		dormitorydomain.ErrInvalidPayee,
		roomdomain.ErrInvalidRoomNumber,
		roomdomain.ErrInvalidRent,
		roomdomain.ErrInvalidTenantName,
		roomdomain.ErrInvalidStatus,
		meterdomain.ErrInvalidKind,
		meterdomain.ErrInvalidPeriod,
		meterdomain.ErrInvalidReading,
		billdomain.ErrInvalidAmount,
		billdomain.ErrInvalidPeriod,
		billdomain.ErrMissingRoom,
		billdomain.ErrMissingTenant,
		billdomain.ErrTenantRoomMismatch,
		billdomain.ErrMissingDueDate,
		billdomain.ErrMissingItems,
		billdomain.ErrInvalidItem,
		billdomain.ErrInvalidCategory,
		billdomain.ErrInvalidReading,
		billdomain.ErrInvalidMethod,
		billdomain.ErrInvalidStatus,
		promptpay.ErrInvalidPayee,
		promptpay.ErrInvalidAmount,
	}
	notFoundErrors = []error{
		dormitorydomain.ErrNotFound,
		dormitorydomain.ErrNotificationNotFound,
		dormitorydomain.ErrPromptPayNotFound,
		roomdomain.ErrRoomNotFound,
		roomdomain.ErrTenantNotFound,
		billdomain.ErrNotFound,
	}
	conflictErrors = []error{
		billdomain.ErrInvalidState,
		billdomain.ErrDuplicateBill,
		billdomain.ErrConcurrentUpdate,
		billdomain.ErrNotEligible,
		roomdomain.ErrDuplicateRoom,
		roomdomain.ErrRoomOccupied,
		meterdomain.ErrDuplicateReading,
		scheduler.ErrScanInProgress,
	}
)

// AbortWithError writes the error envelope for err and stops the chain.
// Unknown errors are reported as a generic 500.
func AbortWithError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func classify(err error) (int, errorBody) {
	var verr *validationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorBody{
			Code:    verr.code,
			Message: verr.message,
			Fields:  map[string]string{verr.field: verr.code},
		}
	}
	var notEligible *billdomain.NotEligibleError
	if errors.As(err, &notEligible) {
		return http.StatusConflict, errorBody{
			Code:    billdomain.ErrNotEligible.Error(),
			Message: notEligible.Reason,
		}
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized, sentinelBody(ErrUnauthorized)
	}
	if match := firstMatch(err, badRequestErrors); match != nil {
		return http.StatusBadRequest, sentinelBody(match)
	}
	if match := firstMatch(err, notFoundErrors); match != nil {
		return http.StatusNotFound, sentinelBody(match)
	}
	if match := firstMatch(err, conflictErrors); match != nil {
		return http.StatusConflict, sentinelBody(match)
	}
	return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
}

func firstMatch(err error, candidates []error) error {
	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			return candidate
		}
	}
	return nil
}

func sentinelBody(err error) errorBody {
	return errorBody{Code: err.Error(), Message: err.Error()}
}
