package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/thayfamily/checklive/model"
)

type ErrorCode string

const (
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrBadRequest         ErrorCode = "BAD_REQUEST"
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrTransferInProgress ErrorCode = model.CodeTransferInProgress
	ErrTimeout            ErrorCode = model.CodeTimeout
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromLookupError turns an error from the record or team lookups into an APIError.
// Misses become NOT_FOUND; anything else is a failure reaching the spreadsheet.
func FromLookupError(err error) APIError {
	var apiErr APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, model.ErrRecordNotFound):
		return NewAPIError(ErrNotFound, model.ErrRecordNotFound.Error(), nil)
	case errors.Is(err, model.ErrTeamNotFound):
		return NewAPIError(ErrNotFound, model.ErrTeamNotFound.Error(), nil)
	default:
		return NewAPIError(ErrUpstream, "could not read the spreadsheet, try again later", err.Error())
	}
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrTransferInProgress:
			return http.StatusConflict
		case ErrInvalidInput, ErrBadRequest:
			return http.StatusBadRequest
		case ErrUpstream:
			return http.StatusBadGateway
		case ErrTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// TransferHTTPStatus picks the response status for a transfer outcome. Partial success
// is still a 200: the invite exists and the caller needs the link.
func TransferHTTPStatus(out model.TransferOutcome) int {
	if !out.Failed() {
		return http.StatusOK
	}
	switch out.Code {
	case model.CodeTransferInProgress:
		return http.StatusConflict
	case model.CodeTimeout:
		return http.StatusGatewayTimeout
	case model.CodeRecordNotFound:
		return http.StatusNotFound
	case model.CodeNoCredentials:
		return http.StatusServiceUnavailable
	case model.CodeBlocked, model.CodeVerification, model.CodeInviteFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
