package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeMissingField    = "MISSING_FIELD"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidInterval = "INVALID_INTERVAL"
	CodeSlotConflict    = "SLOT_CONFLICT"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_ERROR"
)

// User-facing notices. The wording is what people see in the flash banner.
const (
	MsgMissingField    = "All fields are required!"
	MsgInvalidInterval = "End time must be after start time!"
	MsgSlotConflict    = "Time slot conflicts with existing booking!"
	MsgNotFound        = "Booking not found!"
	MsgAdminOnly       = "Only admins can delete bookings!"
	MsgLoginRequired   = "Please log in first."
	MsgInternal        = "Something went wrong, please try again."
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// Is matches on Code so callers can compare against the sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details}
}

var (
	ErrMissingField    = &AppError{Code: CodeMissingField}
	ErrInvalidInput    = &AppError{Code: CodeInvalidInput}
	ErrInvalidInterval = &AppError{Code: CodeInvalidInterval}
	ErrSlotConflict    = &AppError{Code: CodeSlotConflict}
	ErrNotFound        = &AppError{Code: CodeNotFound}
	ErrUnauthorized    = &AppError{Code: CodeUnauthorized}
	ErrInternal        = &AppError{Code: CodeInternal}
)

func MissingField(fields []string) *AppError {
	e := &AppError{
		Code:       CodeMissingField,
		Message:    MsgMissingField,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
	if len(fields) > 0 {
		e.Details = map[string]any{"fields": fields}
	}
	return e
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func InvalidInterval() *AppError {
	return &AppError{
		Code:       CodeInvalidInterval,
		Message:    MsgInvalidInterval,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func SlotConflict(conflictingID int64) *AppError {
	e := &AppError{
		Code:       CodeSlotConflict,
		Message:    MsgSlotConflict,
		HTTPStatus: http.StatusConflict,
	}
	if conflictingID > 0 {
		e.Details = map[string]any{"conflicting_booking_id": conflictingID}
	}
	return e
}

func NotFoundWithID(resource string, id int64) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    MsgNotFound,
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:       CodeTooManyRequests,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError unwraps err into an AppError, treating anything unknown as
// an internal failure.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(MsgInternal, err)
}
