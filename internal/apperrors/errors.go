package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// FieldError names one offending field and what is wrong with it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Details interface{}  `json:"details,omitempty"`
	Err     error        `json:"-"`
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

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation reports a single missing or malformed field.
func Validation(field, message string) *Error {
	return &Error{
		Code:    http.StatusBadRequest,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// ValidationFields reports several field problems at once.
func ValidationFields(message string, fields []FieldError) *Error {
	return &Error{Code: http.StatusBadRequest, Message: message, Fields: fields}
}

// Parse reports a payload that could not be decoded.
func Parse(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// WithDetails attaches extra context such as the offending import row.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// As returns err as *Error when it is one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromPersistence maps storage and validation failures to application errors.
// Errors that are already *Error pass through untouched.
func FromPersistence(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("Order not found")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return ValidationFields("Validation failed", fields)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ValidationFields("Validation failed", []FieldError{{Field: fieldOf(pgErr), Message: "value already exists"}})
		case "23502":
			return ValidationFields("Validation failed", []FieldError{{Field: fieldOf(pgErr), Message: "is required"}})
		case "23514", "22P02", "22001":
			return ValidationFields("Validation failed", []FieldError{{Field: fieldOf(pgErr), Message: pgErr.Message}})
		}
	}

	return Internal(err)
}

func fieldOf(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return pgErr.ConstraintName
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
