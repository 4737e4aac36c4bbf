package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Error codes surfaced to API callers.
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConflict            = "CONFLICT"
	CodeDuplicateEmail      = "DUPLICATE_EMAIL"
	CodeDuplicateMint       = "DUPLICATE_MINT"
	CodeResaleLimitExceeded = "RESALE_LIMIT_EXCEEDED"
	CodeMarkupExceeded      = "MARKUP_EXCEEDED"
	CodeLedgerRejected      = "LEDGER_REJECTED"
	CodeMintFailed          = "MINT_FAILED"
	CodeLedgerUnavailable   = "LEDGER_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(message string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError(CodeNotFound, message, http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewDuplicateEmail() error {
	return NewDomainError(CodeDuplicateEmail, "User already exists", http.StatusConflict, nil)
}

func NewDuplicateMint(mint string) error {
	return NewDomainError(CodeDuplicateMint, "ticket already registered", http.StatusConflict,
		map[string]any{"mint": mint})
}

// NewResaleLimitExceeded reports a ticket that reached the resale ceiling.
func NewResaleLimitExceeded(maxResales int, maxPrice decimal.Decimal) error {
	return NewDomainError(CodeResaleLimitExceeded,
		fmt.Sprintf("Maximum resales (%d) exceeded", maxResales),
		http.StatusUnprocessableEntity,
		map[string]any{"max_resales": maxResales, "max_allowed_price": maxPrice})
}

// NewMarkupExceeded reports a listing price above the markup ceiling.
func NewMarkupExceeded(maxPercent int, maxPrice decimal.Decimal) error {
	return NewDomainError(CodeMarkupExceeded,
		fmt.Sprintf("Price exceeds %d%% markup limit. Max: %s SOL", maxPercent, maxPrice.StringFixed(3)),
		http.StatusUnprocessableEntity,
		map[string]any{"max_allowed_price": maxPrice})
}

func NewLedgerRejected(kind, message string) error {
	return NewDomainError(CodeLedgerRejected, message, http.StatusUnprocessableEntity,
		map[string]any{"kind": kind})
}

func NewMintFailed(err error) error {
	return &DomainError{
		Code:       CodeMintFailed,
		Message:    "ticket minting failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewLedgerUnavailable(err error) error {
	return &DomainError{
		Code:       CodeLedgerUnavailable,
		Message:    "ledger operation failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
