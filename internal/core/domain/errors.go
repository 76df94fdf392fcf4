package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable machine-readable code surfaced to API callers.
type ErrorCode string

const (
	CodeKYCNotApproved      ErrorCode = "KYC_NOT_APPROVED"
	CodeLimitExceeded       ErrorCode = "LIMIT_EXCEEDED"
	CodeWalletNotConfigured ErrorCode = "WALLET_NOT_CONFIGURED"
	CodeInvalidWallet       ErrorCode = "INVALID_WALLET"
	CodeInvalidCurrency     ErrorCode = "INVALID_CURRENCY"
	CodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	CodeDomainNotAllowed    ErrorCode = "DOMAIN_NOT_ALLOWED"
	CodeAlreadyProcessed    ErrorCode = "ALREADY_PROCESSED"
	CodeNotRefundable       ErrorCode = "NOT_REFUNDABLE"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeVerificationFailed  ErrorCode = "VERIFICATION_FAILED"
	CodeChainUnavailable    ErrorCode = "CHAIN_UNAVAILABLE"
	CodePendingReview       ErrorCode = "PENDING_REVIEW"
	CodeExpired             ErrorCode = "EXPIRED"
	CodeInvalidPlan         ErrorCode = "INVALID_PLAN"
)

// Rejection fails a request closed before any side effect (spec-level
// 4xx class). Conflict guards idempotency on status transitions.
// Retryable marks ambiguous external failures the caller may retry.
type Kind int

const (
	KindRejection Kind = iota
	KindConflict
	KindRetryable
	KindNotFound
)

// Error is the engine's error type: a stable code, a kind that maps to
// an HTTP class, and an optional wrapped cause.
type Error struct {
	Code    ErrorCode
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Rejectf builds a fail-closed rejection.
func Rejectf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Kind: KindRejection, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds an idempotency-guard conflict.
func Conflictf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Retryablef wraps an external failure the caller should retry.
func Retryablef(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Kind: KindRetryable, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Sentinel instances used across packages.
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Kind: KindNotFound, Message: "transaction not found"}
	ErrWalletNotConfigured = &Error{Code: CodeWalletNotConfigured, Kind: KindRejection, Message: "merchant payout wallet not configured"}
	ErrAlreadyProcessed    = &Error{Code: CodeAlreadyProcessed, Kind: KindConflict, Message: "transaction already processed"}
	ErrNotRefundable       = &Error{Code: CodeNotRefundable, Kind: KindConflict, Message: "only completed transactions can be refunded"}
)

// AsError extracts an *Error from err's chain, if present.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
