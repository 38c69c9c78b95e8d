package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrMalformed          = errors.New("malformed token")
	ErrExpired            = errors.New("expired")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrNotAccepted        = errors.New("not accepted")
	ErrConflict           = errors.New("conflict")
	ErrResourceExhausted  = errors.New("resource exhausted")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSigning            = errors.New("signing unavailable")
	ErrKeyExists          = errors.New("key exists")
	ErrPartialSignup      = errors.New("partial signup")
)

// PartialSignupError reports a signup whose account document was written but
// whose credential document was not. The account is left in place for an
// operator to reconcile.
type PartialSignupError struct {
	AccountType AccountType
	AccountID   string
	Err         error
}

func (e *PartialSignupError) Error() string {
	return fmt.Sprintf("partial signup: %s account %s has no credential: %v", e.AccountType, e.AccountID, e.Err)
}

func (e *PartialSignupError) Unwrap() error { return e.Err }

func (e *PartialSignupError) Is(target error) bool { return target == ErrPartialSignup }
