package models

import (
	"errors"
	"fmt"
)

// ErrorKind tags the protocol failure taxonomy. Kinds are stable strings so
// they survive logging and journaling.
type ErrorKind string

const (
	ErrAgreementNotInitialized ErrorKind = "agreement_not_initialized"
	ErrInsufficientBalance     ErrorKind = "insufficient_balance"
	ErrLockRewardFailed        ErrorKind = "lock_reward_failed"
	ErrAccessGrantFailed       ErrorKind = "access_grant_failed"
	ErrEscrowRewardFailed      ErrorKind = "escrow_reward_failed"
	ErrServiceAgreementFailed  ErrorKind = "service_agreement_failed"
	ErrConditionNotFound       ErrorKind = "condition_not_found"
)

// AgreementError is a permanent protocol failure carrying the agreement id
// and the operation that failed as structured fields.
type AgreementError struct {
	Kind        ErrorKind
	AgreementID AgreementID
	Op          string
	Err         error
}

func (e *AgreementError) Error() string {
	msg := fmt.Sprintf("%s: agreement %s", e.Kind, e.AgreementID)
	if e.Op != "" {
		msg += " op " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AgreementError) Unwrap() error { return e.Err }

// NewAgreementError builds a tagged error for agreementID. err may be nil
// when the kind and operation say everything there is to say.
func NewAgreementError(kind ErrorKind, agreementID AgreementID, op string, err error) *AgreementError {
	return &AgreementError{Kind: kind, AgreementID: agreementID, Op: op, Err: err}
}

// IsKind reports whether err or anything it wraps is an AgreementError of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AgreementError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
