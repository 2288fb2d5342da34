package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Error classes. Every error returned by the engine wraps exactly one of these,
// callers use errors.Is to decide how to handle it.
var (
	ErrGeneral           = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound  = errors.New("there is no")
	ErrValidation        = errors.New("invalid input")
	ErrConflict          = errors.New("conflict with existing data")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// classifiedError is an error with its own message that belongs to one of the error classes.
type classifiedError struct {
	class error
	msg   string
}

func (e classifiedError) Error() string {
	return e.msg
}

func (e classifiedError) Unwrap() error {
	return e.class
}

func newError(class error, msg string) error {
	return classifiedError{class: class, msg: msg}
}

// Validation errors
var (
	ErrAmountNegative           = newError(ErrValidation, "amounts must not be negative")
	ErrAmountNotPositive        = newError(ErrValidation, "the amount must be greater than zero")
	ErrSameEnvelope             = newError(ErrValidation, "source and destination envelope must be different")
	ErrEnvelopesNotInSamePeriod = newError(ErrValidation, "funds can only be transferred between envelopes of the same budget and period")
	ErrRolloverModeInvalid      = newError(ErrValidation, "the rollover mode must be one of unlimited, limited or reset")
	ErrFrequencyInvalid         = newError(ErrValidation, "the frequency must be one of weekly, monthly, quarterly, yearly or custom")
	ErrIntervalNotPositive      = newError(ErrValidation, "the interval must be greater than zero")
	ErrTemplateStartNotSet      = newError(ErrValidation, "the start date of the period template must be set")
	ErrTemplateEndBeforeStart   = newError(ErrValidation, "the end date of the period template must be after its start date")
	ErrPeriodTransitionInvalid  = newError(ErrValidation, "this status transition is not allowed for the period")
	ErrPeriodNotOpen            = newError(ErrValidation, "allocations can only be changed in draft or active periods")
	ErrPeriodMismatch           = newError(ErrValidation, "the period does not belong to this budget")
	ErrCategoryMismatch         = newError(ErrValidation, "the category does not belong to this budget")
	ErrTargetNegative           = newError(ErrValidation, "the target amount must not be negative")
	ErrMaxRolloverNegative      = newError(ErrValidation, "the maximum number of rollover periods must not be negative")
	ErrCurrencyInvalid          = newError(ErrValidation, "the currency must be an ISO 4217 code")
	ErrStrategyInvalid          = newError(ErrValidation, "the strategy must be one of equal, priority, percentage or manual")
	ErrImmutable                = newError(ErrValidation, "audit records cannot be changed or deleted")
)

// Conflict errors
var (
	ErrAllocationNotUnique   = newError(ErrConflict, "an allocation for this budget, category and period already exists")
	ErrPeriodOverlap         = newError(ErrConflict, "a period instance starting at this date already exists for the template")
	ErrTemplateEnded         = newError(ErrConflict, "the period template has ended, no further instances can be generated")
	ErrTemplateInUse         = newError(ErrConflict, "the period template cannot be changed after instances have been generated")
	ErrActivePeriodExists    = newError(ErrConflict, "the budget already has an active period")
	ErrRolloverProcessed     = newError(ErrConflict, "the rollover for this envelope and period has already been processed")
	ErrCategoryNameNotUnique = newError(ErrConflict, "the category name must be unique for the budget")
	ErrReserveNotUnique      = newError(ErrConflict, "the budget already has an emergency reserve")
)

// InsufficientFundsError is returned when more money is requested from an
// envelope than is available in it.
type InsufficientFundsError struct {
	EnvelopeID uuid.UUID
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in envelope %s: %s available, %s requested", e.EnvelopeID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// LineError describes one offending item of a batch request.
type LineError struct {
	EnvelopeID *uuid.UUID `json:"envelopeId,omitempty" example:"af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea"` // The envelope the problem refers to, if any
	Message    string     `json:"message" example:"the percentage must be between 0 and 100"`         // Description of the problem

	shortfall bool
}

// NewLineError returns a line error for an envelope. Use uuid.Nil for
// errors that concern the whole request.
func NewLineError(envelopeID uuid.UUID, format string, args ...any) LineError {
	l := LineError{Message: fmt.Sprintf(format, args...)}
	if envelopeID != uuid.Nil {
		l.EnvelopeID = &envelopeID
	}

	return l
}

// Shortfall marks the line as a lack of funds.
func (l LineError) Shortfall() LineError {
	l.shortfall = true
	return l
}

// ValidationError collects every problem of a batch request.
type ValidationError struct {
	Lines []LineError
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if l.EnvelopeID != nil {
			messages = append(messages, fmt.Sprintf("envelope %s: %s", l.EnvelopeID, l.Message))
			continue
		}
		messages = append(messages, l.Message)
	}

	return strings.Join(messages, "; ")
}

// Unwrap makes the error match ErrValidation, and ErrInsufficientFunds
// when one of the lines is a lack of funds.
func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrValidation}
	for _, l := range e.Lines {
		if l.shortfall {
			return append(errs, ErrInsufficientFunds)
		}
	}

	return errs
}
