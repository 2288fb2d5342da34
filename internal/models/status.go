package models

import "github.com/shopspring/decimal"

type EnvelopeStatus string

const (
	StatusActive    EnvelopeStatus = "active"
	StatusPaused    EnvelopeStatus = "paused"
	StatusDepleted  EnvelopeStatus = "depleted"
	StatusOverspent EnvelopeStatus = "overspent"
)

// ComputeStatus derives the display status of an envelope.
//
// A paused envelope stays paused regardless of its amounts.
func ComputeStatus(paused bool, available, deficit decimal.Decimal) EnvelopeStatus {
	if paused {
		return StatusPaused
	}

	if deficit.IsPositive() {
		return StatusOverspent
	}

	if available.IsZero() {
		return StatusDepleted
	}

	return StatusActive
}
