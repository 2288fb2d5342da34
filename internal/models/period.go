package models

import (
	"github.com/envelope-zero/budget-engine/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom" // interval is counted in days
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyCustom:
		return true
	}
	return false
}

type PeriodStatus string

const (
	PeriodDraft    PeriodStatus = "draft"
	PeriodActive   PeriodStatus = "active"
	PeriodClosed   PeriodStatus = "closed"
	PeriodArchived PeriodStatus = "archived"
)

// CanTransitionTo reports if a period may move from status s to next.
// Periods only move forward: draft, active, closed, archived.
func (s PeriodStatus) CanTransitionTo(next PeriodStatus) bool {
	switch s {
	case PeriodDraft:
		return next == PeriodActive
	case PeriodActive:
		return next == PeriodClosed
	case PeriodClosed:
		return next == PeriodArchived
	}
	return false
}

// Open reports if allocations of a period in this status can be changed.
func (s PeriodStatus) Open() bool {
	return s == PeriodDraft || s == PeriodActive
}

// PeriodTemplate defines how the periods of a budget recur.
type PeriodTemplate struct {
	DefaultModel
	BudgetID   uuid.UUID  `json:"budgetId" gorm:"index" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Budget     Budget     `json:"-"`
	Frequency  Frequency  `json:"frequency" example:"monthly"`
	Interval   int        `json:"interval" example:"1"`                                      // Repeat every N units of the frequency
	StartDate  types.Date `json:"startDate" swaggertype:"string" example:"2024-01-31"`       // Start of the first period. Its day of month anchors all later periods
	EndDate    types.Date `json:"endDate" swaggertype:"string" example:"2025-01-31"`         // Optional. No period starts on or after this date
	AutoCreate bool       `json:"autoCreate" example:"true" default:"false"`                // Create the next period automatically when the current one is closed
}

// Validate checks that the template can generate periods.
func (t PeriodTemplate) Validate() error {
	if !t.Frequency.Valid() {
		return ErrFrequencyInvalid
	}

	if t.Interval <= 0 {
		return ErrIntervalNotPositive
	}

	if t.StartDate.IsZero() {
		return ErrTemplateStartNotSet
	}

	if !t.EndDate.IsZero() && !t.EndDate.After(t.StartDate) {
		return ErrTemplateEndBeforeStart
	}

	return nil
}

// StartOf returns the start date of the period with the given sequence number.
//
// Dates are always computed from the template start, so a template anchored
// on the 31st yields Feb 28th followed by Mar 31st, never Mar 28th.
func (t PeriodTemplate) StartOf(sequence int) types.Date {
	n := sequence * t.Interval

	switch t.Frequency {
	case FrequencyWeekly:
		return t.StartDate.AddDays(7 * n)
	case FrequencyMonthly:
		return t.StartDate.AddMonths(n)
	case FrequencyQuarterly:
		return t.StartDate.AddMonths(3 * n)
	case FrequencyYearly:
		return t.StartDate.AddMonths(12 * n)
	default:
		return t.StartDate.AddDays(n)
	}
}

func (t *PeriodTemplate) BeforeSave(_ *gorm.DB) error {
	return t.Validate()
}

// BeforeUpdate rejects changes once periods have been generated from the template.
func (t *PeriodTemplate) BeforeUpdate(tx *gorm.DB) error {
	var count int64
	err := tx.Session(&gorm.Session{NewDB: true}).Model(&PeriodInstance{}).Where(&PeriodInstance{TemplateID: t.ID}).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrTemplateInUse
	}

	return nil
}

// PeriodInstance is one concrete period of a budget, covering [StartDate, EndDate).
type PeriodInstance struct {
	DefaultModel
	BudgetID   uuid.UUID       `json:"budgetId" gorm:"index" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Budget     Budget          `json:"-"`
	TemplateID uuid.UUID       `json:"templateId" gorm:"uniqueIndex:idx_period_start" example:"d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`
	Template   PeriodTemplate  `json:"-"`
	Sequence   int             `json:"sequence" example:"3"` // Position of the period in its template, starting at 0
	StartDate  types.Date      `json:"startDate" gorm:"uniqueIndex:idx_period_start" swaggertype:"string" example:"2024-03-31"`
	EndDate    types.Date      `json:"endDate" swaggertype:"string" example:"2024-04-30"` // Exclusive
	Status     PeriodStatus    `json:"status" example:"active"`
	Allocated  decimal.Decimal `json:"allocatedAmount" gorm:"type:DECIMAL(20,8)" example:"2100"`   // Sum of the allocated amounts of all envelopes
	Rollover   decimal.Decimal `json:"rolloverAmount" gorm:"type:DECIMAL(20,8)" example:"120.5"`   // Sum of the amounts carried into the envelopes
	Spent      decimal.Decimal `json:"spentAmount" gorm:"type:DECIMAL(20,8)" example:"1877.13"`    // Sum of the amounts spent in all envelopes
	Adjustment decimal.Decimal `json:"adjustmentAmount" gorm:"type:DECIMAL(20,8)" example:"32.01"` // Funds forfeited when the period was closed
}
