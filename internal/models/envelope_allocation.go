package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RolloverMode string

const (
	RolloverUnlimited RolloverMode = "unlimited"
	RolloverLimited   RolloverMode = "limited"
	RolloverReset     RolloverMode = "reset"
)

func (m RolloverMode) Valid() bool {
	return m == RolloverUnlimited || m == RolloverLimited || m == RolloverReset
}

// EnvelopeMetadata configures how an envelope is treated by rollover and bulk allocation.
// The zero value is a valid configuration.
type EnvelopeMetadata struct {
	Target             decimal.NullDecimal `json:"target" gorm:"type:DECIMAL(20,8)" swaggertype:"string" example:"250"` // Amount the envelope should hold. Unset means no target
	MaxRolloverPeriods int                 `json:"maxRolloverPeriods" example:"3" default:"0"`                          // For limited rollover: periods a carried balance survives. 0 uses the configured default
	Priority           int                 `json:"priority" example:"10" default:"0"`                                   // Higher priorities are served first by bulk allocation
	EmergencyFund      bool                `json:"emergencyFund" example:"false" default:"false"`                       // The envelope is an emergency fund
	AutoRefill         bool                `json:"autoRefill" example:"false" default:"false"`                          // Cover deficits of an emergency fund from the budget's reserve at rollover
}

// Validate checks the metadata values.
func (m EnvelopeMetadata) Validate() error {
	if m.Target.Valid && m.Target.Decimal.IsNegative() {
		return ErrTargetNegative
	}

	if m.MaxRolloverPeriods < 0 {
		return ErrMaxRolloverNegative
	}

	return nil
}

// Refills reports if deficits of the envelope are covered from the reserve.
func (m EnvelopeMetadata) Refills() bool {
	return m.EmergencyFund && m.AutoRefill
}

// EnvelopeAllocation is the money allocated to a category of a budget for one period.
//
// Available, Deficit and Status are derived from the other amounts by Recompute,
// which runs before every save.
type EnvelopeAllocation struct {
	DefaultModel
	BudgetID         uuid.UUID        `json:"budgetId" gorm:"uniqueIndex:idx_allocation_triple" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Budget           Budget           `json:"-"`
	CategoryID       uuid.UUID        `json:"categoryId" gorm:"uniqueIndex:idx_allocation_triple" example:"1e777d24-3f5b-4c43-8000-04f65f895578"`
	Category         Category         `json:"-"`
	PeriodInstanceID uuid.UUID        `json:"periodId" gorm:"uniqueIndex:idx_allocation_triple" example:"d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`
	PeriodInstance   PeriodInstance   `json:"-"`
	Allocated        decimal.Decimal  `json:"allocatedAmount" gorm:"type:DECIMAL(20,8)" example:"200"`  // Funds assigned in this period
	Spent            decimal.Decimal  `json:"spentAmount" gorm:"type:DECIMAL(20,8)" example:"150"`      // Spending in the category during the period, as reported by the ledger
	Rollover         decimal.Decimal  `json:"rolloverAmount" gorm:"type:DECIMAL(20,8)" example:"50"`    // Carried in from the previous period. Negative for a carried deficit
	Available        decimal.Decimal  `json:"availableAmount" gorm:"type:DECIMAL(20,8)" example:"100"`  // Spendable balance
	Deficit          decimal.Decimal  `json:"deficitAmount" gorm:"type:DECIMAL(20,8)" example:"0"`      // Spending beyond the funds of the envelope
	Status           EnvelopeStatus   `json:"status" example:"active"`
	Paused           bool             `json:"paused" example:"false" default:"false"`                  // Set by users, forces the paused status
	RolloverMode     RolloverMode     `json:"rolloverMode" example:"unlimited"`
	RolloverAge      int              `json:"rolloverAge" example:"1"`                                 // Consecutive periods the carried balance has been rolled over
	Metadata         EnvelopeMetadata `json:"metadata" gorm:"embedded;embeddedPrefix:metadata_"`
}

// Funds returns the allocated and the carried in amount.
func (e EnvelopeAllocation) Funds() decimal.Decimal {
	return e.Allocated.Add(e.Rollover)
}

// Recompute sets Available, Deficit and Status from the allocated, carried in and spent amounts.
func (e *EnvelopeAllocation) Recompute() {
	balance := e.Funds().Sub(e.Spent)

	e.Available = decimal.Max(decimal.Zero, balance)
	e.Deficit = decimal.Max(decimal.Zero, balance.Neg())
	e.Status = ComputeStatus(e.Paused, e.Available, e.Deficit)
}

func (e *EnvelopeAllocation) BeforeSave(_ *gorm.DB) error {
	if !e.RolloverMode.Valid() {
		return ErrRolloverModeInvalid
	}

	if err := e.Metadata.Validate(); err != nil {
		return err
	}

	e.Recompute()
	return nil
}
