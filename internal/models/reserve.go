package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EmergencyReserve holds money that covers deficits of emergency fund envelopes
// with auto refill when a period is closed.
type EmergencyReserve struct {
	DefaultModel
	BudgetID uuid.UUID       `json:"budgetId" gorm:"uniqueIndex:idx_reserve_budget" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Budget   Budget          `json:"-"`
	Balance  decimal.Decimal `json:"balance" gorm:"type:DECIMAL(20,8)" example:"500"`
}

func (r *EmergencyReserve) BeforeSave(_ *gorm.DB) error {
	if r.Balance.IsNegative() {
		return ErrAmountNegative
	}

	return nil
}
