package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is an entry of the ledger. Positive amounts are spending
// in the category, negative amounts are refunds.
type Transaction struct {
	DefaultModel
	BudgetID   uuid.UUID       `json:"budgetId" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Budget     Budget          `json:"-"`
	CategoryID *uuid.UUID      `json:"categoryId" gorm:"index" example:"1e777d24-3f5b-4c43-8000-04f65f895578"` // The category the transaction is tagged with. Untagged transactions are not counted as spending
	Category   Category        `json:"-"`
	Date       time.Time       `json:"date" gorm:"index" example:"1815-12-10T18:43:00.271152Z"`         // Date of the transaction. Time is used for sorting only
	Amount     decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)" example:"14.03" default:"0"` // The maximum value is "999999999999.99999999", swagger unfortunately rounds this.
	Note       string          `json:"note" example:"Lunch" default:""`
}

// AfterFind updates the timestamps to use UTC as
// timezone, not +0000. Yes, this is different.
//
// We already store them in UTC, but somehow reading
// them from the database returns them as +0000.
func (t *Transaction) AfterFind(tx *gorm.DB) (err error) {
	err = t.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	// Enforce dates to be in UTC
	t.Date = t.Date.In(time.UTC)
	return
}

// BeforeSave
//   - sets the timezone for the Date for UTC
//   - trims whitespace from string fields
//   - ensures that the CategoryID is nil and not a pointer to a nil UUID
func (t *Transaction) BeforeSave(_ *gorm.DB) (err error) {
	t.Note = strings.TrimSpace(t.Note)

	if t.CategoryID != nil && *t.CategoryID == uuid.Nil {
		t.CategoryID = nil
	}

	if t.Date.IsZero() {
		t.Date = time.Now().In(time.UTC)
	} else {
		t.Date = t.Date.In(time.UTC)
	}

	return nil
}
