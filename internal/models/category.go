package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a spending category of a budget. Envelopes allocate money to a category
// for one period.
type Category struct {
	DefaultModel
	BudgetID uuid.UUID `json:"budgetId" gorm:"uniqueIndex:idx_category_name" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the budget the category belongs to
	Budget   Budget    `json:"-"`
	Name     string    `json:"name" gorm:"uniqueIndex:idx_category_name" example:"Groceries" default:""` // Name of the category
	Note     string    `json:"note" example:"Food and household supplies" default:""`                    // Notes about the category
}

func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Note = strings.TrimSpace(c.Note)
	return nil
}
