package models

import (
	"strings"

	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

// Budget represents a budget
//
// A budget is the highest level of organization, all other
// resources reference it directly or transitively.
type Budget struct {
	DefaultModel
	Name     string `json:"name" example:"Morre's Budget" default:""`
	Note     string `json:"note" example:"My personal expenses" default:""`
	Currency string `json:"currency" example:"EUR" default:""` // ISO 4217 code, determines the precision of bulk allocations
}

func (b *Budget) BeforeSave(_ *gorm.DB) error {
	b.Name = strings.TrimSpace(b.Name)
	b.Note = strings.TrimSpace(b.Note)
	b.Currency = strings.ToUpper(strings.TrimSpace(b.Currency))

	if b.Currency != "" {
		if _, err := currency.ParseISO(b.Currency); err != nil {
			return ErrCurrencyInvalid
		}
	}

	return nil
}

// Scale returns the number of decimal places used for amounts of this budget.
// If the budget has no currency, fallback is returned.
func (b Budget) Scale(fallback int32) int32 {
	unit, err := currency.ParseISO(b.Currency)
	if err != nil {
		return fallback
	}

	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}
