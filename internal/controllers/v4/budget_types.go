package v4

import (
	"fmt"

	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BudgetEditable represents all user configurable parameters
type BudgetEditable struct {
	Name     string `json:"name" example:"Morre's Budget" default:""`          // Name of the budget
	Note     string `json:"note" example:"My personal expenses" default:""`    // A longer description of the budget
	Currency string `json:"currency" example:"EUR" default:""`                 // ISO 4217 code of the currency, determines the precision of bulk allocations
}

func (editable BudgetEditable) model() models.Budget {
	return models.Budget{
		Name:     editable.Name,
		Note:     editable.Note,
		Currency: editable.Currency,
	}
}

type BudgetLinks struct {
	Self            string `json:"self" example:"https://example.com/api/v4/budgets/550dc009-cea6-4c12-b2a5-03446eb7b7cf"`                         // The budget itself
	Categories      string `json:"categories" example:"https://example.com/api/v4/categories?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"`         // Categories of this budget
	Periods         string `json:"periods" example:"https://example.com/api/v4/periods?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"`               // Periods of this budget
	PeriodTemplates string `json:"periodTemplates" example:"https://example.com/api/v4/period-templates?budget=550dc009-cea6-4c12-b2a5-03446eb7b7cf"` // Period templates of this budget
	Reserve         string `json:"reserve" example:"https://example.com/api/v4/budgets/550dc009-cea6-4c12-b2a5-03446eb7b7cf/reserve"`              // The emergency reserve of this budget
}

type Budget struct {
	models.DefaultModel
	BudgetEditable
	Links BudgetLinks `json:"links"`
}

func newBudget(c *gin.Context, model models.Budget) Budget {
	url := c.GetString(string(models.DBContextURL))

	return Budget{
		DefaultModel: model.DefaultModel,
		BudgetEditable: BudgetEditable{
			Name:     model.Name,
			Note:     model.Note,
			Currency: model.Currency,
		},
		Links: BudgetLinks{
			Self:            fmt.Sprintf("%s/v4/budgets/%s", url, model.ID),
			Categories:      fmt.Sprintf("%s/v4/categories?budget=%s", url, model.ID),
			Periods:         fmt.Sprintf("%s/v4/periods?budget=%s", url, model.ID),
			PeriodTemplates: fmt.Sprintf("%s/v4/period-templates?budget=%s", url, model.ID),
			Reserve:         fmt.Sprintf("%s/v4/budgets/%s/reserve", url, model.ID),
		},
	}
}

type BudgetListResponse struct {
	Data       []Budget    `json:"data"`                                                          // List of budgets
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type BudgetCreateResponse struct {
	Data  []BudgetResponse `json:"data"`                                                          // List of created Budgets
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (b *BudgetCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	b.Data = append(b.Data, BudgetResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type BudgetResponse struct {
	Data  *Budget `json:"data"`                                                          // Data for the budget
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type BudgetQueryFilter struct {
	Name   string `form:"name"`   // By name
	Offset uint   `form:"offset"` // The offset of the first Budget returned. Defaults to 0.
	Limit  int    `form:"limit"`  // Maximum number of Budgets to return. Defaults to 50.
}

// ReserveDeposit is the amount added to the emergency reserve of a budget.
type ReserveDeposit struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"250"` // The amount to deposit. Must be greater than zero
}

type ReserveResponse struct {
	Data  *models.EmergencyReserve `json:"data"`                                                          // The emergency reserve
	Error *string                  `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}
