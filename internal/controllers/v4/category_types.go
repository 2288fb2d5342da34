package v4

import (
	"fmt"

	"github.com/envelope-zero/budget-engine/internal/models"
	ez_uuid "github.com/envelope-zero/budget-engine/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CategoryEditable represents all user configurable parameters
type CategoryEditable struct {
	BudgetID uuid.UUID `json:"budgetId" binding:"required" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the budget the category belongs to
	Name     string    `json:"name" binding:"required" example:"Groceries"`                                // Name of the category, unique per budget
	Note     string    `json:"note" example:"Food and household supplies" default:""`                      // Notes about the category
}

func (editable CategoryEditable) model() models.Category {
	return models.Category{
		BudgetID: editable.BudgetID,
		Name:     editable.Name,
		Note:     editable.Note,
	}
}

type CategoryLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v4/categories/3b1ea324-d438-4419-882a-2fc91d71772f"`                 // The category itself
	Envelopes    string `json:"envelopes" example:"https://example.com/api/v4/envelopes?category=3b1ea324-d438-4419-882a-2fc91d71772f"`    // Envelopes for this category
	Transactions string `json:"transactions" example:"https://example.com/api/v4/transactions?category=3b1ea324-d438-4419-882a-2fc91d71772f"` // Transactions of this category
}

type Category struct {
	models.DefaultModel
	CategoryEditable
	Links CategoryLinks `json:"links"`
}

func newCategory(c *gin.Context, model models.Category) Category {
	url := c.GetString(string(models.DBContextURL))

	return Category{
		DefaultModel: model.DefaultModel,
		CategoryEditable: CategoryEditable{
			BudgetID: model.BudgetID,
			Name:     model.Name,
			Note:     model.Note,
		},
		Links: CategoryLinks{
			Self:         fmt.Sprintf("%s/v4/categories/%s", url, model.ID),
			Envelopes:    fmt.Sprintf("%s/v4/envelopes?category=%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v4/transactions?category=%s", url, model.ID),
		},
	}
}

type CategoryListResponse struct {
	Data       []Category  `json:"data"`                                                          // List of Categories
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type CategoryCreateResponse struct {
	Data  []CategoryResponse `json:"data"`                                                          // List of the created Categories or their respective error
	Error *string            `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (c *CategoryCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	c.Data = append(c.Data, CategoryResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type CategoryResponse struct {
	Data  *Category `json:"data"`                                                          // Data for the Category
	Error *string   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type CategoryQueryFilter struct {
	BudgetID ez_uuid.UUID `form:"budget"` // By ID of the Budget
	Name     string       `form:"name"`   // By name
	Offset   uint         `form:"offset"` // The offset of the first Category returned. Defaults to 0.
	Limit    int          `form:"limit"`  // Maximum number of Categories to return. Defaults to 50.
}

func (f CategoryQueryFilter) model() models.Category {
	return models.Category{
		BudgetID: f.BudgetID.UUID,
		Name:     f.Name,
	}
}
