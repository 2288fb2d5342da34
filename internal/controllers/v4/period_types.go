package v4

import (
	"fmt"

	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/envelope-zero/budget-engine/internal/types"
	ez_uuid "github.com/envelope-zero/budget-engine/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodTemplateEditable represents all user configurable parameters
type PeriodTemplateEditable struct {
	BudgetID   uuid.UUID        `json:"budgetId" binding:"required" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the budget
	Frequency  models.Frequency `json:"frequency" example:"monthly"`                                                // One of weekly, monthly, quarterly, yearly or custom
	Interval   int              `json:"interval" example:"1"`                                                       // Repeat every N units of the frequency. For custom, N days
	StartDate  types.Date       `json:"startDate" swaggertype:"string" example:"2024-01-31"`                         // Start of the first period
	EndDate    types.Date       `json:"endDate" swaggertype:"string" example:"2025-01-31"`                           // Optional. No period starts on or after this date
	AutoCreate bool             `json:"autoCreate" example:"true" default:"false"`                                  // Create the next period automatically when the current one is closed
}

func (editable PeriodTemplateEditable) model() models.PeriodTemplate {
	return models.PeriodTemplate{
		BudgetID:   editable.BudgetID,
		Frequency:  editable.Frequency,
		Interval:   editable.Interval,
		StartDate:  editable.StartDate,
		EndDate:    editable.EndDate,
		AutoCreate: editable.AutoCreate,
	}
}

type PeriodTemplateLinks struct {
	Self      string `json:"self" example:"https://example.com/api/v4/period-templates/d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`           // The template itself
	Instances string `json:"instances" example:"https://example.com/api/v4/period-templates/d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b/instances"` // Generate the next period with a POST request
	Periods   string `json:"periods" example:"https://example.com/api/v4/periods?template=d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`           // Periods generated from this template
}

type PeriodTemplate struct {
	models.PeriodTemplate
	Links PeriodTemplateLinks `json:"links"`
}

func newPeriodTemplate(c *gin.Context, model models.PeriodTemplate) PeriodTemplate {
	url := c.GetString(string(models.DBContextURL))

	return PeriodTemplate{
		PeriodTemplate: model,
		Links: PeriodTemplateLinks{
			Self:      fmt.Sprintf("%s/v4/period-templates/%s", url, model.ID),
			Instances: fmt.Sprintf("%s/v4/period-templates/%s/instances", url, model.ID),
			Periods:   fmt.Sprintf("%s/v4/periods?template=%s", url, model.ID),
		},
	}
}

type PeriodTemplateListResponse struct {
	Data  []PeriodTemplate `json:"data"`                                                          // List of period templates
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type PeriodTemplateCreateResponse struct {
	Data  []PeriodTemplateResponse `json:"data"`                                                          // List of created period templates or their respective error
	Error *string                  `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (p *PeriodTemplateCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	p.Data = append(p.Data, PeriodTemplateResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type PeriodTemplateResponse struct {
	Data  *PeriodTemplate `json:"data"`                                                          // Data for the period template
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type PeriodTemplateQueryFilter struct {
	BudgetID ez_uuid.UUID `form:"budget"` // By ID of the budget
}

// PeriodInstanceRequest selects the period after which the next period is generated.
type PeriodInstanceRequest struct {
	After *uuid.UUID `json:"after" example:"0b5ad3f1-50c9-4d2d-92a2-5b6b6f1d2b0c"` // Optional. Defaults to the latest period of the template
}

type PeriodLinks struct {
	Self      string `json:"self" example:"https://example.com/api/v4/periods/0b5ad3f1-50c9-4d2d-92a2-5b6b6f1d2b0c"`                    // The period itself
	Template  string `json:"template" example:"https://example.com/api/v4/period-templates/d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`       // The template the period was generated from
	Envelopes string `json:"envelopes" example:"https://example.com/api/v4/envelopes?period=0b5ad3f1-50c9-4d2d-92a2-5b6b6f1d2b0c"`      // Envelopes of this period
	Close     string `json:"close" example:"https://example.com/api/v4/periods/0b5ad3f1-50c9-4d2d-92a2-5b6b6f1d2b0c/close"`             // Close the period and roll over its envelopes with a POST request
}

type Period struct {
	models.PeriodInstance
	Links PeriodLinks `json:"links"`
}

func newPeriod(c *gin.Context, model models.PeriodInstance) Period {
	url := c.GetString(string(models.DBContextURL))

	return Period{
		PeriodInstance: model,
		Links: PeriodLinks{
			Self:      fmt.Sprintf("%s/v4/periods/%s", url, model.ID),
			Template:  fmt.Sprintf("%s/v4/period-templates/%s", url, model.TemplateID),
			Envelopes: fmt.Sprintf("%s/v4/envelopes?period=%s", url, model.ID),
			Close:     fmt.Sprintf("%s/v4/periods/%s/close", url, model.ID),
		},
	}
}

type PeriodListResponse struct {
	Data  []Period `json:"data"`                                                          // List of periods
	Error *string  `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type PeriodResponse struct {
	Data  *Period `json:"data"`                                                          // Data for the period
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type PeriodQueryFilter struct {
	BudgetID   ez_uuid.UUID `form:"budget"`   // By ID of the budget
	TemplateID ez_uuid.UUID `form:"template"` // By ID of the period template
	Status     string       `form:"status"`   // By status
}

// PeriodCloseResult is the result of closing a period.
type PeriodCloseResult struct {
	Period Period                   `json:"period"` // The closed period
	Next   *Period                  `json:"next"`   // The period the envelopes were rolled over into. Null when the template has ended
	Rolled []models.RolloverHistory `json:"rolled"` // Rollover records of all envelopes of the closed period
}

type PeriodCloseResponse struct {
	Data  *PeriodCloseResult `json:"data"`                                                          // The result of the close
	Error *string            `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

// PeriodCopyRequest selects the period that allocations are copied into.
type PeriodCopyRequest struct {
	ToPeriodID uuid.UUID `json:"toPeriodId" binding:"required" example:"0b5ad3f1-50c9-4d2d-92a2-5b6b6f1d2b0c"` // The period the allocations are copied into
}

// BulkAllocationEditable distributes a total over envelopes of a period.
type BulkAllocationEditable struct {
	Strategy engine.Strategy     `json:"strategy" example:"equal"`                   // One of equal, priority, percentage or manual
	Total    decimal.Decimal     `json:"total" swaggertype:"string" example:"1000"` // The funds to distribute
	Targets  []engine.BulkTarget `json:"targets"`                                    // The envelopes to allocate to
}

type BulkAllocationResult struct {
	Allocations []Envelope             `json:"allocations"`                                  // The updated envelopes, ordered by ID
	Breakdown   []engine.BulkBreakdown `json:"breakdown"`                                    // How the allocation of each envelope was determined, ordered by envelope ID
	Unallocated decimal.Decimal        `json:"unallocatedAmount" swaggertype:"string" example:"0"` // Part of the total that was not assigned to any envelope
}

type BulkAllocationResponse struct {
	Data  *BulkAllocationResult `json:"data"`                                                          // The result of the bulk allocation
	Error *string               `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Lines []models.LineError    `json:"lines,omitempty"`                                               // Every problem of a rejected request
}
