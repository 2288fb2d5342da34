package v4

import (
	"fmt"

	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/envelope-zero/budget-engine/internal/models"
	ez_uuid "github.com/envelope-zero/budget-engine/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EnvelopeEditable contains the parameters for creating an envelope
type EnvelopeEditable struct {
	BudgetID     uuid.UUID               `json:"budgetId" binding:"required" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`   // ID of the budget
	CategoryID   uuid.UUID               `json:"categoryId" binding:"required" example:"1e777d24-3f5b-4c43-8000-04f65f895578"` // ID of the category
	PeriodID     uuid.UUID               `json:"periodId" binding:"required" example:"d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`   // ID of the period
	Allocated    decimal.Decimal         `json:"allocatedAmount" swaggertype:"string" example:"200"`                           // Funds assigned in this period
	RolloverMode models.RolloverMode     `json:"rolloverMode" example:"unlimited"`                                             // One of unlimited, limited or reset. Defaults to the configured mode
	Metadata     models.EnvelopeMetadata `json:"metadata"`                                                                     // Target, priority and emergency fund configuration
	Paused       bool                    `json:"paused" example:"false" default:"false"`                                       // Pause the envelope
}

func (editable EnvelopeEditable) model() models.EnvelopeAllocation {
	return models.EnvelopeAllocation{
		BudgetID:         editable.BudgetID,
		CategoryID:       editable.CategoryID,
		PeriodInstanceID: editable.PeriodID,
		Allocated:        editable.Allocated,
		RolloverMode:     editable.RolloverMode,
		Metadata:         editable.Metadata,
		Paused:           editable.Paused,
	}
}

// EnvelopeUpdate contains the user editable values of an envelope.
// Only values to be updated need to be specified.
type EnvelopeUpdate struct {
	Allocated    *decimal.Decimal         `json:"allocatedAmount" swaggertype:"string" example:"250"` // Funds assigned in this period
	RolloverMode *models.RolloverMode     `json:"rolloverMode" example:"reset"`                       // One of unlimited, limited or reset
	Metadata     *models.EnvelopeMetadata `json:"metadata"`                                           // Replaces the complete metadata
	Paused       *bool                    `json:"paused" example:"true"`                              // Pause or unpause the envelope
}

func (u EnvelopeUpdate) update() engine.AllocationUpdate {
	return engine.AllocationUpdate{
		Allocated:    u.Allocated,
		RolloverMode: u.RolloverMode,
		Metadata:     u.Metadata,
		Paused:       u.Paused,
	}
}

type EnvelopeLinks struct {
	Self      string `json:"self" example:"https://example.com/api/v4/envelopes/af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea"`           // The envelope itself
	Period    string `json:"period" example:"https://example.com/api/v4/periods/d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`            // The period of the envelope
	Recompute string `json:"recompute" example:"https://example.com/api/v4/envelopes/af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea/recompute"` // Recompute the spent amount with a POST request
	Transfers string `json:"transfers" example:"https://example.com/api/v4/envelopes/af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea/transfers"` // Transfers from and to this envelope
	Rollovers string `json:"rollovers" example:"https://example.com/api/v4/envelopes/af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea/rollovers"` // Rollovers out of and into this envelope
}

// Envelope is the money allocated to a category for one period
type Envelope struct {
	models.EnvelopeAllocation
	Links EnvelopeLinks `json:"links"`
}

func newEnvelope(c *gin.Context, model models.EnvelopeAllocation) Envelope {
	url := c.GetString(string(models.DBContextURL))
	self := fmt.Sprintf("%s/v4/envelopes/%s", url, model.ID)

	return Envelope{
		EnvelopeAllocation: model,
		Links: EnvelopeLinks{
			Self:      self,
			Period:    fmt.Sprintf("%s/v4/periods/%s", url, model.PeriodInstanceID),
			Recompute: self + "/recompute",
			Transfers: self + "/transfers",
			Rollovers: self + "/rollovers",
		},
	}
}

func newEnvelopes(c *gin.Context, allocations []models.EnvelopeAllocation) []Envelope {
	envelopes := make([]Envelope, 0, len(allocations))
	for _, allocation := range allocations {
		envelopes = append(envelopes, newEnvelope(c, allocation))
	}

	return envelopes
}

type EnvelopeListResponse struct {
	Data  []Envelope `json:"data"`                                                          // List of envelopes
	Error *string    `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type EnvelopeCreateResponse struct {
	Data  []EnvelopeResponse `json:"data"`                                                          // List of created envelopes or their respective error
	Error *string            `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (e *EnvelopeCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	e.Data = append(e.Data, EnvelopeResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type EnvelopeResponse struct {
	Data  *Envelope `json:"data"`                                                          // Data for the envelope
	Error *string   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type EnvelopeQueryFilter struct {
	BudgetID   ez_uuid.UUID `form:"budget"`   // By ID of the budget
	CategoryID ez_uuid.UUID `form:"category"` // By ID of the category
	PeriodID   ez_uuid.UUID `form:"period"`   // By ID of the period
	Status     string       `form:"status"`   // By status
}

type TransferListResponse struct {
	Data  []models.EnvelopeTransfer `json:"data"`                                                          // List of transfers
	Error *string                   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type RolloverListResponse struct {
	Data  []models.RolloverHistory `json:"data"`                                                          // List of rollovers
	Error *string                  `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

// TransferEditable describes a transfer of funds between two envelopes of the same period
type TransferEditable struct {
	FromEnvelopeID uuid.UUID       `json:"fromEnvelopeId" binding:"required" example:"af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea"` // The envelope the funds are taken from
	ToEnvelopeID   uuid.UUID       `json:"toEnvelopeId" binding:"required" example:"1a2f6a3e-4a5c-43a3-8d1f-21b2ad1e9c40"`   // The envelope the funds are added to
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"30"`                                         // Must be greater than zero
	Reason         string          `json:"reason" example:"Dinner with friends went over"`                                   // Why the funds were moved
	TransferredBy  string          `json:"transferredBy" example:"morre"`                                                    // Who moved the funds
}

// TransferResult contains both envelopes after the transfer and the audit record
type TransferResult struct {
	From     Envelope                `json:"from"`     // The source envelope after the transfer
	To       Envelope                `json:"to"`       // The destination envelope after the transfer
	Transfer models.EnvelopeTransfer `json:"transfer"` // The audit record of the transfer
}

type TransferResponse struct {
	Data  *TransferResult `json:"data"`                                                          // The result of the transfer
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}
