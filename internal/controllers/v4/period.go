package v4

import (
	"context"
	"net/http"

	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/envelope-zero/budget-engine/internal/httputil"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterPeriodRoutes registers the routes for periods with
// the RouterGroup that is passed.
func (co Controller) RegisterPeriodRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGet)
		r.GET("", co.GetPeriods)
	}

	// Period with ID
	{
		r.OPTIONS("/:id", httputil.OptionsGet)
		r.GET("/:id", co.GetPeriod)
	}

	// Actions
	{
		for _, action := range []string{"activate", "close", "archive", "recompute", "copy", "bulk-allocate"} {
			r.OPTIONS("/:id/"+action, httputil.OptionsPost)
		}

		r.POST("/:id/activate", co.ActivatePeriod)
		r.POST("/:id/close", co.ClosePeriod)
		r.POST("/:id/archive", co.ArchivePeriod)
		r.POST("/:id/recompute", co.RecomputePeriod)
		r.POST("/:id/copy", co.CopyPeriodAllocations)
		r.POST("/:id/bulk-allocate", co.BulkAllocate)
	}
}

// @Summary		Get periods
// @Description	Returns a list of periods, ordered by their start date
// @Tags			Periods
// @Produce		json
// @Success		200			{object}	PeriodListResponse
// @Failure		400			{object}	PeriodListResponse
// @Failure		500			{object}	PeriodListResponse
// @Param			budget		query		string	false	"Filter by budget ID"
// @Param			template	query		string	false	"Filter by period template ID"
// @Param			status		query		string	false	"Filter by status"
// @Router			/v4/periods [get]
func (co Controller) GetPeriods(c *gin.Context) {
	var filter PeriodQueryFilter
	err := httputil.BindQuery(c, &filter)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodListResponse{
			Error: &s,
		})
		return
	}

	periods, err := co.Engine.ListPeriods(c.Request.Context(), engine.PeriodFilter{
		BudgetID:   filter.BudgetID.UUID,
		TemplateID: filter.TemplateID.UUID,
		Status:     models.PeriodStatus(filter.Status),
	})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodListResponse{
			Error: &s,
		})
		return
	}

	data := make([]Period, 0, len(periods))
	for _, period := range periods {
		data = append(data, newPeriod(c, period))
	}

	c.JSON(http.StatusOK, PeriodListResponse{Data: data})
}

// @Summary		Get period
// @Description	Returns a specific period
// @Tags			Periods
// @Produce		json
// @Success		200	{object}	PeriodResponse
// @Failure		400	{object}	PeriodResponse
// @Failure		404	{object}	PeriodResponse
// @Failure		500	{object}	PeriodResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/periods/{id} [get]
func (co Controller) GetPeriod(c *gin.Context) {
	co.periodAction(c, co.Engine.GetPeriod)
}

// @Summary		Activate period
// @Description	Activates a draft period. A budget can only have one active period.
// @Tags			Periods
// @Produce		json
// @Success		200	{object}	PeriodResponse
// @Failure		400	{object}	PeriodResponse
// @Failure		404	{object}	PeriodResponse
// @Failure		409	{object}	PeriodResponse
// @Failure		500	{object}	PeriodResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/periods/{id}/activate [post]
func (co Controller) ActivatePeriod(c *gin.Context) {
	co.periodAction(c, co.Engine.ActivatePeriod)
}

// @Summary		Archive period
// @Description	Archives a closed period
// @Tags			Periods
// @Produce		json
// @Success		200	{object}	PeriodResponse
// @Failure		400	{object}	PeriodResponse
// @Failure		404	{object}	PeriodResponse
// @Failure		500	{object}	PeriodResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/periods/{id}/archive [post]
func (co Controller) ArchivePeriod(c *gin.Context) {
	co.periodAction(c, co.Engine.ArchivePeriod)
}

// periodAction runs an engine operation on the period in the URI and responds with the resulting period.
func (co Controller) periodAction(c *gin.Context, action func(context.Context, uuid.UUID) (models.PeriodInstance, error)) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodResponse{
			Error: &s,
		})
		return
	}

	period, err := action(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodResponse{
			Error: &s,
		})
		return
	}

	data := newPeriod(c, period)
	c.JSON(http.StatusOK, PeriodResponse{Data: &data})
}

// @Summary		Close period
// @Description	Closes an active period and rolls every envelope over into the next period of the template.
// @Description	The next period is generated if it does not exist yet. Closing a closed period again only processes
// @Description	envelopes that have not been rolled over yet.
// @Tags			Periods
// @Produce		json
// @Success		200	{object}	PeriodCloseResponse
// @Failure		400	{object}	PeriodCloseResponse
// @Failure		404	{object}	PeriodCloseResponse
// @Failure		500	{object}	PeriodCloseResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/periods/{id}/close [post]
func (co Controller) ClosePeriod(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodCloseResponse{
			Error: &s,
		})
		return
	}

	result, err := co.Engine.ClosePeriod(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodCloseResponse{
			Error: &s,
		})
		return
	}

	data := PeriodCloseResult{
		Period: newPeriod(c, result.Period),
		Rolled: result.Rolled,
	}

	if result.Next != nil {
		next := newPeriod(c, *result.Next)
		data.Next = &next
	}

	c.JSON(http.StatusOK, PeriodCloseResponse{Data: &data})
}

// @Summary		Recompute spending
// @Description	Recomputes the spent amount of every envelope of the period from the transactions
// @Tags			Periods
// @Produce		json
// @Success		200	{object}	EnvelopeListResponse
// @Failure		400	{object}	EnvelopeListResponse
// @Failure		404	{object}	EnvelopeListResponse
// @Failure		500	{object}	EnvelopeListResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/periods/{id}/recompute [post]
func (co Controller) RecomputePeriod(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeListResponse{
			Error: &s,
		})
		return
	}

	envelopes, err := co.Engine.RecomputeSpentForPeriod(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, EnvelopeListResponse{Data: newEnvelopes(c, envelopes)})
}

// @Summary		Copy allocations
// @Description	Copies the allocated amount, rollover mode and metadata of every envelope of the period into
// @Description	another open period of the same budget. Categories that already have an envelope there are skipped.
// @Tags			Periods
// @Accept			json
// @Produce		json
// @Success		200		{object}	EnvelopeListResponse
// @Failure		400		{object}	EnvelopeListResponse
// @Failure		404		{object}	EnvelopeListResponse
// @Failure		500		{object}	EnvelopeListResponse
// @Param			id		path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		PeriodCopyRequest	true	"Target period"
// @Router			/v4/periods/{id}/copy [post]
func (co Controller) CopyPeriodAllocations(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeListResponse{
			Error: &s,
		})
		return
	}

	var request PeriodCopyRequest
	err = httputil.BindData(c, &request)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeListResponse{
			Error: &s,
		})
		return
	}

	envelopes, err := co.Engine.CopyAllocations(c.Request.Context(), uri.ID.UUID, request.ToPeriodID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, EnvelopeListResponse{Data: newEnvelopes(c, envelopes)})
}

// @Summary		Bulk allocate
// @Description	Distributes a total over envelopes of the period. Deficits of the target envelopes are covered first,
// @Description	the rest is distributed with the strategy. The request is either applied completely or rejected with
// @Description	every problem listed in lines.
// @Tags			Periods
// @Accept			json
// @Produce		json
// @Success		200		{object}	BulkAllocationResponse
// @Failure		400		{object}	BulkAllocationResponse
// @Failure		404		{object}	BulkAllocationResponse
// @Failure		422		{object}	BulkAllocationResponse
// @Failure		500		{object}	BulkAllocationResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		BulkAllocationEditable	true	"Bulk allocation"
// @Router			/v4/periods/{id}/bulk-allocate [post]
func (co Controller) BulkAllocate(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BulkAllocationResponse{
			Error: &s,
		})
		return
	}

	var editable BulkAllocationEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BulkAllocationResponse{
			Error: &s,
		})
		return
	}

	result, err := co.Engine.BulkAllocate(c.Request.Context(), engine.BulkRequest{
		PeriodID: uri.ID.UUID,
		Strategy: editable.Strategy,
		Total:    editable.Total,
		Targets:  editable.Targets,
	})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BulkAllocationResponse{
			Error: &s,
			Lines: lines(err),
		})
		return
	}

	c.JSON(http.StatusOK, BulkAllocationResponse{Data: &BulkAllocationResult{
		Allocations: newEnvelopes(c, result.Allocations),
		Breakdown:   result.Breakdown,
		Unallocated: result.Unallocated,
	}})
}
