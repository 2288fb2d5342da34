package v4

import (
	"net/http"

	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/envelope-zero/budget-engine/internal/httputil"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/gin-gonic/gin"
)

// RegisterEnvelopeRoutes registers the routes for envelopes with
// the RouterGroup that is passed.
func (co Controller) RegisterEnvelopeRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetEnvelopes)
		r.POST("", co.CreateEnvelopes)
	}

	// Envelope with ID
	{
		r.OPTIONS("/:id", httputil.OptionsGetPatch)
		r.GET("/:id", co.GetEnvelope)
		r.PATCH("/:id", co.UpdateEnvelope)
		r.OPTIONS("/:id/recompute", httputil.OptionsPost)
		r.POST("/:id/recompute", co.RecomputeEnvelope)
		r.OPTIONS("/:id/transfers", httputil.OptionsGet)
		r.GET("/:id/transfers", co.GetEnvelopeTransfers)
		r.OPTIONS("/:id/rollovers", httputil.OptionsGet)
		r.GET("/:id/rollovers", co.GetEnvelopeRollovers)
	}
}

// @Summary		Create envelopes
// @Description	Creates envelopes. Each combination of budget, category and period can only have one envelope.
// @Tags			Envelopes
// @Accept			json
// @Produce		json
// @Success		201			{object}	EnvelopeCreateResponse
// @Failure		400			{object}	EnvelopeCreateResponse
// @Failure		404			{object}	EnvelopeCreateResponse
// @Failure		409			{object}	EnvelopeCreateResponse
// @Failure		500			{object}	EnvelopeCreateResponse
// @Param			envelopes	body		[]EnvelopeEditable	true	"Envelopes"
// @Router			/v4/envelopes [post]
func (co Controller) CreateEnvelopes(c *gin.Context) {
	var editables []EnvelopeEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeCreateResponse{
			Error: &s,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := EnvelopeCreateResponse{}

	for _, editable := range editables {
		envelope, err := co.Engine.CreateAllocation(c.Request.Context(), editable.model())
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newEnvelope(c, envelope)
		r.Data = append(r.Data, EnvelopeResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get envelopes
// @Description	Returns a list of envelopes, ordered by ID
// @Tags			Envelopes
// @Produce		json
// @Success		200			{object}	EnvelopeListResponse
// @Failure		400			{object}	EnvelopeListResponse
// @Failure		500			{object}	EnvelopeListResponse
// @Param			budget		query		string	false	"Filter by budget ID"
// @Param			category	query		string	false	"Filter by category ID"
// @Param			period		query		string	false	"Filter by period ID"
// @Param			status		query		string	false	"Filter by status"
// @Router			/v4/envelopes [get]
func (co Controller) GetEnvelopes(c *gin.Context) {
	var filter EnvelopeQueryFilter
	err := httputil.BindQuery(c, &filter)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeListResponse{
			Error: &s,
		})
		return
	}

	envelopes, err := co.Engine.ListAllocations(c.Request.Context(), engine.AllocationFilter{
		BudgetID:   filter.BudgetID.UUID,
		CategoryID: filter.CategoryID.UUID,
		PeriodID:   filter.PeriodID.UUID,
		Status:     models.EnvelopeStatus(filter.Status),
	})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, EnvelopeListResponse{Data: newEnvelopes(c, envelopes)})
}

// @Summary		Get envelope
// @Description	Returns a specific envelope
// @Tags			Envelopes
// @Produce		json
// @Success		200	{object}	EnvelopeResponse
// @Failure		400	{object}	EnvelopeResponse
// @Failure		404	{object}	EnvelopeResponse
// @Failure		500	{object}	EnvelopeResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/envelopes/{id} [get]
func (co Controller) GetEnvelope(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeResponse{
			Error: &s,
		})
		return
	}

	envelope, err := co.Engine.GetAllocation(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeResponse{
			Error: &s,
		})
		return
	}

	data := newEnvelope(c, envelope)
	c.JSON(http.StatusOK, EnvelopeResponse{Data: &data})
}

// @Summary		Update envelope
// @Description	Updates an envelope. Only values to be updated need to be specified.
// @Description	The allocated amount can only be changed while the period is draft or active.
// @Tags			Envelopes
// @Accept			json
// @Produce		json
// @Success		200			{object}	EnvelopeResponse
// @Failure		400			{object}	EnvelopeResponse
// @Failure		404			{object}	EnvelopeResponse
// @Failure		500			{object}	EnvelopeResponse
// @Param			id			path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			envelope	body		EnvelopeUpdate	true	"Envelope"
// @Router			/v4/envelopes/{id} [patch]
func (co Controller) UpdateEnvelope(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeResponse{
			Error: &s,
		})
		return
	}

	var data EnvelopeUpdate
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeResponse{
			Error: &s,
		})
		return
	}

	envelope, err := co.Engine.UpdateAllocation(c.Request.Context(), uri.ID.UUID, data.update())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeResponse{
			Error: &s,
		})
		return
	}

	r := newEnvelope(c, envelope)
	c.JSON(http.StatusOK, EnvelopeResponse{Data: &r})
}

// @Summary		Recompute spending
// @Description	Recomputes the spent amount of the envelope from the transactions of its category in its period
// @Tags			Envelopes
// @Produce		json
// @Success		200	{object}	EnvelopeResponse
// @Failure		400	{object}	EnvelopeResponse
// @Failure		404	{object}	EnvelopeResponse
// @Failure		500	{object}	EnvelopeResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/envelopes/{id}/recompute [post]
func (co Controller) RecomputeEnvelope(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeResponse{
			Error: &s,
		})
		return
	}

	envelope, err := co.Engine.RecomputeSpent(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EnvelopeResponse{
			Error: &s,
		})
		return
	}

	data := newEnvelope(c, envelope)
	c.JSON(http.StatusOK, EnvelopeResponse{Data: &data})
}

// @Summary		Get transfers
// @Description	Returns all transfers from and to the envelope, oldest first
// @Tags			Envelopes
// @Produce		json
// @Success		200	{object}	TransferListResponse
// @Failure		400	{object}	TransferListResponse
// @Failure		404	{object}	TransferListResponse
// @Failure		500	{object}	TransferListResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/envelopes/{id}/transfers [get]
func (co Controller) GetEnvelopeTransfers(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransferListResponse{
			Error: &s,
		})
		return
	}

	_, err = co.Engine.GetAllocation(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransferListResponse{
			Error: &s,
		})
		return
	}

	transfers, err := co.Engine.ListTransfers(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransferListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, TransferListResponse{Data: transfers})
}

// @Summary		Get rollovers
// @Description	Returns the rollover records of the envelope: the rollover out of it and the rollover that created or updated it
// @Tags			Envelopes
// @Produce		json
// @Success		200	{object}	RolloverListResponse
// @Failure		400	{object}	RolloverListResponse
// @Failure		404	{object}	RolloverListResponse
// @Failure		500	{object}	RolloverListResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/envelopes/{id}/rollovers [get]
func (co Controller) GetEnvelopeRollovers(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverListResponse{
			Error: &s,
		})
		return
	}

	_, err = co.Engine.GetAllocation(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverListResponse{
			Error: &s,
		})
		return
	}

	rollovers, err := co.Engine.ListRolloverHistory(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RolloverListResponse{Data: rollovers})
}
