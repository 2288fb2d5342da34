package v4

import (
	"errors"
	"net/http"

	"github.com/envelope-zero/budget-engine/internal/httputil"
	"github.com/gin-gonic/gin"
)

// RegisterTemplateRoutes registers the routes for period templates with
// the RouterGroup that is passed.
func (co Controller) RegisterTemplateRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetPeriodTemplates)
		r.POST("", co.CreatePeriodTemplates)
	}

	// Template with ID
	{
		r.OPTIONS("/:id", httputil.OptionsGet)
		r.GET("/:id", co.GetPeriodTemplate)
		r.OPTIONS("/:id/instances", httputil.OptionsPost)
		r.POST("/:id/instances", co.CreatePeriodInstance)
	}
}

// @Summary		Create period templates
// @Description	Creates period templates. A template defines how the periods of a budget recur.
// @Tags			Periods
// @Accept			json
// @Produce		json
// @Success		201			{object}	PeriodTemplateCreateResponse
// @Failure		400			{object}	PeriodTemplateCreateResponse
// @Failure		404			{object}	PeriodTemplateCreateResponse
// @Failure		500			{object}	PeriodTemplateCreateResponse
// @Param			templates	body		[]PeriodTemplateEditable	true	"Period templates"
// @Router			/v4/period-templates [post]
func (co Controller) CreatePeriodTemplates(c *gin.Context) {
	var editables []PeriodTemplateEditable

	err := httputil.BindData(c, &editables)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodTemplateCreateResponse{
			Error: &s,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := PeriodTemplateCreateResponse{}

	for _, editable := range editables {
		template, err := co.Engine.CreateTemplate(c.Request.Context(), editable.model())
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newPeriodTemplate(c, template)
		r.Data = append(r.Data, PeriodTemplateResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get period templates
// @Description	Returns a list of period templates
// @Tags			Periods
// @Produce		json
// @Success		200		{object}	PeriodTemplateListResponse
// @Failure		400		{object}	PeriodTemplateListResponse
// @Failure		500		{object}	PeriodTemplateListResponse
// @Param			budget	query		string	false	"Filter by budget ID"
// @Router			/v4/period-templates [get]
func (co Controller) GetPeriodTemplates(c *gin.Context) {
	var filter PeriodTemplateQueryFilter
	err := httputil.BindQuery(c, &filter)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodTemplateListResponse{
			Error: &s,
		})
		return
	}

	templates, err := co.Engine.ListTemplates(c.Request.Context(), filter.BudgetID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodTemplateListResponse{
			Error: &s,
		})
		return
	}

	data := make([]PeriodTemplate, 0, len(templates))
	for _, template := range templates {
		data = append(data, newPeriodTemplate(c, template))
	}

	c.JSON(http.StatusOK, PeriodTemplateListResponse{Data: data})
}

// @Summary		Get period template
// @Description	Returns a specific period template
// @Tags			Periods
// @Produce		json
// @Success		200	{object}	PeriodTemplateResponse
// @Failure		400	{object}	PeriodTemplateResponse
// @Failure		404	{object}	PeriodTemplateResponse
// @Failure		500	{object}	PeriodTemplateResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/period-templates/{id} [get]
func (co Controller) GetPeriodTemplate(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodTemplateResponse{
			Error: &s,
		})
		return
	}

	template, err := co.Engine.GetTemplate(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodTemplateResponse{
			Error: &s,
		})
		return
	}

	data := newPeriodTemplate(c, template)
	c.JSON(http.StatusOK, PeriodTemplateResponse{Data: &data})
}

// @Summary		Generate next period
// @Description	Generates the period following the latest period of the template, or the period given in the body.
// @Description	The first period of a budget is active, all later ones start as drafts.
// @Tags			Periods
// @Accept			json
// @Produce		json
// @Success		201		{object}	PeriodResponse
// @Failure		400		{object}	PeriodResponse
// @Failure		404		{object}	PeriodResponse
// @Failure		409		{object}	PeriodResponse
// @Failure		500		{object}	PeriodResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		PeriodInstanceRequest	false	"Period to generate the next period after"
// @Router			/v4/period-templates/{id}/instances [post]
func (co Controller) CreatePeriodInstance(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodResponse{
			Error: &s,
		})
		return
	}

	// The body is optional
	var request PeriodInstanceRequest
	err = httputil.BindData(c, &request)
	if err != nil && !errors.Is(err, httputil.ErrRequestBodyEmpty) {
		s := err.Error()
		c.JSON(status(err), PeriodResponse{
			Error: &s,
		})
		return
	}

	period, err := co.Engine.GenerateNextInstance(c.Request.Context(), uri.ID.UUID, request.After)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), PeriodResponse{
			Error: &s,
		})
		return
	}

	data := newPeriod(c, period)
	c.JSON(http.StatusCreated, PeriodResponse{Data: &data})
}
