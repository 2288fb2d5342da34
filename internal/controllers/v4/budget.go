package v4

import (
	"net/http"

	"github.com/envelope-zero/budget-engine/internal/httputil"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/gin-gonic/gin"
)

// RegisterBudgetRoutes registers the routes for Budgets with
// the RouterGroup that is passed.
func (co Controller) RegisterBudgetRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsBudgetList)
		r.GET("", GetBudgets)
		r.POST("", CreateBudgets)
	}

	// Budget with ID
	{
		r.OPTIONS("/:id", OptionsBudgetDetail)
		r.GET("/:id", GetBudget)
		r.DELETE("/:id", DeleteBudget)
	}

	// Emergency reserve
	{
		r.OPTIONS("/:id/reserve", httputil.OptionsGetPost)
		r.GET("/:id/reserve", co.GetReserve)
		r.POST("/:id/reserve", co.DepositReserve)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Budgets
// @Success		204
// @Router			/v4/budgets [options]
func OptionsBudgetList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Budgets
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/budgets/{id} [options]
func OptionsBudgetDetail(c *gin.Context) {
	resourceOptionsDetail(c, models.Budget{}, httputil.OptionsGetDelete)
}

// @Summary		Create budget
// @Description	Creates new budgets
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Success		201		{object}	BudgetCreateResponse
// @Failure		400		{object}	BudgetCreateResponse
// @Failure		500		{object}	BudgetCreateResponse
// @Param			budgets	body		[]BudgetEditable	true	"Budgets"
// @Router			/v4/budgets [post]
func CreateBudgets(c *gin.Context) {
	var editables []BudgetEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BudgetCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := BudgetCreateResponse{}

	for _, editable := range editables {
		budget := editable.model()

		err = models.DB.Create(&budget).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newBudget(c, budget)
		r.Data = append(r.Data, BudgetResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		List budgets
// @Description	Returns a list of budgets
// @Tags			Budgets
// @Produce		json
// @Success		200		{object}	BudgetListResponse
// @Failure		400		{object}	BudgetListResponse
// @Failure		500		{object}	BudgetListResponse
// @Router			/v4/budgets [get]
// @Param			name	query	string	false	"Filter by name"
// @Param			offset	query	uint	false	"The offset of the first Budget returned. Defaults to 0."
// @Param			limit	query	int		false	"Maximum number of Budgets to return. Defaults to 50."
func GetBudgets(c *gin.Context) {
	filter := BudgetQueryFilter{Limit: 50}
	err := httputil.BindQuery(c, &filter)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BudgetListResponse{
			Error: &s,
		})
		return
	}

	q := models.DB.
		Order("name ASC, id ASC").
		Where(&models.Budget{Name: filter.Name})

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset)).Limit(filter.Limit)

	var budgets []models.Budget
	err = q.Find(&budgets).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BudgetListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BudgetListResponse{
			Error: &s,
		})
		return
	}

	data := make([]Budget, 0, len(budgets))
	for _, budget := range budgets {
		data = append(data, newBudget(c, budget))
	}

	c.JSON(http.StatusOK, BudgetListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  filter.Limit,
		},
	})
}

// @Summary		Get budget
// @Description	Returns a specific budget
// @Tags			Budgets
// @Produce		json
// @Success		200	{object}	BudgetResponse
// @Failure		400	{object}	BudgetResponse
// @Failure		404	{object}	BudgetResponse
// @Failure		500	{object}	BudgetResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/budgets/{id} [get]
func GetBudget(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BudgetResponse{
			Error: &s,
		})
		return
	}

	var budget models.Budget
	err = models.DB.First(&budget, "id = ?", uri.ID.UUID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BudgetResponse{
			Error: &s,
		})
		return
	}

	data := newBudget(c, budget)
	c.JSON(http.StatusOK, BudgetResponse{Data: &data})
}

// @Summary		Delete budget
// @Description	Deletes a budget
// @Tags			Budgets
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/budgets/{id} [delete]
func DeleteBudget(c *gin.Context) {
	deleteResource(c, models.Budget{})
}

// @Summary		Get emergency reserve
// @Description	Returns the emergency reserve of a budget
// @Tags			Budgets
// @Produce		json
// @Success		200	{object}	ReserveResponse
// @Failure		400	{object}	ReserveResponse
// @Failure		404	{object}	ReserveResponse
// @Failure		500	{object}	ReserveResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v4/budgets/{id}/reserve [get]
func (co Controller) GetReserve(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ReserveResponse{
			Error: &s,
		})
		return
	}

	reserve, err := co.Engine.GetReserve(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ReserveResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, ReserveResponse{Data: &reserve})
}

// @Summary		Deposit into emergency reserve
// @Description	Adds money to the emergency reserve of a budget. The reserve covers deficits of emergency fund envelopes with auto refill when a period is closed.
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReserveResponse
// @Failure		400		{object}	ReserveResponse
// @Failure		404		{object}	ReserveResponse
// @Failure		500		{object}	ReserveResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			deposit	body		ReserveDeposit	true	"Deposit"
// @Router			/v4/budgets/{id}/reserve [post]
func (co Controller) DepositReserve(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ReserveResponse{
			Error: &s,
		})
		return
	}

	var deposit ReserveDeposit
	err = httputil.BindData(c, &deposit)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ReserveResponse{
			Error: &s,
		})
		return
	}

	reserve, err := co.Engine.DepositReserve(c.Request.Context(), uri.ID.UUID, deposit.Amount)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ReserveResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, ReserveResponse{Data: &reserve})
}
