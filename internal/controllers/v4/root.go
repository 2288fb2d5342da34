package v4

import (
	"net/http"

	"github.com/envelope-zero/budget-engine/internal/httputil"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func RegisterRootRoutes(r *gin.RouterGroup) {
	r.GET("", Get)
	r.DELETE("", Cleanup)
	r.OPTIONS("", Options)
}

type Response struct {
	Links Links `json:"links"` // Links for the v4 API
}

type Links struct {
	Budgets         string `json:"budgets" example:"https://example.com/api/v4/budgets"`                  // URL of Budget collection endpoint
	Categories      string `json:"categories" example:"https://example.com/api/v4/categories"`            // URL of Category collection endpoint
	Transactions    string `json:"transactions" example:"https://example.com/api/v4/transactions"`        // URL of Transaction collection endpoint
	PeriodTemplates string `json:"periodTemplates" example:"https://example.com/api/v4/period-templates"` // URL of Period Template collection endpoint
	Periods         string `json:"periods" example:"https://example.com/api/v4/periods"`                  // URL of Period collection endpoint
	Envelopes       string `json:"envelopes" example:"https://example.com/api/v4/envelopes"`              // URL of Envelope collection endpoint
	Transfers       string `json:"transfers" example:"https://example.com/api/v4/transfers"`              // URL of the Transfer endpoint
}

// Get returns the link list for v4
//
//	@Summary		v4 API
//	@Description	Returns general information about the v4 API
//	@Tags			v4
//	@Success		200	{object}	Response
//	@Router			/v4 [get]
func Get(c *gin.Context) {
	url := c.GetString(string(models.DBContextURL))

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Budgets:         url + "/v4/budgets",
			Categories:      url + "/v4/categories",
			Transactions:    url + "/v4/transactions",
			PeriodTemplates: url + "/v4/period-templates",
			Periods:         url + "/v4/periods",
			Envelopes:       url + "/v4/envelopes",
			Transfers:       url + "/v4/transfers",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v4
//	@Success		204
//	@Router			/v4 [options]
func Options(c *gin.Context) {
	httputil.OptionsGetDelete(c)
}

// @Summary		Delete everything
// @Description	Permanently deletes all resources, including the audit records of transfers and rollovers
// @Tags			v4
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			confirm	query		string	false	"Confirmation to delete all resources. Must have the value 'yes-please-delete-everything'"
// @Router			/v4 [delete]
func Cleanup(c *gin.Context) {
	var params struct {
		Confirm string `form:"confirm"`
	}

	err := c.Bind(&params)
	if err != nil || params.Confirm != "yes-please-delete-everything" {
		c.JSON(http.StatusBadRequest, httpError{
			Error: errCleanupConfirmation.Error(),
		})
		return
	}

	// Foreign keys are checked during cleanup,
	// add new models *before* any of the models
	// they reference
	resources := []any{
		models.RolloverHistory{},
		models.EnvelopeTransfer{},
		models.EnvelopeAllocation{},
		models.PeriodInstance{},
		models.PeriodTemplate{},
		models.EmergencyReserve{},
		models.Transaction{},
		models.Category{},
		models.Budget{},
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		// Audit records refuse deletion in their hooks
		tx = tx.Session(&gorm.Session{SkipHooks: true})

		for _, model := range resources {
			err := tx.Unscoped().Where("true").Delete(&model).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
