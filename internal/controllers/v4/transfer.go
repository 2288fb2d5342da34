package v4

import (
	"net/http"

	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/envelope-zero/budget-engine/internal/httputil"
	"github.com/gin-gonic/gin"
)

// RegisterTransferRoutes registers the routes for transfers with
// the RouterGroup that is passed.
func (co Controller) RegisterTransferRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsPost)
	r.POST("", co.CreateTransfer)
}

// @Summary		Transfer funds
// @Description	Moves funds from one envelope to another envelope of the same period.
// @Description	Fails with 422 when the source envelope does not have enough available funds.
// @Tags			Envelopes
// @Accept			json
// @Produce		json
// @Success		201			{object}	TransferResponse
// @Failure		400			{object}	TransferResponse
// @Failure		404			{object}	TransferResponse
// @Failure		422			{object}	TransferResponse
// @Failure		500			{object}	TransferResponse
// @Param			transfer	body		TransferEditable	true	"Transfer"
// @Router			/v4/transfers [post]
func (co Controller) CreateTransfer(c *gin.Context) {
	var editable TransferEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransferResponse{
			Error: &s,
		})
		return
	}

	result, err := co.Engine.Transfer(c.Request.Context(), engine.TransferRequest{
		From:   editable.FromEnvelopeID,
		To:     editable.ToEnvelopeID,
		Amount: editable.Amount,
		Reason: editable.Reason,
		Actor:  editable.TransferredBy,
	})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransferResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusCreated, TransferResponse{Data: &TransferResult{
		From:     newEnvelope(c, result.From),
		To:       newEnvelope(c, result.To),
		Transfer: result.Transfer,
	}})
}
