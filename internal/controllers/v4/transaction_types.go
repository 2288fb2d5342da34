package v4

import (
	"fmt"
	"time"

	"github.com/envelope-zero/budget-engine/internal/models"
	ez_uuid "github.com/envelope-zero/budget-engine/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionEditable represents all user configurable parameters
type TransactionEditable struct {
	BudgetID   uuid.UUID       `json:"budgetId" binding:"required" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the budget
	CategoryID *uuid.UUID      `json:"categoryId" example:"1e777d24-3f5b-4c43-8000-04f65f895578"`                   // The category the transaction is tagged with. Untagged transactions are not counted as spending
	Date       time.Time       `json:"date" example:"1815-12-10T18:43:00.271152Z"`                                  // Date of the transaction. Defaults to the current time
	Amount     decimal.Decimal `json:"amount" swaggertype:"string" example:"14.03"`                                 // Spending in the category. Negative amounts are refunds
	Note       string          `json:"note" example:"Lunch" default:""`                                             // A note about the transaction
}

func (editable TransactionEditable) model() models.Transaction {
	return models.Transaction{
		BudgetID:   editable.BudgetID,
		CategoryID: editable.CategoryID,
		Date:       editable.Date,
		Amount:     editable.Amount,
		Note:       editable.Note,
	}
}

type TransactionLinks struct {
	Self string `json:"self" example:"https://example.com/api/v4/transactions/d430d7c3-d14c-4712-9336-ee56965a6673"` // The transaction itself
}

type Transaction struct {
	models.DefaultModel
	TransactionEditable
	Links TransactionLinks `json:"links"`
}

func newTransaction(c *gin.Context, model models.Transaction) Transaction {
	url := c.GetString(string(models.DBContextURL))

	return Transaction{
		DefaultModel: model.DefaultModel,
		TransactionEditable: TransactionEditable{
			BudgetID:   model.BudgetID,
			CategoryID: model.CategoryID,
			Date:       model.Date,
			Amount:     model.Amount,
			Note:       model.Note,
		},
		Links: TransactionLinks{
			Self: fmt.Sprintf("%s/v4/transactions/%s", url, model.ID),
		},
	}
}

type TransactionListResponse struct {
	Data       []Transaction `json:"data"`                                                          // List of transactions
	Error      *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination   `json:"pagination"`                                                    // Pagination information
}

type TransactionCreateResponse struct {
	Data  []TransactionResponse `json:"data"`                                                          // List of created Transactions
	Error *string               `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (t *TransactionCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, TransactionResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type TransactionResponse struct {
	Data  *Transaction `json:"data"`                                                          // The transaction data, if creation was successful
	Error *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred for this transaction
}

type TransactionQueryFilter struct {
	BudgetID   ez_uuid.UUID `form:"budget"`                                                         // By budget ID
	CategoryID ez_uuid.UUID `form:"category"`                                                       // By category ID
	FromDate   time.Time    `form:"fromDate" time_format:"2006-01-02" time_utc:"1"`                 // Transactions at and after this date
	UntilDate  time.Time    `form:"untilDate" time_format:"2006-01-02" time_utc:"1"`                // Transactions before this date
	Offset     uint         `form:"offset"`                                                         // The offset of the first Transaction returned. Defaults to 0.
	Limit      int          `form:"limit"`                                                          // Maximum number of transactions to return. Defaults to 50.
}
