package v4_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	v4 "github.com/envelope-zero/budget-engine/internal/controllers/v4"
	"github.com/envelope-zero/budget-engine/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestTransactionsDBClosed() {
	suite.CloseDB()

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v4/transactions", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
}

func (suite *TestSuiteStandard) TestTransactionsCreate() {
	category := createTestCategory(suite.T(), v4.CategoryEditable{Name: "Groceries"})

	tests := []struct {
		name        string
		transaction v4.TransactionEditable
		status      int
	}{
		{"Tagged", v4.TransactionEditable{BudgetID: category.Data.BudgetID, CategoryID: &category.Data.ID, Amount: decimal.NewFromFloat(14.03), Note: " Lunch "}, http.StatusCreated},
		{"Untagged", v4.TransactionEditable{BudgetID: category.Data.BudgetID, Amount: decimal.NewFromInt(3)}, http.StatusCreated},
		{"Unknown budget", v4.TransactionEditable{BudgetID: uuid.New(), Amount: decimal.NewFromInt(3)}, http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			transaction := createTestTransaction(t, tt.transaction, tt.status)

			if tt.status == http.StatusCreated {
				assert.True(t, tt.transaction.Amount.Equal(transaction.Data.Amount))
				assert.False(t, transaction.Data.Date.IsZero(), "The date must default to the current time")
			}
		})
	}
}

func (suite *TestSuiteStandard) TestTransactionsGetList() {
	category := createTestCategory(suite.T(), v4.CategoryEditable{Name: "Groceries"})
	budgetID := category.Data.BudgetID

	for _, day := range []int{3, 10, 20} {
		createTestTransaction(suite.T(), v4.TransactionEditable{
			BudgetID:   budgetID,
			CategoryID: &category.Data.ID,
			Date:       time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
			Amount:     decimal.NewFromInt(int64(day)),
		})
	}
	createTestTransaction(suite.T(), v4.TransactionEditable{BudgetID: budgetID, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(1)})

	tests := []struct {
		name  string
		query string
		len   int
	}{
		{"All", "", 4},
		{"By category", fmt.Sprintf("category=%s", category.Data.ID), 3},
		{"From date", "fromDate=2024-01-10", 3},
		{"Until date", "untilDate=2024-01-10", 1},
		{"Date range", "fromDate=2024-01-01&untilDate=2024-02-01", 3},
		{"Limited", "limit=2", 2},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v4/transactions?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v4.TransactionListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.len)
		})
	}

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v4/transactions", "")
	var response v4.TransactionListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().True(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Equal(response.Data[0].Date), "Transactions must be ordered by date, newest first")
}

func (suite *TestSuiteStandard) TestTransactionsGetDelete() {
	transaction := createTestTransaction(suite.T(), v4.TransactionEditable{
		BudgetID: createTestBudget(suite.T(), v4.BudgetEditable{}).Data.ID,
		Amount:   decimal.NewFromInt(10),
	})

	r := test.Request(suite.T(), http.MethodGet, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	r = test.Request(suite.T(), http.MethodDelete, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodGet, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	r = test.Request(suite.T(), http.MethodGet, "http://example.com/v4/transactions/notaUUID", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}
