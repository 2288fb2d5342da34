package v4_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	v4 "github.com/envelope-zero/budget-engine/internal/controllers/v4"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/envelope-zero/budget-engine/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestEnvelopesDBClosed() {
	suite.CloseDB()

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v4/envelopes", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)

	var response v4.EnvelopeListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(models.ErrGeneral.Error(), *response.Error)
}

func (suite *TestSuiteStandard) TestEnvelopesCreate() {
	budget, period := suite.createTestSetup()
	category := createTestCategory(suite.T(), v4.CategoryEditable{BudgetID: budget.ID})
	otherBudget := createTestBudget(suite.T(), v4.BudgetEditable{})
	foreignCategory := createTestCategory(suite.T(), v4.CategoryEditable{BudgetID: otherBudget.Data.ID})

	tests := []struct {
		name     string
		envelope v4.EnvelopeEditable
		status   int
	}{
		{"Default rollover mode", v4.EnvelopeEditable{BudgetID: budget.ID, CategoryID: category.Data.ID, PeriodID: period.ID, Allocated: decimal.NewFromInt(200)}, http.StatusCreated},
		{"Duplicate", v4.EnvelopeEditable{BudgetID: budget.ID, CategoryID: category.Data.ID, PeriodID: period.ID}, http.StatusConflict},
		{"Negative allocation", v4.EnvelopeEditable{BudgetID: budget.ID, PeriodID: period.ID, Allocated: decimal.NewFromInt(-1)}, http.StatusBadRequest},
		{"Invalid rollover mode", v4.EnvelopeEditable{BudgetID: budget.ID, PeriodID: period.ID, RolloverMode: "forever"}, http.StatusBadRequest},
		{"Category of another budget", v4.EnvelopeEditable{BudgetID: budget.ID, CategoryID: foreignCategory.Data.ID, PeriodID: period.ID}, http.StatusBadRequest},
		{"Unknown period", v4.EnvelopeEditable{BudgetID: budget.ID, PeriodID: uuid.New()}, http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			envelope := createTestEnvelope(t, tt.envelope, tt.status)

			if tt.status == http.StatusCreated {
				assert.Equal(t, models.RolloverUnlimited, envelope.Data.RolloverMode)
				assert.Equal(t, models.StatusActive, envelope.Data.Status)
				assert.True(t, envelope.Data.Available.Equal(decimal.NewFromInt(200)), "Available is %s", envelope.Data.Available)
				assert.True(t, envelope.Data.Spent.IsZero())
				assert.True(t, envelope.Data.Rollover.IsZero())
			}
		})
	}
}

func (suite *TestSuiteStandard) TestEnvelopesCreateBrokenBody() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v4/envelopes", `[{ "allocatedAmount": 2" }]`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestEnvelopesCreateClosedPeriod() {
	_, period := suite.createTestSetup()

	r := test.Request(suite.T(), http.MethodPost, period.Links.Close, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	createTestEnvelope(suite.T(), v4.EnvelopeEditable{BudgetID: period.BudgetID, PeriodID: period.ID}, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestEnvelopesGetList() {
	_, period := suite.createTestSetup()
	funded := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(10)})
	suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{})
	suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Paused: true})

	_, otherPeriod := suite.createTestSetup()
	suite.createTestEnvelopeIn(otherPeriod, v4.EnvelopeEditable{})

	tests := []struct {
		name  string
		query string
		len   int
	}{
		{"All", "", 4},
		{"By period", fmt.Sprintf("period=%s", period.ID), 3},
		{"By budget", fmt.Sprintf("budget=%s", period.BudgetID), 3},
		{"By category", fmt.Sprintf("category=%s", funded.CategoryID), 1},
		{"Active", "status=active", 1},
		{"Paused", "status=paused", 1},
		{"Depleted", fmt.Sprintf("period=%s&status=depleted", period.ID), 1},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v4/envelopes?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v4.EnvelopeListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.len)
		})
	}

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v4/envelopes?period=NotAUUID", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestEnvelopesGetSingle() {
	_, period := suite.createTestSetup()
	envelope := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{})

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"Existing", envelope.ID.String(), http.StatusOK},
		{"Unknown", uuid.New().String(), http.StatusNotFound},
		{"Not a UUID", "NotParseableAsUUID", http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v4/envelopes/%s", tt.id), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}

	r := test.Request(suite.T(), http.MethodGet, envelope.Links.Self, "")
	var response v4.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(fmt.Sprintf("http://example.com/v4/periods/%s", period.ID), response.Data.Links.Period)
	suite.Assert().Equal(fmt.Sprintf("http://example.com/v4/envelopes/%s/transfers", envelope.ID), response.Data.Links.Transfers)
}

func (suite *TestSuiteStandard) TestEnvelopesOptions() {
	_, period := suite.createTestSetup()
	envelope := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{})

	tests := []struct {
		path  string
		allow string
	}{
		{"http://example.com/v4/envelopes", "OPTIONS, GET, POST"},
		{envelope.Links.Self, "OPTIONS, GET, PATCH"},
		{envelope.Links.Recompute, "OPTIONS, POST"},
		{envelope.Links.Transfers, "OPTIONS, GET"},
		{envelope.Links.Rollovers, "OPTIONS, GET"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.path, func(t *testing.T) {
			r := test.Request(t, http.MethodOptions, tt.path, "")
			test.AssertHTTPStatus(t, &r, http.StatusNoContent)
			assert.Equal(t, tt.allow, r.Header().Get("allow"))
		})
	}
}

func (suite *TestSuiteStandard) TestEnvelopesUpdate() {
	_, period := suite.createTestSetup()
	envelope := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(50)})

	r := test.Request(suite.T(), http.MethodPatch, envelope.Links.Self, map[string]any{
		"allocatedAmount": "80",
		"rolloverMode":    "limited",
		"metadata": map[string]any{
			"priority":           3,
			"maxRolloverPeriods": 2,
		},
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v4.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().True(decimal.NewFromInt(80).Equal(response.Data.Allocated), "Allocated is %s", response.Data.Allocated)
	suite.Assert().True(decimal.NewFromInt(80).Equal(response.Data.Available), "Available is %s", response.Data.Available)
	suite.Assert().Equal(models.RolloverLimited, response.Data.RolloverMode)
	suite.Assert().Equal(3, response.Data.Metadata.Priority)

	r = test.Request(suite.T(), http.MethodPatch, envelope.Links.Self, map[string]any{"paused": true})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(models.StatusPaused, response.Data.Status)
	suite.Assert().True(decimal.NewFromInt(80).Equal(response.Data.Allocated), "Fields not sent must not change")
}

func (suite *TestSuiteStandard) TestEnvelopesUpdateFails() {
	_, period := suite.createTestSetup()
	envelope := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"Negative allocation", envelope.Links.Self, map[string]any{"allocatedAmount": "-5"}, http.StatusBadRequest},
		{"Invalid rollover mode", envelope.Links.Self, map[string]any{"rolloverMode": "forever"}, http.StatusBadRequest},
		{"Broken body", envelope.Links.Self, `{ "allocatedAmount": 2" }`, http.StatusBadRequest},
		{"Unknown envelope", fmt.Sprintf("http://example.com/v4/envelopes/%s", uuid.New()), map[string]any{"paused": true}, http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPatch, tt.path, tt.body)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestEnvelopesUpdateClosedPeriod() {
	_, period := suite.createTestSetup()
	envelope := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(5)})

	r := test.Request(suite.T(), http.MethodPost, period.Links.Close, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	r = test.Request(suite.T(), http.MethodPatch, envelope.Links.Self, map[string]any{"allocatedAmount": "10"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
	suite.Assert().True(strings.Contains(r.Body.String(), models.ErrPeriodNotOpen.Error()))
}

func (suite *TestSuiteStandard) TestEnvelopesRecompute() {
	_, period := suite.createTestSetup()
	envelope := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(30)})

	for _, amount := range []int64{20, 25} {
		createTestTransaction(suite.T(), v4.TransactionEditable{
			BudgetID:   envelope.BudgetID,
			CategoryID: &envelope.CategoryID,
			Date:       time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
			Amount:     decimal.NewFromInt(amount),
		})
	}

	// Outside of the period
	createTestTransaction(suite.T(), v4.TransactionEditable{
		BudgetID:   envelope.BudgetID,
		CategoryID: &envelope.CategoryID,
		Date:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.NewFromInt(1000),
	})

	r := test.Request(suite.T(), http.MethodPost, envelope.Links.Recompute, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v4.EnvelopeResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().True(decimal.NewFromInt(45).Equal(response.Data.Spent), "Spent is %s", response.Data.Spent)
	suite.Assert().True(response.Data.Available.IsZero(), "Available is %s", response.Data.Available)
	suite.Assert().True(decimal.NewFromInt(15).Equal(response.Data.Deficit), "Deficit is %s", response.Data.Deficit)
	suite.Assert().Equal(models.StatusOverspent, response.Data.Status)

	r = test.Request(suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v4/envelopes/%s/recompute", uuid.New()), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestEnvelopesHistoryUnknownEnvelope() {
	for _, resource := range []string{"transfers", "rollovers"} {
		suite.T().Run(resource, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v4/envelopes/%s/%s", uuid.New(), resource), "")
			test.AssertHTTPStatus(t, &r, http.StatusNotFound)
		})
	}
}
