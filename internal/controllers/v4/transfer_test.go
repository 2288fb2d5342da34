package v4_test

import (
	"net/http"
	"testing"

	v4 "github.com/envelope-zero/budget-engine/internal/controllers/v4"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/envelope-zero/budget-engine/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestTransfersOptions() {
	r := test.Request(suite.T(), http.MethodOptions, "http://example.com/v4/transfers", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)
	suite.Assert().Equal("OPTIONS, POST", r.Header().Get("allow"))
}

func (suite *TestSuiteStandard) TestTransfersCreate() {
	_, period := suite.createTestSetup()
	from := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(100)})
	to := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(20)})

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v4/transfers", v4.TransferEditable{
		FromEnvelopeID: from.ID,
		ToEnvelopeID:   to.ID,
		Amount:         decimal.NewFromInt(30),
		Reason:         " Groceries ran over ",
		TransferredBy:  "morre",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	var response v4.TransferResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().NotNil(response.Data)
	suite.Assert().True(decimal.NewFromInt(70).Equal(response.Data.From.Allocated), "Source allocated is %s", response.Data.From.Allocated)
	suite.Assert().True(decimal.NewFromInt(50).Equal(response.Data.To.Allocated), "Destination allocated is %s", response.Data.To.Allocated)
	suite.Assert().Equal("Groceries ran over", response.Data.Transfer.Reason)
	suite.Assert().Equal(from.ID, response.Data.Transfer.FromEnvelopeID)

	// Both envelopes list the transfer
	for _, envelope := range []v4.Envelope{from, to} {
		r = test.Request(suite.T(), http.MethodGet, envelope.Links.Transfers, "")
		test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

		var transfers v4.TransferListResponse
		test.DecodeResponse(suite.T(), &r, &transfers)
		suite.Require().Len(transfers.Data, 1)
		suite.Assert().Equal(response.Data.Transfer.ID, transfers.Data[0].ID)
	}

	// The period total does not change
	r = test.Request(suite.T(), http.MethodGet, period.Links.Self, "")
	var p v4.PeriodResponse
	test.DecodeResponse(suite.T(), &r, &p)
	suite.Assert().True(decimal.NewFromInt(120).Equal(p.Data.Allocated), "Period allocated is %s", p.Data.Allocated)
}

func (suite *TestSuiteStandard) TestTransfersCreateFails() {
	_, period := suite.createTestSetup()
	from := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(10)})
	to := suite.createTestEnvelopeIn(period, v4.EnvelopeEditable{})

	_, otherPeriod := suite.createTestSetup()
	foreign := suite.createTestEnvelopeIn(otherPeriod, v4.EnvelopeEditable{Allocated: decimal.NewFromInt(10)})

	tests := []struct {
		name     string
		transfer v4.TransferEditable
		status   int
		err      string
	}{
		{"More than available", v4.TransferEditable{FromEnvelopeID: from.ID, ToEnvelopeID: to.ID, Amount: decimal.NewFromInt(11)}, http.StatusUnprocessableEntity, ""},
		{"Zero amount", v4.TransferEditable{FromEnvelopeID: from.ID, ToEnvelopeID: to.ID}, http.StatusBadRequest, models.ErrAmountNotPositive.Error()},
		{"Same envelope", v4.TransferEditable{FromEnvelopeID: from.ID, ToEnvelopeID: from.ID, Amount: decimal.NewFromInt(1)}, http.StatusBadRequest, models.ErrSameEnvelope.Error()},
		{"Different periods", v4.TransferEditable{FromEnvelopeID: from.ID, ToEnvelopeID: foreign.ID, Amount: decimal.NewFromInt(1)}, http.StatusBadRequest, models.ErrEnvelopesNotInSamePeriod.Error()},
		{"Unknown destination", v4.TransferEditable{FromEnvelopeID: from.ID, ToEnvelopeID: uuid.New(), Amount: decimal.NewFromInt(1)}, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, "http://example.com/v4/transfers", tt.transfer)
			test.AssertHTTPStatus(t, &r, tt.status)

			var response v4.TransferResponse
			test.DecodeResponse(t, &r, &response)
			assert.Nil(t, response.Data)
			if tt.err != "" {
				assert.Equal(t, tt.err, *response.Error)
			}
		})
	}

	// Failed transfers must not leave an audit record
	r := test.Request(suite.T(), http.MethodGet, from.Links.Transfers, "")
	var transfers v4.TransferListResponse
	test.DecodeResponse(suite.T(), &r, &transfers)
	suite.Assert().Len(transfers.Data, 0)
}

func (suite *TestSuiteStandard) TestTransfersBrokenBody() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v4/transfers", `{ "amount": 2" }`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}
