package engine_test

import (
	"context"
	"errors"

	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/envelope-zero/budget-engine/internal/models"
	ez_uuid "github.com/envelope-zero/budget-engine/internal/uuid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// createSortedAllocations creates an envelope in the period for each template and returns them ordered by ID.
func (suite *TestSuiteStandard) createSortedAllocations(period models.PeriodInstance, templates ...models.EnvelopeAllocation) []models.EnvelopeAllocation {
	envelopes := make([]models.EnvelopeAllocation, 0, len(templates))
	for _, m := range templates {
		envelopes = append(envelopes, suite.createTestAllocation(period, m))
	}

	slices.SortFunc(envelopes, func(a, b models.EnvelopeAllocation) int {
		return ez_uuid.Compare(a.ID, b.ID)
	})

	return envelopes
}

func targets(envelopes []models.EnvelopeAllocation) []engine.BulkTarget {
	t := make([]engine.BulkTarget, 0, len(envelopes))
	for _, e := range envelopes {
		t = append(t, engine.BulkTarget{EnvelopeID: e.ID})
	}

	return t
}

// TestBulkAllocateEqualRemainder verifies the deterministic distribution of
// the remainder of an equal split.
func (suite *TestSuiteStandard) TestBulkAllocateEqualRemainder() {
	period := suite.createTestPeriod(uuid.Nil)
	envelopes := suite.createSortedAllocations(period, models.EnvelopeAllocation{}, models.EnvelopeAllocation{}, models.EnvelopeAllocation{})

	for i := 0; i < 2; i++ {
		for _, e := range envelopes {
			_, err := suite.engine.SetAllocated(context.Background(), e.ID, decimal.Zero)
			suite.Require().Nil(err)
		}

		result, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
			PeriodID: period.ID,
			Strategy: engine.StrategyEqual,
			Total:    decimal.RequireFromString("100.01"),
			Targets:  targets(envelopes),
		})
		suite.Require().Nil(err)
		suite.Require().Len(result.Allocations, 3)

		for j, expected := range []string{"33.34", "33.34", "33.33"} {
			suite.Assert().Equal(envelopes[j].ID, result.Allocations[j].ID)
			suite.assertDecimal(expected, result.Allocations[j].Allocated, "allocated")
			suite.assertDecimal(expected, result.Breakdown[j].StrategyAmount, "strategy amount")
			suite.assertDecimal(expected, result.Breakdown[j].FinalAllocatedAmount, "final amount")
		}
		suite.assertDecimal("0", result.Unallocated, "unallocated")
	}
}

func (suite *TestSuiteStandard) TestBulkAllocateCurrencyScale() {
	budget := suite.createTestBudget(models.Budget{Currency: "JPY"})
	template := suite.createTestTemplate(models.PeriodTemplate{BudgetID: budget.ID})
	period := suite.createTestPeriod(template.ID)
	envelopes := suite.createSortedAllocations(period, models.EnvelopeAllocation{}, models.EnvelopeAllocation{}, models.EnvelopeAllocation{})

	result, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyEqual,
		Total:    decimal.NewFromInt(1000),
		Targets:  targets(envelopes),
	})
	suite.Require().Nil(err)

	for j, expected := range []string{"334", "333", "333"} {
		suite.assertDecimal(expected, result.Allocations[j].Allocated, "allocated")
	}

	_, err = suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyEqual,
		Total:    decimal.RequireFromString("10.5"),
		Targets:  targets(envelopes),
	})
	suite.Assert().ErrorIs(err, models.ErrValidation, "Amounts must not be more precise than the currency")
}

// TestBulkAllocateDeficitFirst verifies that deficits are paid down before the
// strategy distributes the rest.
func (suite *TestSuiteStandard) TestBulkAllocateDeficitFirst() {
	period := suite.createTestPeriod(uuid.Nil)
	low := suite.createTestAllocation(period, models.EnvelopeAllocation{Metadata: models.EnvelopeMetadata{Priority: 1}})
	high := suite.createTestAllocation(period, models.EnvelopeAllocation{Metadata: models.EnvelopeMetadata{Priority: 5}})
	funded := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(10)})

	low = suite.spend(low, decimal.NewFromFloat(30))
	high = suite.spend(high, decimal.NewFromFloat(40))

	result, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyEqual,
		Total:    decimal.NewFromFloat(50),
		Targets:  targets([]models.EnvelopeAllocation{low, high, funded}),
	})
	suite.Require().Nil(err)

	for i, b := range result.Breakdown {
		switch b.EnvelopeID {
		case high.ID:
			suite.assertDecimal("40", b.PreDeficitAmount, "deficit payment of the high priority envelope")
			suite.assertDecimal("0", b.StrategyAmount, "strategy amount")
			suite.assertDecimal("0", result.Allocations[i].Deficit, "deficit")
		case low.ID:
			suite.assertDecimal("10", b.PreDeficitAmount, "deficit payment of the low priority envelope")
			suite.assertDecimal("20", result.Allocations[i].Deficit, "deficit")
		case funded.ID:
			suite.assertDecimal("0", b.PreDeficitAmount, "deficit payment")
			suite.assertDecimal("10", b.FinalAllocatedAmount, "final amount")
		}
	}
}

func (suite *TestSuiteStandard) TestBulkAllocatePercentage() {
	period := suite.createTestPeriod(uuid.Nil)
	envelopes := suite.createSortedAllocations(period, models.EnvelopeAllocation{}, models.EnvelopeAllocation{})

	fifty := decimal.NewFromInt(50)
	quarter := decimal.NewFromInt(25)

	result, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyPercentage,
		Total:    decimal.NewFromInt(200),
		Targets: []engine.BulkTarget{
			{EnvelopeID: envelopes[0].ID, Percentage: &fifty},
			{EnvelopeID: envelopes[1].ID, Percentage: &quarter},
		},
	})
	suite.Require().Nil(err)

	suite.assertDecimal("100", result.Allocations[0].Allocated, "allocated")
	suite.assertDecimal("50", result.Allocations[1].Allocated, "allocated")
	suite.assertDecimal("50", result.Unallocated, "unallocated")
}

func (suite *TestSuiteStandard) TestBulkAllocatePriority() {
	period := suite.createTestPeriod(uuid.Nil)
	first := suite.createTestAllocation(period, models.EnvelopeAllocation{
		Allocated: decimal.NewFromFloat(20),
		Metadata:  models.EnvelopeMetadata{Priority: 10, Target: decimal.NewNullDecimal(decimal.NewFromInt(100))},
	})
	second := suite.createTestAllocation(period, models.EnvelopeAllocation{
		Metadata: models.EnvelopeMetadata{Priority: 5, Target: decimal.NewNullDecimal(decimal.NewFromInt(100))},
	})
	last := suite.createTestAllocation(period, models.EnvelopeAllocation{})

	result, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyPriority,
		Total:    decimal.NewFromInt(120),
		Targets:  targets([]models.EnvelopeAllocation{last, second, first}),
	})
	suite.Require().Nil(err)

	for _, b := range result.Breakdown {
		switch b.EnvelopeID {
		case first.ID:
			suite.assertDecimal("80", b.StrategyAmount, "highest priority fills up to the target")
		case second.ID:
			suite.assertDecimal("40", b.StrategyAmount, "second priority gets the rest")
		case last.ID:
			suite.assertDecimal("0", b.StrategyAmount, "nothing left for the lowest priority")
		}
	}
}

func (suite *TestSuiteStandard) TestBulkAllocateManual() {
	period := suite.createTestPeriod(uuid.Nil)
	envelopes := suite.createSortedAllocations(period, models.EnvelopeAllocation{}, models.EnvelopeAllocation{})

	ten := decimal.NewFromInt(10)
	twenty := decimal.NewFromInt(20)

	result, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyManual,
		Total:    decimal.NewFromInt(40),
		Targets: []engine.BulkTarget{
			{EnvelopeID: envelopes[0].ID, Amount: &ten},
			{EnvelopeID: envelopes[1].ID, Amount: &twenty},
		},
	})
	suite.Require().Nil(err)
	suite.assertDecimal("10", result.Allocations[0].Allocated, "allocated")
	suite.assertDecimal("20", result.Allocations[1].Allocated, "allocated")
	suite.assertDecimal("10", result.Unallocated, "unallocated")

	_, err = suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyManual,
		Total:    decimal.NewFromInt(25),
		Targets: []engine.BulkTarget{
			{EnvelopeID: envelopes[0].ID, Amount: &ten},
			{EnvelopeID: envelopes[1].ID, Amount: &twenty},
		},
	})
	suite.Assert().ErrorIs(err, models.ErrInsufficientFunds)
	suite.Assert().ErrorIs(err, models.ErrValidation)
}

// TestBulkAllocateRejectsWholeBatch verifies that every problem is reported
// and nothing is changed.
func (suite *TestSuiteStandard) TestBulkAllocateRejectsWholeBatch() {
	template := suite.createTestTemplate(models.PeriodTemplate{})
	period := suite.createTestPeriod(template.ID)
	other := suite.createTestPeriod(template.ID)

	valid := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(5)})
	foreign := suite.createTestAllocation(other, models.EnvelopeAllocation{})
	missing := uuid.New()

	ok := decimal.NewFromInt(20)
	tooHigh := decimal.NewFromInt(150)
	negative := decimal.NewFromInt(-1)

	_, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyPercentage,
		Total:    decimal.NewFromInt(100),
		Targets: []engine.BulkTarget{
			{EnvelopeID: valid.ID, Percentage: &ok},
			{EnvelopeID: foreign.ID, Percentage: &negative},
			{EnvelopeID: missing, Percentage: &tooHigh},
		},
	})
	suite.Require().ErrorIs(err, models.ErrValidation)

	var validation *models.ValidationError
	suite.Require().True(errors.As(err, &validation))

	lines := map[uuid.UUID]int{}
	for _, l := range validation.Lines {
		suite.Require().NotNil(l.EnvelopeID, "Unexpected line: %s", l.Message)
		lines[*l.EnvelopeID]++
	}

	// Both invalid percentages, the envelope of another period and the missing envelope
	suite.Assert().Equal(2, lines[foreign.ID])
	suite.Assert().Equal(2, lines[missing])
	suite.Assert().Equal(0, lines[valid.ID])

	stored, err := suite.engine.GetAllocation(context.Background(), valid.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("5", stored.Allocated, "allocated")
}

// TestBulkAllocateManualOverTotal verifies that manual amounts above the total
// are reported together with the other problems of the request.
func (suite *TestSuiteStandard) TestBulkAllocateManualOverTotal() {
	period := suite.createTestPeriod(uuid.Nil)
	valid := suite.createTestAllocation(period, models.EnvelopeAllocation{})
	missing := uuid.New()

	large := decimal.NewFromInt(500)
	small := decimal.NewFromInt(10)

	_, err := suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyManual,
		Total:    decimal.NewFromInt(100),
		Targets: []engine.BulkTarget{
			{EnvelopeID: valid.ID, Amount: &large},
			{EnvelopeID: missing, Amount: &small},
		},
	})
	suite.Assert().ErrorIs(err, models.ErrInsufficientFunds)
	suite.Assert().ErrorIs(err, models.ErrValidation)

	var validation *models.ValidationError
	suite.Require().True(errors.As(err, &validation))
	suite.Require().Len(validation.Lines, 2, "Both the missing envelope and the amounts above the total must be reported")

	var request, envelope int
	for _, l := range validation.Lines {
		if l.EnvelopeID == nil {
			request++
			continue
		}
		suite.Assert().Equal(missing, *l.EnvelopeID)
		envelope++
	}
	suite.Assert().Equal(1, request)
	suite.Assert().Equal(1, envelope)

	stored, err := suite.engine.GetAllocation(context.Background(), valid.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("0", stored.Allocated, "allocated")
}

// TestBulkAllocateClosedPeriod verifies that a closed period is reported
// together with the problems of the targets.
func (suite *TestSuiteStandard) TestBulkAllocateClosedPeriod() {
	period := suite.createTestPeriod(uuid.Nil)
	envelope := suite.createTestAllocation(period, models.EnvelopeAllocation{})
	_, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)

	missing := uuid.New()
	_, err = suite.engine.BulkAllocate(context.Background(), engine.BulkRequest{
		PeriodID: period.ID,
		Strategy: engine.StrategyEqual,
		Total:    decimal.NewFromInt(10),
		Targets:  []engine.BulkTarget{{EnvelopeID: envelope.ID}, {EnvelopeID: missing}},
	})
	suite.Require().ErrorIs(err, models.ErrValidation)

	var validation *models.ValidationError
	suite.Require().True(errors.As(err, &validation))
	suite.Require().Len(validation.Lines, 2)
	suite.Assert().Nil(validation.Lines[0].EnvelopeID)
	suite.Assert().Equal(models.ErrPeriodNotOpen.Error(), validation.Lines[0].Message)
	suite.Require().NotNil(validation.Lines[1].EnvelopeID)
	suite.Assert().Equal(missing, *validation.Lines[1].EnvelopeID)
}

func (suite *TestSuiteStandard) TestBulkAllocateRequestErrors() {
	period := suite.createTestPeriod(uuid.Nil)
	envelope := suite.createTestAllocation(period, models.EnvelopeAllocation{})

	tests := []struct {
		name    string
		request engine.BulkRequest
		err     error
	}{
		{"Unknown strategy", engine.BulkRequest{PeriodID: period.ID, Strategy: "random", Total: decimal.NewFromInt(1), Targets: []engine.BulkTarget{{EnvelopeID: envelope.ID}}}, models.ErrValidation},
		{"Negative total", engine.BulkRequest{PeriodID: period.ID, Strategy: engine.StrategyEqual, Total: decimal.NewFromInt(-1), Targets: []engine.BulkTarget{{EnvelopeID: envelope.ID}}}, models.ErrValidation},
		{"No targets", engine.BulkRequest{PeriodID: period.ID, Strategy: engine.StrategyEqual, Total: decimal.NewFromInt(1)}, models.ErrValidation},
		{"Duplicate target", engine.BulkRequest{PeriodID: period.ID, Strategy: engine.StrategyEqual, Total: decimal.NewFromInt(1), Targets: []engine.BulkTarget{{EnvelopeID: envelope.ID}, {EnvelopeID: envelope.ID}}}, models.ErrValidation},
		{"Manual without amount", engine.BulkRequest{PeriodID: period.ID, Strategy: engine.StrategyManual, Total: decimal.NewFromInt(1), Targets: []engine.BulkTarget{{EnvelopeID: envelope.ID}}}, models.ErrValidation},
		{"Unknown period", engine.BulkRequest{PeriodID: uuid.New(), Strategy: engine.StrategyEqual, Total: decimal.NewFromInt(1), Targets: []engine.BulkTarget{{EnvelopeID: envelope.ID}}}, models.ErrResourceNotFound},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.engine.BulkAllocate(context.Background(), tt.request)
			suite.Assert().ErrorIs(err, tt.err)
		})
	}
}
