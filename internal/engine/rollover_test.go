package engine_test

import (
	"context"

	"github.com/envelope-zero/budget-engine/internal/config"
	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/envelope-zero/budget-engine/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// nextEnvelope returns the envelope of the same category in the period.
func (suite *TestSuiteStandard) nextEnvelope(envelope models.EnvelopeAllocation, periodID uuid.UUID) models.EnvelopeAllocation {
	envelopes, err := suite.engine.ListAllocations(context.Background(), engine.AllocationFilter{
		CategoryID: envelope.CategoryID,
		PeriodID:   periodID,
	})
	suite.Require().Nil(err)
	suite.Require().Len(envelopes, 1, "There must be exactly one envelope for the category in the next period")

	return envelopes[0]
}

// TestRolloverLeftover closes a period with leftover funds and allocates
// fresh funds in the next period.
func (suite *TestSuiteStandard) TestRolloverLeftover() {
	period := suite.createTestPeriod(uuid.Nil)

	a := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(200), RolloverMode: models.RolloverUnlimited})
	a = suite.spend(a, decimal.NewFromFloat(150))
	suite.assertDecimal("50", a.Available, "available")
	suite.Assert().Equal(models.StatusActive, a.Status)

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	suite.Require().NotNil(result.Next)
	suite.Assert().Equal(models.PeriodClosed, result.Period.Status)
	suite.Assert().Equal(models.PeriodActive, result.Next.Status, "The next period must be activated")
	suite.Assert().Equal(period.EndDate, result.Next.StartDate)

	suite.Require().Len(result.Rolled, 1)
	suite.assertDecimal("50", result.Rolled[0].RolledAmount, "rolled")
	suite.assertDecimal("0", result.Rolled[0].ResetAmount, "reset")

	next := suite.nextEnvelope(a, result.Next.ID)
	suite.assertDecimal("50", next.Rollover, "rollover")
	suite.Assert().Equal(result.Rolled[0].NextEnvelopeID, next.ID)

	next, err = suite.engine.SetAllocated(context.Background(), next.ID, decimal.NewFromFloat(200))
	suite.Require().Nil(err)
	suite.assertDecimal("250", next.Available, "available in the next period")

	nextPeriod, err := suite.engine.GetPeriod(context.Background(), result.Next.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("50", nextPeriod.Rollover, "period rollover")
	suite.assertDecimal("200", nextPeriod.Allocated, "period allocated")
}

// TestRolloverRecomputesSpent verifies that spending recorded after the last
// recompute is part of the balance carried into the next period.
func (suite *TestSuiteStandard) TestRolloverRecomputesSpent() {
	period := suite.createTestPeriod(uuid.Nil)

	a := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(200), RolloverMode: models.RolloverUnlimited})
	a = suite.spend(a, decimal.NewFromFloat(150))
	suite.recordSpending(a, decimal.NewFromFloat(40))

	stale, err := suite.engine.GetAllocation(context.Background(), a.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("150", stale.Spent, "spent before the close")

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	suite.Require().Len(result.Rolled, 1)
	suite.assertDecimal("10", result.Rolled[0].RolledAmount, "rolled")

	closed, err := suite.engine.GetAllocation(context.Background(), a.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("190", closed.Spent, "spent after the close")
	suite.assertDecimal("10", closed.Available, "available after the close")

	suite.assertDecimal("10", suite.nextEnvelope(a, result.Next.ID).Rollover, "rollover")
	suite.assertDecimal("190", result.Period.Spent, "period spent")
}

func (suite *TestSuiteStandard) TestRolloverDeficitUnlimited() {
	period := suite.createTestPeriod(uuid.Nil)
	b := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(100)})
	b = suite.spend(b, decimal.NewFromFloat(130))

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)

	next := suite.nextEnvelope(b, result.Next.ID)
	suite.assertDecimal("-30", next.Rollover, "rollover")
	suite.assertDecimal("30", next.Deficit, "deficit")
	suite.Assert().Equal(models.StatusOverspent, next.Status)
}

// TestRolloverResetForfeits verifies that reset envelopes never carry funds.
func (suite *TestSuiteStandard) TestRolloverResetForfeits() {
	period := suite.createTestPeriod(uuid.Nil)
	leftover := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(120), RolloverMode: models.RolloverReset})
	overspent := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(10), RolloverMode: models.RolloverReset})
	overspent = suite.spend(overspent, decimal.NewFromFloat(25))

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	suite.Require().Len(result.Rolled, 2)

	for _, h := range result.Rolled {
		suite.assertDecimal("0", h.RolledAmount, "rolled")

		switch h.EnvelopeID {
		case leftover.ID:
			suite.assertDecimal("120", h.ResetAmount, "reset")
		case overspent.ID:
			suite.assertDecimal("15", h.WrittenOff, "written off")
		}
	}

	suite.assertDecimal("0", suite.nextEnvelope(leftover, result.Next.ID).Rollover, "rollover")
	suite.assertDecimal("0", suite.nextEnvelope(overspent, result.Next.ID).Rollover, "rollover")
	suite.assertDecimal("120", result.Period.Adjustment, "adjustment of the closed period")
}

// TestClosePeriodTwice verifies that closing a period again does not roll over twice.
func (suite *TestSuiteStandard) TestClosePeriodTwice() {
	period := suite.createTestPeriod(uuid.Nil)
	a := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(75)})
	b := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(10)})
	b = suite.spend(b, decimal.NewFromFloat(12))

	first, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)

	second, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)

	suite.Assert().Equal(first.Next.ID, second.Next.ID)
	suite.Require().Len(second.Rolled, 2)
	for i := range first.Rolled {
		suite.Assert().Equal(first.Rolled[i].ID, second.Rolled[i].ID)
	}

	var count int64
	suite.Require().Nil(models.DB.Model(&models.RolloverHistory{}).Where(&models.RolloverHistory{FromPeriodID: period.ID}).Count(&count).Error)
	suite.Assert().Equal(int64(2), count)

	suite.assertDecimal("75", suite.nextEnvelope(a, first.Next.ID).Rollover, "rollover of A")
	suite.assertDecimal("-2", suite.nextEnvelope(b, first.Next.ID).Rollover, "rollover of B")

	periods, err := suite.engine.ListPeriods(context.Background(), engine.PeriodFilter{BudgetID: period.BudgetID})
	suite.Require().Nil(err)
	suite.Assert().Len(periods, 2, "Closing twice must not generate another period")
}

// TestClosePeriodExistingNextEnvelope rolls over into an envelope that already exists.
func (suite *TestSuiteStandard) TestClosePeriodExistingNextEnvelope() {
	template := suite.createTestTemplate(models.PeriodTemplate{})
	period := suite.createTestPeriod(template.ID)
	nextPeriod := suite.createTestPeriod(template.ID)

	a := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(40)})
	existing := suite.createTestAllocation(nextPeriod, models.EnvelopeAllocation{CategoryID: a.CategoryID, Allocated: decimal.NewFromFloat(60)})

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(nextPeriod.ID, result.Next.ID)

	next := suite.nextEnvelope(a, nextPeriod.ID)
	suite.Assert().Equal(existing.ID, next.ID)
	suite.assertDecimal("60", next.Allocated, "allocated")
	suite.assertDecimal("100", next.Available, "available")
}

func (suite *TestSuiteStandard) TestClosePeriodCopiesAllocations() {
	settings := config.DefaultSettings()
	settings.CopyAllocationsOnRollover = true
	suite.withSettings(settings)

	period := suite.createTestPeriod(uuid.Nil)
	a := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(40), Metadata: models.EnvelopeMetadata{Priority: 2}})

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)

	next := suite.nextEnvelope(a, result.Next.ID)
	suite.assertDecimal("40", next.Allocated, "allocated")
	suite.assertDecimal("80", next.Available, "available")
	suite.Assert().Equal(2, next.Metadata.Priority)
}

// TestRolloverLimited expires carried funds after the configured number of periods.
func (suite *TestSuiteStandard) TestRolloverLimited() {
	template := suite.createTestTemplate(models.PeriodTemplate{})
	period := suite.createTestPeriod(template.ID)

	a := suite.createTestAllocation(period, models.EnvelopeAllocation{
		Allocated:    decimal.NewFromFloat(100),
		RolloverMode: models.RolloverLimited,
		Metadata:     models.EnvelopeMetadata{MaxRolloverPeriods: 1},
	})

	first, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	second := suite.nextEnvelope(a, first.Next.ID)
	suite.assertDecimal("100", second.Rollover, "rollover after the first close")
	suite.Assert().Equal(1, second.RolloverAge)

	// Fresh funds in the second period carry, the old ones expire
	second, err = suite.engine.SetAllocated(context.Background(), second.ID, decimal.NewFromFloat(30))
	suite.Require().Nil(err)

	last, err := suite.engine.ClosePeriod(context.Background(), first.Next.ID)
	suite.Require().Nil(err)
	suite.Require().Len(last.Rolled, 1)
	suite.assertDecimal("100", last.Rolled[0].ResetAmount, "reset")
	suite.assertDecimal("30", last.Rolled[0].RolledAmount, "rolled")

	third := suite.nextEnvelope(a, last.Next.ID)
	suite.assertDecimal("30", third.Rollover, "rollover after the second close")
	suite.Assert().Equal(1, third.RolloverAge)
}

func (suite *TestSuiteStandard) TestRolloverEmergencyRefill() {
	period := suite.createTestPeriod(uuid.Nil)
	_, err := suite.engine.DepositReserve(context.Background(), period.BudgetID, decimal.NewFromFloat(20))
	suite.Require().Nil(err)

	fund := suite.createTestAllocation(period, models.EnvelopeAllocation{
		Metadata: models.EnvelopeMetadata{EmergencyFund: true, AutoRefill: true},
	})
	fund = suite.spend(fund, decimal.NewFromFloat(50))

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	suite.Require().Len(result.Rolled, 1)
	suite.assertDecimal("20", result.Rolled[0].RefillAmount, "refill")
	suite.assertDecimal("-30", result.Rolled[0].RolledAmount, "rolled")

	reserve, err := suite.engine.GetReserve(context.Background(), period.BudgetID)
	suite.Require().Nil(err)
	suite.assertDecimal("0", reserve.Balance, "reserve balance")
}

func (suite *TestSuiteStandard) TestRolloverEmergencyWithoutReserve() {
	period := suite.createTestPeriod(uuid.Nil)
	fund := suite.createTestAllocation(period, models.EnvelopeAllocation{
		Metadata: models.EnvelopeMetadata{EmergencyFund: true, AutoRefill: true},
	})
	fund = suite.spend(fund, decimal.NewFromFloat(50))

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("0", result.Rolled[0].RefillAmount, "refill")
	suite.assertDecimal("-50", result.Rolled[0].RolledAmount, "rolled")
}

func (suite *TestSuiteStandard) TestClosePeriodTemplateEnded() {
	template := suite.createTestTemplate(models.PeriodTemplate{
		StartDate: types.NewDate(2024, 1, 1),
		EndDate:   types.NewDate(2024, 2, 1),
	})
	period := suite.createTestPeriod(template.ID)
	_ = suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(10)})

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)
	suite.Assert().Nil(result.Next)
	suite.Assert().Len(result.Rolled, 0)
	suite.Assert().Equal(models.PeriodClosed, result.Period.Status)
}

func (suite *TestSuiteStandard) TestClosePeriodDraft() {
	template := suite.createTestTemplate(models.PeriodTemplate{})
	_ = suite.createTestPeriod(template.ID)
	draft := suite.createTestPeriod(template.ID)

	_, err := suite.engine.ClosePeriod(context.Background(), draft.ID)
	suite.Assert().ErrorIs(err, models.ErrPeriodTransitionInvalid)
}

func (suite *TestSuiteStandard) TestListRolloverHistory() {
	period := suite.createTestPeriod(uuid.Nil)
	a := suite.createTestAllocation(period, models.EnvelopeAllocation{Allocated: decimal.NewFromFloat(10)})

	result, err := suite.engine.ClosePeriod(context.Background(), period.ID)
	suite.Require().Nil(err)

	out, err := suite.engine.ListRolloverHistory(context.Background(), a.ID)
	suite.Require().Nil(err)
	suite.Require().Len(out, 1)

	in, err := suite.engine.ListRolloverHistory(context.Background(), suite.nextEnvelope(a, result.Next.ID).ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(out, in)
}
