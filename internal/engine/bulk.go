package engine

import (
	"context"

	"github.com/envelope-zero/budget-engine/internal/models"
	ez_uuid "github.com/envelope-zero/budget-engine/internal/uuid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Strategy is the way bulk allocation distributes funds over envelopes.
type Strategy string

const (
	StrategyEqual      Strategy = "equal"      // Same amount for every envelope
	StrategyPriority   Strategy = "priority"   // Highest priority first, towards the target of each envelope
	StrategyPercentage Strategy = "percentage" // A percentage of the funds per envelope
	StrategyManual     Strategy = "manual"     // An exact amount per envelope
)

func (s Strategy) Valid() bool {
	return s == StrategyEqual || s == StrategyPriority || s == StrategyPercentage || s == StrategyManual
}

var hundred = decimal.NewFromInt(100)

// BulkTarget is one envelope of a bulk allocation.
type BulkTarget struct {
	EnvelopeID uuid.UUID        `json:"envelopeId" example:"af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea"`
	Percentage *decimal.Decimal `json:"percentage,omitempty" swaggertype:"string" example:"25"` // Required for the percentage strategy, between 0 and 100
	Amount     *decimal.Decimal `json:"amount,omitempty" swaggertype:"string" example:"120"`    // Required for the manual strategy
}

// BulkRequest distributes Total over the target envelopes of a period.
type BulkRequest struct {
	PeriodID uuid.UUID
	Strategy Strategy
	Total    decimal.Decimal
	Targets  []BulkTarget
}

// BulkBreakdown shows how the amount added to an envelope was determined.
type BulkBreakdown struct {
	EnvelopeID           uuid.UUID       `json:"envelopeId" example:"af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea"`
	PreDeficitAmount     decimal.Decimal `json:"preDeficitAmount" example:"30"`      // Used to pay down the deficit before distribution
	StrategyAmount       decimal.Decimal `json:"strategyAmount" example:"33.34"`      // Assigned by the strategy
	FinalAllocatedAmount decimal.Decimal `json:"finalAllocatedAmount" example:"263.34"` // Allocated amount of the envelope afterwards
}

// BulkResult contains the updated envelopes and a breakdown per envelope,
// both ordered by envelope ID.
type BulkResult struct {
	Allocations []models.EnvelopeAllocation `json:"allocations"`
	Breakdown   []BulkBreakdown             `json:"breakdown"`
	Unallocated decimal.Decimal             `json:"unallocatedAmount" example:"0"` // Part of the total that was not assigned to any envelope
}

// validate checks the request itself, without looking at the envelopes.
func (r BulkRequest) validate() []models.LineError {
	var lines []models.LineError

	if !r.Strategy.Valid() {
		lines = append(lines, models.NewLineError(uuid.Nil, "%s", models.ErrStrategyInvalid))
	}

	if r.Total.IsNegative() {
		lines = append(lines, models.NewLineError(uuid.Nil, "the total amount must not be negative"))
	}

	if len(r.Targets) == 0 {
		lines = append(lines, models.NewLineError(uuid.Nil, "at least one envelope is required"))
	}

	seen := make(map[uuid.UUID]bool, len(r.Targets))
	percentages := decimal.Zero
	amounts := decimal.Zero

	for _, t := range r.Targets {
		if t.EnvelopeID == uuid.Nil {
			lines = append(lines, models.NewLineError(uuid.Nil, "the envelope ID must be set"))
			continue
		}

		if seen[t.EnvelopeID] {
			lines = append(lines, models.NewLineError(t.EnvelopeID, "the envelope is listed more than once"))
			continue
		}
		seen[t.EnvelopeID] = true

		switch r.Strategy {
		case StrategyPercentage:
			if t.Percentage == nil {
				lines = append(lines, models.NewLineError(t.EnvelopeID, "a percentage is required"))
				continue
			}

			if t.Percentage.IsNegative() || t.Percentage.GreaterThan(hundred) {
				lines = append(lines, models.NewLineError(t.EnvelopeID, "the percentage must be between 0 and 100, got %s", t.Percentage))
				continue
			}
			percentages = percentages.Add(*t.Percentage)

		case StrategyManual:
			if t.Amount == nil {
				lines = append(lines, models.NewLineError(t.EnvelopeID, "an amount is required"))
				continue
			}

			if t.Amount.IsNegative() {
				lines = append(lines, models.NewLineError(t.EnvelopeID, "the amount must not be negative, got %s", t.Amount))
				continue
			}
			amounts = amounts.Add(*t.Amount)
		}
	}

	if percentages.GreaterThan(hundred) {
		lines = append(lines, models.NewLineError(uuid.Nil, "the percentages sum up to %s, which is more than 100", percentages))
	}

	if r.Strategy == StrategyManual && amounts.GreaterThan(r.Total) {
		lines = append(lines, models.NewLineError(uuid.Nil, "the amounts sum up to %s, which is more than the total of %s", amounts, r.Total).Shortfall())
	}

	return lines
}

// validatePrecision reports amounts with more decimal places than the currency of the budget has.
func (r BulkRequest) validatePrecision(scale int32) []models.LineError {
	var lines []models.LineError

	if !r.Total.Equal(r.Total.Truncate(scale)) {
		lines = append(lines, models.NewLineError(uuid.Nil, "the total amount %s has more than %d decimal places", r.Total, scale))
	}

	if r.Strategy != StrategyManual {
		return lines
	}

	for _, t := range r.Targets {
		if t.Amount != nil && !t.Amount.Equal(t.Amount.Truncate(scale)) {
			lines = append(lines, models.NewLineError(t.EnvelopeID, "the amount %s has more than %d decimal places", t.Amount, scale))
		}
	}

	return lines
}

// bulkPlan is the distribution of a bulk allocation before it is applied.
type bulkPlan struct {
	Breakdown   []BulkBreakdown
	Unallocated decimal.Decimal
}

// byPriority orders envelopes by descending priority, then by ascending ID.
func byPriority(a, b models.EnvelopeAllocation) int {
	if a.Metadata.Priority != b.Metadata.Priority {
		return b.Metadata.Priority - a.Metadata.Priority
	}
	return ez_uuid.Compare(a.ID, b.ID)
}

// planBulk distributes the total of the request over the envelopes. Envelopes
// must be ordered by ID and have their derived amounts computed. All amounts
// are rounded down to scale decimal places.
//
// Deficits are paid down first, highest priority first. The rest is distributed
// by the strategy. For the equal strategy, the smallest currency unit left over
// after dividing is given to the envelopes with the lowest IDs, one unit each.
func planBulk(request BulkRequest, envelopes []models.EnvelopeAllocation, scale int32) (bulkPlan, []models.LineError) {
	pool := request.Total
	pre := make(map[uuid.UUID]decimal.Decimal, len(envelopes))
	strategy := make(map[uuid.UUID]decimal.Decimal, len(envelopes))

	prioritized := slices.Clone(envelopes)
	slices.SortStableFunc(prioritized, byPriority)

	for _, e := range prioritized {
		if !e.Deficit.IsPositive() || !pool.IsPositive() {
			continue
		}

		pay := decimal.Min(e.Deficit, pool)
		pre[e.ID] = pay
		pool = pool.Sub(pay)
	}

	remaining := pool
	n := decimal.NewFromInt(int64(len(envelopes)))

	switch request.Strategy {
	case StrategyEqual:
		units := remaining.Shift(scale).Floor()
		share, rest := units.QuoRem(n, 0)
		extra := rest.IntPart()

		for i, e := range envelopes {
			amount := share
			if int64(i) < extra {
				amount = amount.Add(decimal.NewFromInt(1))
			}
			strategy[e.ID] = amount.Shift(-scale)
		}

	case StrategyPriority:
		even := remaining.Div(n).Truncate(scale)

		for _, e := range prioritized {
			need := even
			if e.Metadata.Target.Valid {
				need = decimal.Max(decimal.Zero, e.Metadata.Target.Decimal.Sub(e.Available))
			}

			amount := decimal.Min(need, pool).Truncate(scale)
			strategy[e.ID] = amount
			pool = pool.Sub(amount)
		}

	case StrategyPercentage:
		percentages := make(map[uuid.UUID]decimal.Decimal, len(request.Targets))
		for _, t := range request.Targets {
			if t.Percentage != nil {
				percentages[t.EnvelopeID] = *t.Percentage
			}
		}

		for _, e := range envelopes {
			strategy[e.ID] = remaining.Mul(percentages[e.ID]).Div(hundred).Truncate(scale)
		}

	case StrategyManual:
		sum := decimal.Zero
		for _, t := range request.Targets {
			if t.Amount != nil {
				strategy[t.EnvelopeID] = *t.Amount
				sum = sum.Add(*t.Amount)
			}
		}

		if sum.GreaterThan(remaining) {
			return bulkPlan{}, []models.LineError{models.NewLineError(uuid.Nil,
				"the amounts sum up to %s, but only %s of %s are left after paying down deficits",
				sum, remaining, request.Total).Shortfall()}
		}
	}

	plan := bulkPlan{Unallocated: request.Total}
	for _, e := range envelopes {
		b := BulkBreakdown{
			EnvelopeID:       e.ID,
			PreDeficitAmount: pre[e.ID],
			StrategyAmount:   strategy[e.ID],
		}
		b.FinalAllocatedAmount = e.Allocated.Add(b.PreDeficitAmount).Add(b.StrategyAmount)

		plan.Unallocated = plan.Unallocated.Sub(b.PreDeficitAmount).Sub(b.StrategyAmount)
		plan.Breakdown = append(plan.Breakdown, b)
	}

	return plan, nil
}

// BulkAllocate distributes funds over envelopes of a period.
//
// The request is rejected as a whole with a *models.ValidationError listing
// every problem when any part of it is invalid, including a period that is not
// open. Nothing is changed in that case. Only an unknown period is returned as
// a plain not found error.
func (e *Engine) BulkAllocate(ctx context.Context, request BulkRequest) (result BulkResult, err error) {
	label := string(request.Strategy)
	if !request.Strategy.Valid() {
		label = "invalid"
	}

	defer func() {
		bulkAllocationsTotal.WithLabelValues(label, resultLabel(err)).Inc()
	}()

	lines := request.validate()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period models.PeriodInstance
		if err := tx.First(&period, "id = ?", request.PeriodID).Error; err != nil {
			return err
		}

		if !period.Status.Open() {
			lines = append(lines, models.NewLineError(uuid.Nil, "%s", models.ErrPeriodNotOpen))
		}

		var budget models.Budget
		if err := tx.First(&budget, "id = ?", period.BudgetID).Error; err != nil {
			return err
		}
		scale := budget.Scale(e.settings.DefaultScale)
		lines = append(lines, request.validatePrecision(scale)...)

		ids := make([]uuid.UUID, 0, len(request.Targets))
		for _, t := range request.Targets {
			if t.EnvelopeID != uuid.Nil {
				ids = append(ids, t.EnvelopeID)
			}
		}

		locked, err := lockAllocations(tx, ids)
		if err != nil {
			return err
		}

		envelopes := make([]models.EnvelopeAllocation, 0, len(locked))
		reported := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			envelope, ok := locked[id]
			if reported[id] {
				continue
			}

			if !ok {
				reported[id] = true
				lines = append(lines, models.NewLineError(id, "the envelope does not exist"))
				continue
			}

			if envelope.PeriodInstanceID != period.ID {
				reported[id] = true
				lines = append(lines, models.NewLineError(id, "the envelope does not belong to period %s", period.ID))
				continue
			}

			envelope.Recompute()
			envelopes = append(envelopes, envelope)
			reported[id] = true
		}

		if len(lines) > 0 {
			return &models.ValidationError{Lines: lines}
		}

		slices.SortFunc(envelopes, func(a, b models.EnvelopeAllocation) int {
			return ez_uuid.Compare(a.ID, b.ID)
		})

		plan, shortfall := planBulk(request, envelopes, scale)
		if len(shortfall) > 0 {
			return &models.ValidationError{Lines: shortfall}
		}

		for i := range envelopes {
			envelopes[i].Allocated = plan.Breakdown[i].FinalAllocatedAmount
			if err := saveAllocation(tx, &envelopes[i]); err != nil {
				return err
			}
		}

		result = BulkResult{
			Allocations: envelopes,
			Breakdown:   plan.Breakdown,
			Unallocated: plan.Unallocated,
		}

		return refreshPeriodTotals(tx, period.ID)
	})
	if err != nil {
		return BulkResult{}, err
	}

	log.Info().
		Str("period", request.PeriodID.String()).
		Str("strategy", label).
		Str("amount", request.Total.String()).
		Int("envelopes", len(result.Allocations)).
		Msg("bulk allocated funds")

	return result, nil
}
