package engine

import (
	"context"
	"errors"

	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rolloverPlan is the outcome of the rollover of one envelope.
type rolloverPlan struct {
	Rolled     decimal.Decimal
	Reset      decimal.Decimal
	Refill     decimal.Decimal
	WrittenOff decimal.Decimal
	Age        int
}

// outcome returns the metric label for the plan.
func (p rolloverPlan) outcome() string {
	switch {
	case p.Reset.IsPositive():
		return "reset"
	case p.WrittenOff.IsPositive():
		return "written_off"
	case p.Refill.IsPositive():
		return "refilled"
	case !p.Rolled.IsZero():
		return "carried"
	default:
		return "empty"
	}
}

// planRollover computes what an envelope carries into the next period.
//
// cover is called with the deficit of envelopes that refill from the emergency
// reserve and returns the amount the reserve covered. defaultMaxPeriods is used
// for limited envelopes that do not configure their own limit.
//
// For limited envelopes, spending draws on the carried in funds first. When the
// carried in funds are older than the limit, what is left of them is reset and
// only the funds allocated in the closing period carry over, starting a new age.
func planRollover(envelope models.EnvelopeAllocation, defaultMaxPeriods int, cover func(decimal.Decimal) decimal.Decimal) rolloverPlan {
	envelope.Recompute()
	leftover := envelope.Available
	deficit := envelope.Deficit

	var plan rolloverPlan

	if envelope.RolloverMode == models.RolloverReset {
		plan.Reset = leftover
		plan.WrittenOff = deficit
		return plan
	}

	maxPeriods := envelope.Metadata.MaxRolloverPeriods
	if maxPeriods == 0 {
		maxPeriods = defaultMaxPeriods
	}
	expired := envelope.RolloverMode == models.RolloverLimited && envelope.RolloverAge+1 > maxPeriods

	if deficit.IsPositive() {
		if envelope.Metadata.Refills() && cover != nil {
			plan.Refill = decimal.Min(deficit, decimal.Max(decimal.Zero, cover(deficit)))
			deficit = deficit.Sub(plan.Refill)
		}

		if !deficit.IsPositive() {
			return plan
		}

		if expired {
			plan.WrittenOff = deficit
			return plan
		}

		plan.Rolled = deficit.Neg()
		plan.Age = envelope.RolloverAge + 1
		return plan
	}

	if !leftover.IsPositive() {
		return plan
	}

	if !expired {
		plan.Rolled = leftover
		plan.Age = envelope.RolloverAge + 1
		return plan
	}

	// Carried in funds that were not spent in the closing period
	carried := decimal.Min(leftover, decimal.Max(decimal.Zero, envelope.Rollover.Sub(envelope.Spent)))

	plan.Reset = carried
	plan.Rolled = leftover.Sub(carried)
	if plan.Rolled.IsPositive() {
		plan.Age = 1
	}

	return plan
}

// CloseResult is the result of closing a period.
type CloseResult struct {
	Period models.PeriodInstance `json:"period"`
	// The period the envelopes were rolled over into. Nil when the template has ended.
	Next   *models.PeriodInstance    `json:"next"`
	Rolled []models.RolloverHistory `json:"rolled"`
}

// ClosePeriod closes an active period and rolls the balance of every envelope
// of the period over into the next period of its template. The next period is
// generated when it does not exist yet and activated when it is a draft.
//
// Closing a closed period again processes only the envelopes that have not been
// rolled over yet, so a failed close can be retried safely.
func (e *Engine) ClosePeriod(ctx context.Context, id uuid.UUID) (CloseResult, error) {
	var result CloseResult

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period models.PeriodInstance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&period, "id = ?", id).Error
		if err != nil {
			return err
		}

		if period.Status != models.PeriodActive && period.Status != models.PeriodClosed {
			return models.ErrPeriodTransitionInvalid
		}

		next, err := nextPeriod(tx, period)
		if errors.Is(err, models.ErrResourceNotFound) {
			next, err = generateInstance(tx, period.TemplateID, &period.ID)
		}

		if err == nil {
			result.Next = &next
		} else if !errors.Is(err, models.ErrTemplateEnded) {
			return err
		}

		if period.Status == models.PeriodActive {
			period.Status = models.PeriodClosed
			if err := tx.Model(&period).Update("status", models.PeriodClosed).Error; err != nil {
				return err
			}
		}

		if result.Next != nil && result.Next.Status == models.PeriodDraft {
			active, err := hasActivePeriod(tx, period.BudgetID)
			if err != nil {
				return err
			}

			if !active {
				result.Next.Status = models.PeriodActive
				if err := tx.Model(result.Next).Update("status", models.PeriodActive).Error; err != nil {
					return err
				}
			}
		}

		result.Period = period
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}

	if result.Next == nil {
		log.Info().Str("period", id.String()).Msg("closed last period of the template, nothing to roll over")
		result.Rolled = []models.RolloverHistory{}
		return result, nil
	}

	envelopes, err := e.ListAllocations(ctx, AllocationFilter{PeriodID: id})
	if err != nil {
		return CloseResult{}, err
	}

	for _, envelope := range envelopes {
		err := e.rollover(ctx, envelope, result.Period, *result.Next)
		if errors.Is(err, models.ErrRolloverProcessed) {
			continue
		}

		if err != nil {
			return CloseResult{}, err
		}
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := refreshPeriodTotals(tx, result.Period.ID); err != nil {
			return err
		}

		if err := refreshPeriodTotals(tx, result.Next.ID); err != nil {
			return err
		}

		if err := tx.First(&result.Period, "id = ?", result.Period.ID).Error; err != nil {
			return err
		}

		if err := tx.First(result.Next, "id = ?", result.Next.ID).Error; err != nil {
			return err
		}

		return tx.
			Where(&models.RolloverHistory{FromPeriodID: id}).
			Order("envelope_id ASC").
			Find(&result.Rolled).
			Error
	})
	if err != nil {
		return CloseResult{}, err
	}

	log.Info().Str("period", id.String()).Str("next", result.Next.ID.String()).Int("envelopes", len(result.Rolled)).Msg("closed period")
	return result, nil
}

// rollover carries the balance of one envelope into its envelope in the next period.
// The spent amount is recomputed from the ledger first, so spending recorded since
// the last recompute is part of the carried balance.
//
// It returns models.ErrRolloverProcessed when the envelope has already been rolled over.
func (e *Engine) rollover(ctx context.Context, closing models.EnvelopeAllocation, period, next models.PeriodInstance) error {
	var (
		mode models.RolloverMode
		plan rolloverPlan
	)

	envelopeID := closing.ID

	// Read outside of the transaction, the ledger does not share it
	spent, err := e.ledger.SpentAmount(ctx, closing.CategoryID, period.StartDate, period.EndDate)
	if err != nil {
		return err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		envelope, err := lockAllocation(tx, envelopeID)
		if err != nil {
			return err
		}
		mode = envelope.RolloverMode

		var processed int64
		err = tx.Model(&models.RolloverHistory{}).Where(&models.RolloverHistory{
			EnvelopeID:   envelope.ID,
			FromPeriodID: envelope.PeriodInstanceID,
			ToPeriodID:   next.ID,
		}).Count(&processed).Error
		if err != nil {
			return err
		}
		if processed > 0 {
			return models.ErrRolloverProcessed
		}

		envelope.Spent = spent
		if err := saveAllocation(tx, &envelope); err != nil {
			return err
		}

		plan = planRollover(envelope, e.settings.DefaultMaxRolloverPeriods, func(deficit decimal.Decimal) decimal.Decimal {
			covered, err := e.reserve.Cover(tx, envelope.BudgetID, deficit)
			if err != nil {
				log.Warn().Err(err).Str("envelope", envelope.ID.String()).Msg("emergency reserve unavailable, carrying the full deficit")
				return decimal.Zero
			}
			return covered
		})

		target, err := e.nextAllocation(tx, envelope, next, plan)
		if err != nil {
			return err
		}

		history := models.RolloverHistory{
			EnvelopeID:     envelope.ID,
			FromPeriodID:   envelope.PeriodInstanceID,
			ToPeriodID:     next.ID,
			NextEnvelopeID: target.ID,
			Mode:           envelope.RolloverMode,
			RolledAmount:   plan.Rolled,
			ResetAmount:    plan.Reset,
			RefillAmount:   plan.Refill,
			WrittenOff:     plan.WrittenOff,
			Age:            plan.Age,
			ProcessedAt:    e.now(),
		}

		// The unique index on the history serializes concurrent rollovers of the same envelope
		return tx.Omit(clause.Associations).Create(&history).Error
	})
	if err != nil {
		if errors.Is(err, models.ErrRolloverProcessed) {
			rolloversTotal.WithLabelValues(string(mode), "skipped").Inc()
		}
		return err
	}

	rolloversTotal.WithLabelValues(string(mode), plan.outcome()).Inc()
	log.Debug().
		Str("envelope", envelopeID.String()).
		Str("mode", string(mode)).
		Str("rolled", plan.Rolled.String()).
		Str("reset", plan.Reset.String()).
		Msg("rolled over envelope")

	return nil
}

// nextAllocation sets the carried in amount on the envelope of the same category
// in the next period, creating the envelope if it does not exist.
func (e *Engine) nextAllocation(tx *gorm.DB, envelope models.EnvelopeAllocation, next models.PeriodInstance, plan rolloverPlan) (models.EnvelopeAllocation, error) {
	var target models.EnvelopeAllocation
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(&models.EnvelopeAllocation{
			BudgetID:         envelope.BudgetID,
			CategoryID:       envelope.CategoryID,
			PeriodInstanceID: next.ID,
		}).
		First(&target).
		Error

	if errors.Is(err, models.ErrResourceNotFound) {
		target = models.EnvelopeAllocation{
			BudgetID:         envelope.BudgetID,
			CategoryID:       envelope.CategoryID,
			PeriodInstanceID: next.ID,
			Paused:           envelope.Paused,
			RolloverMode:     envelope.RolloverMode,
			Metadata:         envelope.Metadata,
			Rollover:         plan.Rolled,
			RolloverAge:      plan.Age,
		}

		if e.settings.CopyAllocationsOnRollover {
			target.Allocated = decimal.Max(decimal.Zero, envelope.Allocated)
		}

		err = tx.Omit(clause.Associations).Create(&target).Error
		return target, err
	} else if err != nil {
		return models.EnvelopeAllocation{}, err
	}

	target.Rollover = plan.Rolled
	target.RolloverAge = plan.Age
	err = saveAllocation(tx, &target)
	return target, err
}
