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

// TransferRequest describes a transfer of funds between two envelopes.
type TransferRequest struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount decimal.Decimal
	Reason string
	Actor  string
}

// TransferResult contains both envelopes after a transfer and its audit record.
type TransferResult struct {
	From     models.EnvelopeAllocation `json:"from"`
	To       models.EnvelopeAllocation `json:"to"`
	Transfer models.EnvelopeTransfer   `json:"transfer"`
}

// Transfer moves funds from one envelope to another envelope of the same period.
//
// The allocated amount of the source envelope shrinks by the amount and the
// allocated amount of the destination grows by it. The available amount of the
// source is checked after both rows are locked, so a concurrent transfer that
// already consumed the funds makes this one fail with an *models.InsufficientFundsError.
func (e *Engine) Transfer(ctx context.Context, request TransferRequest) (result TransferResult, err error) {
	defer func() {
		transfersTotal.WithLabelValues(transferResult(err)).Inc()
	}()

	if !request.Amount.IsPositive() {
		return TransferResult{}, models.ErrAmountNotPositive
	}

	if request.From == request.To {
		return TransferResult{}, models.ErrSameEnvelope
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		envelopes, err := lockAllocations(tx, []uuid.UUID{request.From, request.To})
		if err != nil {
			return err
		}

		from, ok := envelopes[request.From]
		if !ok {
			return notFound("source envelope")
		}

		to, ok := envelopes[request.To]
		if !ok {
			return notFound("destination envelope")
		}

		if from.BudgetID != to.BudgetID || from.PeriodInstanceID != to.PeriodInstanceID {
			return models.ErrEnvelopesNotInSamePeriod
		}

		var period models.PeriodInstance
		err = tx.First(&period, "id = ?", from.PeriodInstanceID).Error
		if err != nil {
			return err
		}
		if !period.Status.Open() {
			return models.ErrPeriodNotOpen
		}

		// Amounts as persisted, in case the stored derived values are stale
		from.Recompute()
		to.Recompute()

		if request.Amount.GreaterThan(from.Available) {
			return &models.InsufficientFundsError{
				EnvelopeID: from.ID,
				Available:  from.Available,
				Requested:  request.Amount,
			}
		}

		from.Allocated = from.Allocated.Sub(request.Amount)
		to.Allocated = to.Allocated.Add(request.Amount)

		if err := saveAllocation(tx, &from); err != nil {
			return err
		}

		if err := saveAllocation(tx, &to); err != nil {
			return err
		}

		transfer := models.EnvelopeTransfer{
			FromEnvelopeID: from.ID,
			ToEnvelopeID:   to.ID,
			Amount:         request.Amount,
			Reason:         request.Reason,
			TransferredBy:  request.Actor,
			TransferredAt:  e.now(),
		}

		if err := tx.Omit(clause.Associations).Create(&transfer).Error; err != nil {
			return err
		}

		result = TransferResult{From: from, To: to, Transfer: transfer}
		return refreshPeriodTotals(tx, from.PeriodInstanceID)
	})
	if err != nil {
		return TransferResult{}, err
	}

	log.Info().
		Str("from", request.From.String()).
		Str("to", request.To.String()).
		Str("amount", request.Amount.String()).
		Msg("transferred funds")

	return result, nil
}

func transferResult(err error) string {
	if errors.Is(err, models.ErrInsufficientFunds) {
		return "insufficient_funds"
	}
	return resultLabel(err)
}
