package engine

import (
	"context"

	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateAllocation creates the envelope for a category of a budget in a period.
//
// Spent and carried in amounts always start at zero. An empty rollover mode
// uses the configured default.
func (e *Engine) CreateAllocation(ctx context.Context, allocation models.EnvelopeAllocation) (models.EnvelopeAllocation, error) {
	if allocation.Allocated.IsNegative() {
		return models.EnvelopeAllocation{}, models.ErrAmountNegative
	}

	if allocation.RolloverMode == "" {
		allocation.RolloverMode = e.settings.DefaultRolloverMode
	}

	if !allocation.RolloverMode.Valid() {
		return models.EnvelopeAllocation{}, models.ErrRolloverModeInvalid
	}

	if err := allocation.Metadata.Validate(); err != nil {
		return models.EnvelopeAllocation{}, err
	}

	if err := e.requireBudget(ctx, allocation.BudgetID); err != nil {
		return models.EnvelopeAllocation{}, err
	}

	if err := e.requireCategory(ctx, allocation.CategoryID); err != nil {
		return models.EnvelopeAllocation{}, err
	}

	created := models.EnvelopeAllocation{
		BudgetID:         allocation.BudgetID,
		CategoryID:       allocation.CategoryID,
		PeriodInstanceID: allocation.PeriodInstanceID,
		Allocated:        allocation.Allocated,
		Paused:           allocation.Paused,
		RolloverMode:     allocation.RolloverMode,
		Metadata:         allocation.Metadata,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		err := tx.First(&category, "id = ?", created.CategoryID).Error
		if err != nil {
			return err
		}
		if category.BudgetID != created.BudgetID {
			return models.ErrCategoryMismatch
		}

		var period models.PeriodInstance
		err = tx.First(&period, "id = ?", created.PeriodInstanceID).Error
		if err != nil {
			return err
		}
		if period.BudgetID != created.BudgetID {
			return models.ErrPeriodMismatch
		}
		if !period.Status.Open() {
			return models.ErrPeriodNotOpen
		}

		err = tx.Omit(clause.Associations).Create(&created).Error
		if err != nil {
			return err
		}

		return refreshPeriodTotals(tx, created.PeriodInstanceID)
	})
	if err != nil {
		return models.EnvelopeAllocation{}, err
	}

	log.Debug().Str("envelope", created.ID.String()).Str("period", created.PeriodInstanceID.String()).Str("amount", created.Allocated.String()).Msg("created allocation")
	return created, nil
}

// GetAllocation returns an envelope.
func (e *Engine) GetAllocation(ctx context.Context, id uuid.UUID) (models.EnvelopeAllocation, error) {
	var allocation models.EnvelopeAllocation
	err := e.db.WithContext(ctx).First(&allocation, "id = ?", id).Error
	return allocation, err
}

// AllocationFilter selects envelopes. Zero values do not filter.
type AllocationFilter struct {
	BudgetID   uuid.UUID
	CategoryID uuid.UUID
	PeriodID   uuid.UUID
	Status     models.EnvelopeStatus
}

// ListAllocations returns all envelopes matching the filter, ordered by ID.
func (e *Engine) ListAllocations(ctx context.Context, filter AllocationFilter) ([]models.EnvelopeAllocation, error) {
	var allocations []models.EnvelopeAllocation
	err := e.db.WithContext(ctx).
		Where(&models.EnvelopeAllocation{
			BudgetID:         filter.BudgetID,
			CategoryID:       filter.CategoryID,
			PeriodInstanceID: filter.PeriodID,
			Status:           filter.Status,
		}).
		Order("id ASC").
		Find(&allocations).
		Error

	return allocations, err
}

// AllocationUpdate contains the user editable values of an envelope.
// Nil fields are left unchanged.
type AllocationUpdate struct {
	Allocated    *decimal.Decimal
	RolloverMode *models.RolloverMode
	Metadata     *models.EnvelopeMetadata
	Paused       *bool
}

// UpdateAllocation changes the user editable values of an envelope.
func (e *Engine) UpdateAllocation(ctx context.Context, id uuid.UUID, update AllocationUpdate) (models.EnvelopeAllocation, error) {
	if update.Allocated != nil && update.Allocated.IsNegative() {
		return models.EnvelopeAllocation{}, models.ErrAmountNegative
	}

	if update.RolloverMode != nil && !update.RolloverMode.Valid() {
		return models.EnvelopeAllocation{}, models.ErrRolloverModeInvalid
	}

	if update.Metadata != nil {
		if err := update.Metadata.Validate(); err != nil {
			return models.EnvelopeAllocation{}, err
		}
	}

	var allocation models.EnvelopeAllocation
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		allocation, err = lockAllocation(tx, id)
		if err != nil {
			return err
		}

		if update.Allocated != nil {
			var period models.PeriodInstance
			err = tx.First(&period, "id = ?", allocation.PeriodInstanceID).Error
			if err != nil {
				return err
			}

			if !period.Status.Open() {
				return models.ErrPeriodNotOpen
			}

			allocation.Allocated = *update.Allocated
		}

		if update.RolloverMode != nil {
			allocation.RolloverMode = *update.RolloverMode
		}

		if update.Metadata != nil {
			allocation.Metadata = *update.Metadata
		}

		if update.Paused != nil {
			allocation.Paused = *update.Paused
		}

		err = saveAllocation(tx, &allocation)
		if err != nil {
			return err
		}

		return refreshPeriodTotals(tx, allocation.PeriodInstanceID)
	})
	if err != nil {
		return models.EnvelopeAllocation{}, err
	}

	return allocation, nil
}

// SetAllocated sets the allocated amount of an envelope.
func (e *Engine) SetAllocated(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (models.EnvelopeAllocation, error) {
	return e.UpdateAllocation(ctx, id, AllocationUpdate{Allocated: &amount})
}

// Pause forces the paused status on an envelope until Unpause is called.
func (e *Engine) Pause(ctx context.Context, id uuid.UUID) (models.EnvelopeAllocation, error) {
	paused := true
	return e.UpdateAllocation(ctx, id, AllocationUpdate{Paused: &paused})
}

// Unpause removes the paused status from an envelope.
func (e *Engine) Unpause(ctx context.Context, id uuid.UUID) (models.EnvelopeAllocation, error) {
	paused := false
	return e.UpdateAllocation(ctx, id, AllocationUpdate{Paused: &paused})
}

// UpdateMetadata replaces the metadata of an envelope.
func (e *Engine) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata models.EnvelopeMetadata) (models.EnvelopeAllocation, error) {
	return e.UpdateAllocation(ctx, id, AllocationUpdate{Metadata: &metadata})
}

// SetRolloverMode changes the rollover mode of an envelope.
func (e *Engine) SetRolloverMode(ctx context.Context, id uuid.UUID, mode models.RolloverMode) (models.EnvelopeAllocation, error) {
	return e.UpdateAllocation(ctx, id, AllocationUpdate{RolloverMode: &mode})
}

// SetSpent sets the spent amount of an envelope. Setting the same amount again
// does not change the envelope.
func (e *Engine) SetSpent(ctx context.Context, id uuid.UUID, spent decimal.Decimal) (models.EnvelopeAllocation, error) {
	var allocation models.EnvelopeAllocation
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		allocation, err = lockAllocation(tx, id)
		if err != nil {
			return err
		}

		allocation.Spent = spent
		err = saveAllocation(tx, &allocation)
		if err != nil {
			return err
		}

		return refreshPeriodTotals(tx, allocation.PeriodInstanceID)
	})
	if err != nil {
		return models.EnvelopeAllocation{}, err
	}

	return allocation, nil
}

// RecomputeSpent sets the spent amount of an envelope to the spending the
// ledger reports for its category during its period.
func (e *Engine) RecomputeSpent(ctx context.Context, id uuid.UUID) (models.EnvelopeAllocation, error) {
	allocation, err := e.GetAllocation(ctx, id)
	if err != nil {
		return models.EnvelopeAllocation{}, err
	}

	period, err := e.GetPeriod(ctx, allocation.PeriodInstanceID)
	if err != nil {
		return models.EnvelopeAllocation{}, err
	}

	spent, err := e.ledger.SpentAmount(ctx, allocation.CategoryID, period.StartDate, period.EndDate)
	if err != nil {
		return models.EnvelopeAllocation{}, err
	}

	return e.SetSpent(ctx, id, spent)
}

// RecomputeSpentForPeriod recomputes the spent amount of every envelope of a period.
func (e *Engine) RecomputeSpentForPeriod(ctx context.Context, periodID uuid.UUID) ([]models.EnvelopeAllocation, error) {
	if _, err := e.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}

	allocations, err := e.ListAllocations(ctx, AllocationFilter{PeriodID: periodID})
	if err != nil {
		return nil, err
	}

	result := make([]models.EnvelopeAllocation, 0, len(allocations))
	for _, a := range allocations {
		updated, err := e.RecomputeSpent(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, updated)
	}

	return result, nil
}

// CopyAllocations creates an envelope in the target period for every envelope of the
// source period, with the same allocated amount, rollover mode and metadata.
// Categories that already have an envelope in the target period are skipped.
func (e *Engine) CopyAllocations(ctx context.Context, fromPeriodID, toPeriodID uuid.UUID) ([]models.EnvelopeAllocation, error) {
	var created []models.EnvelopeAllocation

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var from, to models.PeriodInstance
		if err := tx.First(&from, "id = ?", fromPeriodID).Error; err != nil {
			return err
		}
		if err := tx.First(&to, "id = ?", toPeriodID).Error; err != nil {
			return err
		}

		if from.BudgetID != to.BudgetID {
			return models.ErrPeriodMismatch
		}

		if !to.Status.Open() {
			return models.ErrPeriodNotOpen
		}

		var sources []models.EnvelopeAllocation
		err := tx.Where(&models.EnvelopeAllocation{PeriodInstanceID: fromPeriodID}).Order("id ASC").Find(&sources).Error
		if err != nil {
			return err
		}

		for _, source := range sources {
			var existing int64
			err := tx.Model(&models.EnvelopeAllocation{}).Where(&models.EnvelopeAllocation{
				BudgetID:         to.BudgetID,
				CategoryID:       source.CategoryID,
				PeriodInstanceID: to.ID,
			}).Count(&existing).Error
			if err != nil {
				return err
			}
			if existing > 0 {
				continue
			}

			allocation := models.EnvelopeAllocation{
				BudgetID:         to.BudgetID,
				CategoryID:       source.CategoryID,
				PeriodInstanceID: to.ID,
				Allocated:        decimal.Max(decimal.Zero, source.Allocated),
				RolloverMode:     source.RolloverMode,
				Metadata:         source.Metadata,
			}

			if err := tx.Omit(clause.Associations).Create(&allocation).Error; err != nil {
				return err
			}
			created = append(created, allocation)
		}

		return refreshPeriodTotals(tx, to.ID)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// ListTransfers returns all transfers from or to an envelope, oldest first.
func (e *Engine) ListTransfers(ctx context.Context, envelopeID uuid.UUID) ([]models.EnvelopeTransfer, error) {
	if _, err := e.GetAllocation(ctx, envelopeID); err != nil {
		return nil, err
	}

	var transfers []models.EnvelopeTransfer
	err := e.db.WithContext(ctx).
		Where("from_envelope_id = ? OR to_envelope_id = ?", envelopeID, envelopeID).
		Order("transferred_at ASC, id ASC").
		Find(&transfers).
		Error

	return transfers, err
}

// ListRolloverHistory returns the rollovers out of an envelope and the rollover
// into it, oldest first.
func (e *Engine) ListRolloverHistory(ctx context.Context, envelopeID uuid.UUID) ([]models.RolloverHistory, error) {
	if _, err := e.GetAllocation(ctx, envelopeID); err != nil {
		return nil, err
	}

	var history []models.RolloverHistory
	err := e.db.WithContext(ctx).
		Where("envelope_id = ? OR next_envelope_id = ?", envelopeID, envelopeID).
		Order("processed_at ASC, id ASC").
		Find(&history).
		Error

	return history, err
}
