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

// GetReserve returns the emergency reserve of a budget. A budget that never
// received a deposit has an empty reserve.
func (e *Engine) GetReserve(ctx context.Context, budgetID uuid.UUID) (models.EmergencyReserve, error) {
	if err := e.requireBudget(ctx, budgetID); err != nil {
		return models.EmergencyReserve{}, err
	}

	var reserve models.EmergencyReserve
	err := e.db.WithContext(ctx).Where(&models.EmergencyReserve{BudgetID: budgetID}).First(&reserve).Error
	if errors.Is(err, models.ErrResourceNotFound) {
		return models.EmergencyReserve{BudgetID: budgetID, Balance: decimal.Zero}, nil
	}

	return reserve, err
}

// DepositReserve adds money to the emergency reserve of a budget.
func (e *Engine) DepositReserve(ctx context.Context, budgetID uuid.UUID, amount decimal.Decimal) (models.EmergencyReserve, error) {
	if !amount.IsPositive() {
		return models.EmergencyReserve{}, models.ErrAmountNotPositive
	}

	if err := e.requireBudget(ctx, budgetID); err != nil {
		return models.EmergencyReserve{}, err
	}

	var reserve models.EmergencyReserve
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.EmergencyReserve{BudgetID: budgetID}).
			First(&reserve).
			Error
		if errors.Is(err, models.ErrResourceNotFound) {
			reserve = models.EmergencyReserve{BudgetID: budgetID}
		} else if err != nil {
			return err
		}

		reserve.Balance = reserve.Balance.Add(amount)
		return tx.Omit(clause.Associations).Save(&reserve).Error
	})
	if err != nil {
		return models.EmergencyReserve{}, err
	}

	log.Info().Str("budget", budgetID.String()).Str("amount", amount.String()).Msg("reserve deposit")
	return reserve, nil
}

func (e *Engine) requireBudget(ctx context.Context, id uuid.UUID) error {
	ok, err := e.directory.BudgetExists(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return notFound("budget")
	}

	return nil
}

func (e *Engine) requireCategory(ctx context.Context, id uuid.UUID) error {
	ok, err := e.directory.CategoryExists(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return notFound("category")
	}

	return nil
}
