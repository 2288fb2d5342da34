package engine

import (
	"context"
	"errors"

	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/envelope-zero/budget-engine/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBLedger sums the transactions stored in the database.
type DBLedger struct {
	DB *gorm.DB
}

func (l DBLedger) SpentAmount(ctx context.Context, categoryID uuid.UUID, start, end types.Date) (decimal.Decimal, error) {
	var transactions []models.Transaction
	err := l.DB.WithContext(ctx).
		Select("amount").
		Where(&models.Transaction{CategoryID: &categoryID}).
		Where("date >= ? AND date < ?", start.Time(), end.Time()).
		Find(&transactions).
		Error
	if err != nil {
		return decimal.Zero, err
	}

	// Summed here instead of in SQL since sqlite sums DECIMAL columns as floating point numbers
	spent := decimal.Zero
	for _, t := range transactions {
		spent = spent.Add(t.Amount)
	}

	return spent, nil
}

// DBDirectory looks up budgets and categories in the database.
type DBDirectory struct {
	DB *gorm.DB
}

func (d DBDirectory) BudgetExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(d.DB.WithContext(ctx), &models.Budget{}, id)
}

func (d DBDirectory) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(d.DB.WithContext(ctx), &models.Category{}, id)
}

func exists(db *gorm.DB, model any, id uuid.UUID) (bool, error) {
	var count int64
	err := db.Model(model).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// DBReserve keeps the emergency reserve of each budget in the database.
type DBReserve struct{}

// Cover withdraws up to amount from the reserve of the budget. A budget
// without a reserve covers nothing.
func (DBReserve) Cover(tx *gorm.DB, budgetID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var reserve models.EmergencyReserve
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(&models.EmergencyReserve{BudgetID: budgetID}).
		First(&reserve).
		Error
	if errors.Is(err, models.ErrResourceNotFound) {
		return decimal.Zero, nil
	} else if err != nil {
		return decimal.Zero, err
	}

	covered := decimal.Min(reserve.Balance, amount)
	if !covered.IsPositive() {
		return decimal.Zero, nil
	}

	reserve.Balance = reserve.Balance.Sub(covered)
	err = tx.Omit(clause.Associations).Save(&reserve).Error
	if err != nil {
		return decimal.Zero, err
	}

	return covered, nil
}
