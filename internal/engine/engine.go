// Package engine implements envelope allocation for budget periods: generating
// periods, allocating funds to envelopes, transferring funds between them,
// distributing a pool of funds over many envelopes and rolling balances over
// into the next period when a period is closed.
//
// All mutations run in a database transaction that locks the envelope rows it
// changes. Available amounts are always recomputed from the persisted values
// inside that transaction.
package engine

import (
	"context"
	"time"

	"github.com/envelope-zero/budget-engine/internal/config"
	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/envelope-zero/budget-engine/internal/types"
	ez_uuid "github.com/envelope-zero/budget-engine/internal/uuid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger reports spending per category.
type Ledger interface {
	// SpentAmount returns the sum of all transactions of the category with start <= date < end.
	SpentAmount(ctx context.Context, categoryID uuid.UUID, start, end types.Date) (decimal.Decimal, error)
}

// Directory answers if budgets and categories exist.
type Directory interface {
	BudgetExists(ctx context.Context, id uuid.UUID) (bool, error)
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Reserve covers deficits of emergency fund envelopes.
type Reserve interface {
	// Cover withdraws up to amount from the reserve of the budget and returns
	// the amount actually withdrawn. It runs in the transaction of the rollover.
	Cover(tx *gorm.DB, budgetID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

// Engine is the envelope allocation engine.
type Engine struct {
	db        *gorm.DB
	ledger    Ledger
	directory Directory
	reserve   Reserve
	settings  config.Settings
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLedger sets the ledger used to recompute spent amounts.
func WithLedger(l Ledger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// WithDirectory sets the directory used to validate budgets and categories.
func WithDirectory(d Directory) Option {
	return func(e *Engine) {
		e.directory = d
	}
}

// WithReserve sets the reserve used to refill emergency funds.
func WithReserve(r Reserve) Option {
	return func(e *Engine) {
		e.reserve = r
	}
}

// WithClock sets the function returning the current time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New returns an Engine. Unless replaced by options, the ledger, directory and
// reserve are backed by the same database.
func New(db *gorm.DB, settings config.Settings, opts ...Option) *Engine {
	e := &Engine{
		db:        db,
		ledger:    DBLedger{DB: db},
		directory: DBDirectory{DB: db},
		reserve:   DBReserve{},
		settings:  settings,
		now:       func() time.Time { return time.Now().In(time.UTC) },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Settings returns the settings of the engine.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// lockAllocations loads the allocations with the given IDs, locking their rows
// until the transaction ends. IDs are locked in ascending order so that
// concurrent transactions cannot deadlock. Missing IDs are not part of the result.
func lockAllocations(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.EnvelopeAllocation, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, ez_uuid.Compare)

	var allocations []models.EnvelopeAllocation
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&allocations).
		Error
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]models.EnvelopeAllocation, len(allocations))
	for _, a := range allocations {
		result[a.ID] = a
	}

	return result, nil
}

// lockAllocation loads a single allocation and locks its row.
func lockAllocation(tx *gorm.DB, id uuid.UUID) (models.EnvelopeAllocation, error) {
	var allocation models.EnvelopeAllocation
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&allocation, "id = ?", id).
		Error

	return allocation, err
}

// saveAllocation persists an allocation. The invariant is restored by the
// BeforeSave hook of the model.
func saveAllocation(tx *gorm.DB, allocation *models.EnvelopeAllocation) error {
	return tx.Omit(clause.Associations).Save(allocation).Error
}

// refreshPeriodTotals recomputes the aggregated amounts of a period from its
// allocations and rollover history.
func refreshPeriodTotals(tx *gorm.DB, periodID uuid.UUID) error {
	var allocations []models.EnvelopeAllocation
	err := tx.
		Select("allocated", "rollover", "spent").
		Where(&models.EnvelopeAllocation{PeriodInstanceID: periodID}).
		Find(&allocations).
		Error
	if err != nil {
		return err
	}

	var allocated, rollover, spent decimal.Decimal
	for _, a := range allocations {
		allocated = allocated.Add(a.Allocated)
		rollover = rollover.Add(a.Rollover)
		spent = spent.Add(a.Spent)
	}

	var histories []models.RolloverHistory
	err = tx.
		Select("reset_amount").
		Where(&models.RolloverHistory{FromPeriodID: periodID}).
		Find(&histories).
		Error
	if err != nil {
		return err
	}

	var adjustment decimal.Decimal
	for _, h := range histories {
		adjustment = adjustment.Add(h.ResetAmount)
	}

	return tx.Model(&models.PeriodInstance{}).Where("id = ?", periodID).Updates(map[string]any{
		"allocated":  allocated,
		"rollover":   rollover,
		"spent":      spent,
		"adjustment": adjustment,
	}).Error
}
