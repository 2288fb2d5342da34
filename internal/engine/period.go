package engine

import (
	"context"
	"errors"

	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateTemplate stores a new period template for a budget.
func (e *Engine) CreateTemplate(ctx context.Context, template models.PeriodTemplate) (models.PeriodTemplate, error) {
	template.ID = uuid.Nil

	if err := template.Validate(); err != nil {
		return models.PeriodTemplate{}, err
	}

	if err := e.requireBudget(ctx, template.BudgetID); err != nil {
		return models.PeriodTemplate{}, err
	}

	err := e.db.WithContext(ctx).Omit(clause.Associations).Create(&template).Error
	if err != nil {
		return models.PeriodTemplate{}, err
	}

	return template, nil
}

// GenerateNextInstance creates the period following the latest period of the
// template. If after is set, the period following that period is created instead.
//
// The first period of a budget is created as active, all others as draft.
func (e *Engine) GenerateNextInstance(ctx context.Context, templateID uuid.UUID, after *uuid.UUID) (models.PeriodInstance, error) {
	var period models.PeriodInstance

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		period, err = generateInstance(tx, templateID, after)
		return err
	})
	if err != nil {
		return models.PeriodInstance{}, err
	}

	log.Debug().Str("template", templateID.String()).Str("period", period.ID.String()).Str("start", period.StartDate.String()).Str("end", period.EndDate.String()).Msg("generated period")
	return period, nil
}

func generateInstance(tx *gorm.DB, templateID uuid.UUID, after *uuid.UUID) (models.PeriodInstance, error) {
	var template models.PeriodTemplate
	err := tx.First(&template, "id = ?", templateID).Error
	if err != nil {
		return models.PeriodInstance{}, err
	}

	if err := template.Validate(); err != nil {
		return models.PeriodInstance{}, err
	}

	sequence := 0
	if after != nil {
		var previous models.PeriodInstance
		err := tx.Where(&models.PeriodInstance{TemplateID: templateID}).First(&previous, "id = ?", *after).Error
		if err != nil {
			return models.PeriodInstance{}, err
		}
		sequence = previous.Sequence + 1
	} else {
		var latest models.PeriodInstance
		err := tx.Where(&models.PeriodInstance{TemplateID: templateID}).Order("sequence DESC").First(&latest).Error
		if err == nil {
			sequence = latest.Sequence + 1
		} else if !errors.Is(err, models.ErrResourceNotFound) {
			return models.PeriodInstance{}, err
		}
	}

	start := template.StartOf(sequence)
	end := template.StartOf(sequence + 1)

	if !template.EndDate.IsZero() {
		if !start.Before(template.EndDate) {
			return models.PeriodInstance{}, models.ErrTemplateEnded
		}

		if end.After(template.EndDate) {
			end = template.EndDate
		}
	}

	// A period already covering this start date means the requested period is not the latest
	var count int64
	err = tx.Model(&models.PeriodInstance{}).Where(&models.PeriodInstance{TemplateID: templateID}).Where("start_date = ?", start).Count(&count).Error
	if err != nil {
		return models.PeriodInstance{}, err
	}
	if count > 0 {
		return models.PeriodInstance{}, models.ErrPeriodOverlap
	}

	status := models.PeriodDraft
	active, err := hasActivePeriod(tx, template.BudgetID)
	if err != nil {
		return models.PeriodInstance{}, err
	}
	if !active {
		status = models.PeriodActive
	}

	period := models.PeriodInstance{
		BudgetID:   template.BudgetID,
		TemplateID: template.ID,
		Sequence:   sequence,
		StartDate:  start,
		EndDate:    end,
		Status:     status,
	}

	err = tx.Omit(clause.Associations).Create(&period).Error
	return period, err
}

func hasActivePeriod(tx *gorm.DB, budgetID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&models.PeriodInstance{}).Where(&models.PeriodInstance{BudgetID: budgetID, Status: models.PeriodActive}).Count(&count).Error
	return count > 0, err
}

// transition moves a period to the next status.
func transition(tx *gorm.DB, id uuid.UUID, next models.PeriodStatus) (models.PeriodInstance, error) {
	var period models.PeriodInstance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&period, "id = ?", id).Error
	if err != nil {
		return models.PeriodInstance{}, err
	}

	if !period.Status.CanTransitionTo(next) {
		return models.PeriodInstance{}, models.ErrPeriodTransitionInvalid
	}

	if next == models.PeriodActive {
		active, err := hasActivePeriod(tx, period.BudgetID)
		if err != nil {
			return models.PeriodInstance{}, err
		}
		if active {
			return models.PeriodInstance{}, models.ErrActivePeriodExists
		}
	}

	period.Status = next
	err = tx.Model(&period).Update("status", next).Error
	if err != nil {
		return models.PeriodInstance{}, err
	}

	return period, nil
}

// ActivatePeriod makes a draft period the active period of its budget.
func (e *Engine) ActivatePeriod(ctx context.Context, id uuid.UUID) (models.PeriodInstance, error) {
	var period models.PeriodInstance
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		period, err = transition(tx, id, models.PeriodActive)
		return err
	})

	return period, err
}

// ArchivePeriod archives a closed period.
func (e *Engine) ArchivePeriod(ctx context.Context, id uuid.UUID) (models.PeriodInstance, error) {
	var period models.PeriodInstance
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		period, err = transition(tx, id, models.PeriodArchived)
		return err
	})

	return period, err
}

// GetPeriod returns a period.
func (e *Engine) GetPeriod(ctx context.Context, id uuid.UUID) (models.PeriodInstance, error) {
	var period models.PeriodInstance
	err := e.db.WithContext(ctx).First(&period, "id = ?", id).Error
	return period, err
}

// nextPeriod returns the period of the same template that starts when period ends.
func nextPeriod(tx *gorm.DB, period models.PeriodInstance) (models.PeriodInstance, error) {
	var next models.PeriodInstance
	err := tx.
		Where(&models.PeriodInstance{TemplateID: period.TemplateID}).
		Where("start_date = ?", period.EndDate).
		First(&next).
		Error

	return next, err
}

// GetTemplate returns a period template.
func (e *Engine) GetTemplate(ctx context.Context, id uuid.UUID) (models.PeriodTemplate, error) {
	var template models.PeriodTemplate
	err := e.db.WithContext(ctx).First(&template, "id = ?", id).Error
	return template, err
}

// ListTemplates returns the period templates of a budget. A nil budget ID returns all templates.
func (e *Engine) ListTemplates(ctx context.Context, budgetID uuid.UUID) ([]models.PeriodTemplate, error) {
	var templates []models.PeriodTemplate
	err := e.db.WithContext(ctx).
		Where(&models.PeriodTemplate{BudgetID: budgetID}).
		Order("start_date ASC, id ASC").
		Find(&templates).
		Error

	return templates, err
}

// PeriodFilter selects periods. Zero values do not filter.
type PeriodFilter struct {
	BudgetID   uuid.UUID
	TemplateID uuid.UUID
	Status     models.PeriodStatus
}

// ListPeriods returns all periods matching the filter, ordered by start date.
func (e *Engine) ListPeriods(ctx context.Context, filter PeriodFilter) ([]models.PeriodInstance, error) {
	var periods []models.PeriodInstance
	err := e.db.WithContext(ctx).
		Where(&models.PeriodInstance{
			BudgetID:   filter.BudgetID,
			TemplateID: filter.TemplateID,
			Status:     filter.Status,
		}).
		Order("start_date ASC, id ASC").
		Find(&periods).
		Error

	return periods, err
}
