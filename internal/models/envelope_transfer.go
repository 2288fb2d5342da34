package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnvelopeTransfer records a completed transfer of funds between two envelopes.
// It is never changed after it has been created.
type EnvelopeTransfer struct {
	DefaultModel
	FromEnvelopeID uuid.UUID          `json:"fromEnvelopeId" gorm:"index" example:"af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea"`
	FromEnvelope   EnvelopeAllocation `json:"-"`
	ToEnvelopeID   uuid.UUID          `json:"toEnvelopeId" gorm:"index" example:"1a2f6a3e-4a5c-43a3-8d1f-21b2ad1e9c40"`
	ToEnvelope     EnvelopeAllocation `json:"-"`
	Amount         decimal.Decimal    `json:"amount" gorm:"type:DECIMAL(20,8)" example:"30"`
	Reason         string             `json:"reason" example:"Dinner with friends went over"`
	TransferredBy  string             `json:"transferredBy" example:"morre"`
	TransferredAt  time.Time          `json:"transferredAt" example:"2024-03-12T19:28:44.491514Z"`
}

func (t *EnvelopeTransfer) BeforeCreate(tx *gorm.DB) error {
	t.Reason = strings.TrimSpace(t.Reason)
	t.TransferredBy = strings.TrimSpace(t.TransferredBy)

	if t.TransferredAt.IsZero() {
		t.TransferredAt = time.Now().In(time.UTC)
	}

	return t.DefaultModel.BeforeCreate(tx)
}

func (t *EnvelopeTransfer) AfterFind(tx *gorm.DB) error {
	t.TransferredAt = t.TransferredAt.In(time.UTC)
	return t.DefaultModel.AfterFind(tx)
}

func (t *EnvelopeTransfer) BeforeUpdate(_ *gorm.DB) error {
	return ErrImmutable
}

func (t *EnvelopeTransfer) BeforeDelete(_ *gorm.DB) error {
	return ErrImmutable
}

// RolloverHistory records the rollover of one envelope from a closed period into the next.
//
// The unique index on envelope, source and target period guarantees that
// an envelope is rolled over at most once per period.
type RolloverHistory struct {
	DefaultModel
	EnvelopeID     uuid.UUID          `json:"envelopeId" gorm:"uniqueIndex:idx_rollover_once" example:"af8e5a8e-0e28-4b2b-9a3d-e8e76ef3e5ea"`
	Envelope       EnvelopeAllocation `json:"-"`
	FromPeriodID   uuid.UUID          `json:"fromPeriodId" gorm:"uniqueIndex:idx_rollover_once" example:"d9ae9f30-5c4e-4c45-9d0e-02e5e7f2a35b"`
	ToPeriodID     uuid.UUID          `json:"toPeriodId" gorm:"uniqueIndex:idx_rollover_once" example:"0b5ad3f1-50c9-4d2d-92a2-5b6b6f1d2b0c"`
	NextEnvelopeID uuid.UUID          `json:"nextEnvelopeId" example:"5d3a36c4-8e0f-4d4b-a1a4-0f9f3c1c6d8e"` // The envelope in the next period that received the rollover
	Mode           RolloverMode       `json:"mode" example:"unlimited"`
	RolledAmount   decimal.Decimal    `json:"rolledAmount" gorm:"type:DECIMAL(20,8)" example:"50"`    // Carried into the next period. Negative for a carried deficit
	ResetAmount    decimal.Decimal    `json:"resetAmount" gorm:"type:DECIMAL(20,8)" example:"0"`      // Funds forfeited instead of carried
	RefillAmount   decimal.Decimal    `json:"refillAmount" gorm:"type:DECIMAL(20,8)" example:"0"`     // Deficit covered from the emergency reserve
	WrittenOff     decimal.Decimal    `json:"writtenOffAmount" gorm:"type:DECIMAL(20,8)" example:"0"` // Deficit dropped instead of carried
	Age            int                `json:"age" example:"1"`                                        // Rollover age of the carried amount in the next period
	ProcessedAt    time.Time          `json:"processedAt" example:"2024-04-01T00:00:12.491514Z"`
}

func (h *RolloverHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ProcessedAt.IsZero() {
		h.ProcessedAt = time.Now().In(time.UTC)
	}

	return h.DefaultModel.BeforeCreate(tx)
}

func (h *RolloverHistory) AfterFind(tx *gorm.DB) error {
	h.ProcessedAt = h.ProcessedAt.In(time.UTC)
	return h.DefaultModel.AfterFind(tx)
}

func (h *RolloverHistory) BeforeUpdate(_ *gorm.DB) error {
	return ErrImmutable
}

func (h *RolloverHistory) BeforeDelete(_ *gorm.DB) error {
	return ErrImmutable
}
