package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Persona is the creator's stored style profile. Topics and catchphrases are JSON
// string arrays.
type Persona struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	Bio            *string        `gorm:"column:bio;type:text" json:"bio,omitempty"`
	Topics         datatypes.JSON `gorm:"column:topics;type:jsonb" json:"topics,omitempty"`
	Style          *string        `gorm:"column:style;type:text" json:"style,omitempty"`
	Catchphrases   datatypes.JSON `gorm:"column:catchphrases;type:jsonb" json:"catchphrases,omitempty"`
	TargetAudience *string        `gorm:"column:target_audience;type:text" json:"target_audience,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Persona) TableName() string { return "personas" }

func (p *Persona) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
