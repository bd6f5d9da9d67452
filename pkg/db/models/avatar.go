package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/personacast-backend/pkg/enums"
)

// Avatar is a creator likeness. VoiceID is the provider handle of the voice cloned
// from the avatar's source video.
type Avatar struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Name           string            `gorm:"column:name;type:text;not null" json:"name"`
	SourceVideoURL *string           `gorm:"column:source_video_url;type:text" json:"source_video_url,omitempty"`
	VoiceID        *string           `gorm:"column:voice_id;type:text" json:"voice_id,omitempty"`
	VoiceStatus    enums.VoiceStatus `gorm:"column:voice_status;type:text;not null;default:none" json:"voice_status"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Avatar) TableName() string { return "avatars" }

func (a *Avatar) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.VoiceStatus == "" {
		a.VoiceStatus = enums.VoiceStatusNone
	}
	return nil
}

// HasReadyVoice reports whether synthesis can use the avatar's cloned voice.
func (a *Avatar) HasReadyVoice() bool {
	return a != nil && a.VoiceStatus == enums.VoiceStatusReady && a.VoiceID != nil && *a.VoiceID != ""
}
