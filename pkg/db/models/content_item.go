package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/personacast-backend/pkg/enums"
)

// ContentItem is one generated script with its optional audio and video, tracked
// from draft through publication.
type ContentItem struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	AvatarID              *uuid.UUID          `gorm:"column:avatar_id;type:uuid" json:"avatar_id,omitempty"`
	ContentType           enums.ContentType   `gorm:"column:content_type;type:text;not null" json:"content_type"`
	Platform              enums.Platform      `gorm:"column:platform;type:text;not null" json:"platform"`
	Topic                 *string             `gorm:"column:topic;type:text" json:"topic,omitempty"`
	Tone                  *string             `gorm:"column:tone;type:text" json:"tone,omitempty"`
	Script                *string             `gorm:"column:script;type:text" json:"script,omitempty"`
	AudioURL              *string             `gorm:"column:audio_url;type:text" json:"audio_url,omitempty"`
	VideoURL              *string             `gorm:"column:video_url;type:text" json:"video_url,omitempty"`
	FinalVideoURL         *string             `gorm:"column:final_video_url;type:text" json:"final_video_url,omitempty"`
	VideoTaskID           *string             `gorm:"column:video_task_id;type:text" json:"video_task_id,omitempty"`
	LipSyncTaskID         *string             `gorm:"column:lip_sync_task_id;type:text" json:"lip_sync_task_id,omitempty"`
	VideoStatus           *enums.VideoStatus  `gorm:"column:video_status;type:text" json:"video_status,omitempty"`
	Status                enums.ContentStatus `gorm:"column:status;type:text;not null;index:idx_content_items_status_scheduled_for,priority:1" json:"status"`
	ScheduledFor          *time.Time          `gorm:"column:scheduled_for;type:timestamptz;index:idx_content_items_status_scheduled_for,priority:2" json:"scheduled_for,omitempty"`
	PublishedAt           *time.Time          `gorm:"column:published_at;type:timestamptz" json:"published_at,omitempty"`
	ExternalID            *string             `gorm:"column:external_id;type:text" json:"external_id,omitempty"`
	ExternalURL           *string             `gorm:"column:external_url;type:text" json:"external_url,omitempty"`
	PublishAttempts       int                 `gorm:"column:publish_attempts;not null;default:0" json:"publish_attempts"`
	LastPublishError      *string             `gorm:"column:last_publish_error;type:text" json:"last_publish_error,omitempty"`
	LastPublishAttemptAt  *time.Time          `gorm:"column:last_publish_attempt_at;type:timestamptz" json:"last_publish_attempt_at,omitempty"`
	PublishDeadLetteredAt *time.Time          `gorm:"column:publish_dead_lettered_at;type:timestamptz" json:"publish_dead_lettered_at,omitempty"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_items" }

func (c *ContentItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// PublishableVideoURL prefers the lip-synced render over the raw provider output.
func (c ContentItem) PublishableVideoURL() string {
	if c.FinalVideoURL != nil && *c.FinalVideoURL != "" {
		return *c.FinalVideoURL
	}
	if c.VideoURL != nil {
		return *c.VideoURL
	}
	return ""
}

// ScriptText returns the script or an empty string.
func (c ContentItem) ScriptText() string {
	if c.Script == nil {
		return ""
	}
	return *c.Script
}
