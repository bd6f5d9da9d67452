package avatars

import (
	"context"
	"fmt"

	"github.com/angelmondragon/personacast-backend/internal/repo"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles avatar persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, avatar *models.Avatar) error {
	if avatar == nil {
		return fmt.Errorf("avatar is required")
	}
	return r.DB(ctx).Create(avatar).Error
}

// ListByUser returns the user's avatars, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Avatar, error) {
	var avatars []models.Avatar
	err := r.Owned(ctx, userID).
		Order("created_at DESC").
		Find(&avatars).Error
	return avatars, err
}

// FindOwned loads an avatar scoped to its owner.
func (r *Repository) FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.Avatar, error) {
	return repo.FindOwned[models.Avatar](ctx, r.Base, userID, id)
}

// BeginCloning moves the avatar into processing unless a clone is already running.
// It reports false when no row matched.
func (r *Repository) BeginCloning(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Model(&models.Avatar{}).
		Where("id = ? AND user_id = ? AND voice_status <> ?", id, userID, enums.VoiceStatusProcessing).
		Update("voice_status", enums.VoiceStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FinishCloning records the cloning outcome.
func (r *Repository) FinishCloning(ctx context.Context, id uuid.UUID, status enums.VoiceStatus, voiceID, sourceURL *string) error {
	updates := map[string]any{"voice_status": status}
	if voiceID != nil {
		updates["voice_id"] = *voiceID
	}
	if sourceURL != nil {
		updates["source_video_url"] = *sourceURL
	}
	return r.DB(ctx).Model(&models.Avatar{}).
		Where("id = ? AND voice_status = ?", id, enums.VoiceStatusProcessing).
		Updates(updates).Error
}
