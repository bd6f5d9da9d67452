package content

import (
	"context"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/repo"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows a content listing. Zero values match everything.
type ListFilter struct {
	Status   enums.ContentStatus
	Platform enums.Platform
}

// PublishedFields are stamped by a successful publish.
// PublishedFields are written with the published status. ClearSchedule drops
// a scheduled_for that is still in the future.
type PublishedFields struct {
	At            time.Time
	ExternalID    string
	ExternalURL   string
	ClearSchedule bool
}

// PublishFailure records one failed attempt. DeadLetteredAt is set when the
// attempt exhausted the retry budget.
type PublishFailure struct {
	Error          string
	At             time.Time
	DeadLetteredAt *time.Time
}

// VideoUpdate carries the video columns changed by a status sync. Nil fields
// are left untouched.
type VideoUpdate struct {
	Status        enums.VideoStatus
	VideoURL      *string
	FinalVideoURL *string
	LipSyncTaskID *string
}

// Repository persists content items. Every status change is conditional on the
// status the caller last observed.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, item *models.ContentItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := r.DB(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindOwned returns gorm.ErrRecordNotFound for items owned by someone else.
func (r *Repository) FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.ContentItem, error) {
	return repo.FindOwned[models.ContentItem](ctx, r.Base, userID, id)
}

// List pages newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) (pagination.Page[models.ContentItem], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.ContentItem]{}, err
	}

	query := r.DB(ctx).Model(&models.ContentItem{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ContentItem
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return pagination.Page[models.ContentItem]{}, err
	}
	return pagination.Trim(rows, params.Limit, func(item models.ContentItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	}), nil
}

func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.ContentItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateStatus moves an item from expected to next, applying extra columns in
// the same statement. It reports false when the item was no longer in expected.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next enums.ContentStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	return r.conditional(ctx, "id = ? AND status = ?", []any{id, expected}, updates)
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, expected enums.ContentStatus, fields PublishedFields) (bool, error) {
	extra := map[string]any{
		"published_at":       fields.At,
		"external_id":        fields.ExternalID,
		"external_url":       fields.ExternalURL,
		"last_publish_error": nil,
	}
	if fields.ClearSchedule {
		extra["scheduled_for"] = nil
	}
	return r.UpdateStatus(ctx, id, expected, enums.ContentStatusPublished, extra)
}

// RecordPublishFailure leaves the status unchanged and bumps the attempt counter.
func (r *Repository) RecordPublishFailure(ctx context.Context, id uuid.UUID, expected enums.ContentStatus, failure PublishFailure) (bool, error) {
	updates := map[string]any{
		"publish_attempts":        gorm.Expr("publish_attempts + 1"),
		"last_publish_error":      failure.Error,
		"last_publish_attempt_at": failure.At,
	}
	if failure.DeadLetteredAt != nil {
		updates["publish_dead_lettered_at"] = *failure.DeadLetteredAt
	}
	return r.conditional(ctx, "id = ? AND status = ?", []any{id, expected}, updates)
}

// FindDue returns scheduled, not dead-lettered items due at or before before,
// oldest due first.
func (r *Repository) FindDue(ctx context.Context, before time.Time, limit int) ([]models.ContentItem, error) {
	var items []models.ContentItem
	query := r.DB(ctx).
		Where("status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ? AND publish_dead_lettered_at IS NULL", enums.ContentStatusScheduled, before).
		Order("scheduled_for ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListVideoInFlight returns items whose video job is still pending or processing.
func (r *Repository) ListVideoInFlight(ctx context.Context, limit int) ([]models.ContentItem, error) {
	var items []models.ContentItem
	query := r.DB(ctx).
		Where("video_status IN ?", []enums.VideoStatus{enums.VideoStatusPending, enums.VideoStatusProcessing}).
		Order("updated_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateVideo applies a sync result when the video status is still expected.
func (r *Repository) UpdateVideo(ctx context.Context, id uuid.UUID, expected enums.VideoStatus, update VideoUpdate) (bool, error) {
	updates := map[string]any{"video_status": update.Status}
	if update.VideoURL != nil {
		updates["video_url"] = *update.VideoURL
	}
	if update.FinalVideoURL != nil {
		updates["final_video_url"] = *update.FinalVideoURL
	}
	if update.LipSyncTaskID != nil {
		updates["lip_sync_task_id"] = *update.LipSyncTaskID
	}
	return r.conditional(ctx, "id = ? AND video_status = ?", []any{id, expected}, updates)
}

func (r *Repository) conditional(ctx context.Context, where string, args []any, updates map[string]any) (bool, error) {
	res := r.DB(ctx).Model(&models.ContentItem{}).Where(where, args...).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
