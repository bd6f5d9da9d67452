package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/publisher"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/pagination"
	"github.com/google/uuid"
)

type contentRepository interface {
	Create(ctx context.Context, item *models.ContentItem) error
	FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.ContentItem, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) (pagination.Page[models.ContentItem], error)
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next enums.ContentStatus, extra map[string]any) (bool, error)
	MarkPublished(ctx context.Context, id uuid.UUID, expected enums.ContentStatus, fields PublishedFields) (bool, error)
	RecordPublishFailure(ctx context.Context, id uuid.UUID, expected enums.ContentStatus, failure PublishFailure) (bool, error)
}

type videoSyncer interface {
	Sync(ctx context.Context, item *models.ContentItem) (*models.ContentItem, bool, error)
}

// CreateInput is a manually authored content item.
type CreateInput struct {
	Platform enums.Platform
	Script   string
	Topic    string
	Tone     string
	VideoURL string
	AvatarID *uuid.UUID
}

type ListInput struct {
	Filter     ListFilter
	Pagination pagination.Params
}

// TransitionInput carries a review action. ScheduledFor is required for schedule.
type TransitionInput struct {
	Action       enums.ContentAction
	ScheduledFor *time.Time
}

// Service exposes content CRUD and the lifecycle.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.ContentItem, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.ContentItem, error)
	List(ctx context.Context, userID uuid.UUID, input ListInput) (pagination.Page[models.ContentItem], error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Transition(ctx context.Context, userID, id uuid.UUID, input TransitionInput) (*models.ContentItem, error)
	PublishNow(ctx context.Context, userID, id uuid.UUID) (*publisher.Result, error)
	RefreshVideo(ctx context.Context, userID, id uuid.UUID) (*models.ContentItem, error)
}

type ServiceParams struct {
	Repo      contentRepository
	Publisher publisher.Publisher
	Videos    videoSyncer
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      contentRepository
	publisher publisher.Publisher
	videos    videoSyncer
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("content repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		videos:    params.Videos,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.ContentItem, error) {
	if !input.Platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported platform").WithDetails(map[string]any{"platform": input.Platform})
	}
	script := strings.TrimSpace(input.Script)
	if script == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "script is required")
	}
	videoURL := strings.TrimSpace(input.VideoURL)
	if videoURL != "" && !input.Platform.IsVideoBearing() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "text content cannot carry a video").WithDetails(map[string]any{"platform": input.Platform})
	}

	item := &models.ContentItem{
		UserID:      userID,
		AvatarID:    input.AvatarID,
		ContentType: input.Platform.ContentType(),
		Platform:    input.Platform,
		Topic:       optional(input.Topic),
		Tone:        optional(input.Tone),
		Script:      &script,
		Status:      enums.ContentStatusDraft,
	}
	if videoURL != "" {
		completed := enums.VideoStatusCompleted
		item.VideoURL = &videoURL
		item.FinalVideoURL = &videoURL
		item.VideoStatus = &completed
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create content")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*models.ContentItem, error) {
	item, err := s.repo.FindOwned(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "load content")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, input ListInput) (pagination.Page[models.ContentItem], error) {
	if input.Filter.Status != "" && !input.Filter.Status.IsValid() {
		return pagination.Page[models.ContentItem]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if input.Filter.Platform != "" && !input.Filter.Platform.IsValid() {
		return pagination.Page[models.ContentItem]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid platform filter")
	}
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return pagination.Page[models.ContentItem]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, userID, input.Filter, input.Pagination)
	if err != nil {
		return pagination.Page[models.ContentItem]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list content")
	}
	return page, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete content")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
	}
	return nil
}

// Transition applies a review action. Publish goes through the publisher and
// only changes state when the platform accepted the post.
func (s *service) Transition(ctx context.Context, userID, id uuid.UUID, input TransitionInput) (*models.ContentItem, error) {
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown action").WithDetails(map[string]any{"action": input.Action})
	}
	item, err := s.repo.FindOwned(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "load content")
	}
	ctx = s.withContent(ctx, item.ID)

	if input.Action == enums.ContentActionPublish {
		result, err := s.publish(ctx, item, publisher.TriggerManual)
		if err != nil {
			return nil, err
		}
		if !result.Success {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "publish failed").WithDetails(result)
		}
		return s.Get(ctx, userID, id)
	}

	next, err := NextStatus(item.Status, input.Action)
	if err != nil {
		return nil, err
	}

	extra := map[string]any{}
	switch input.Action {
	case enums.ContentActionSchedule:
		if input.ScheduledFor == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled_for is required")
		}
		at := input.ScheduledFor.UTC()
		if !at.After(s.now().UTC()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled_for must be in the future")
		}
		extra["scheduled_for"] = at
		extra["publish_attempts"] = 0
		extra["last_publish_error"] = nil
		extra["publish_dead_lettered_at"] = nil
		item.ScheduledFor = &at
		item.PublishAttempts = 0
		item.LastPublishError = nil
		item.PublishDeadLetteredAt = nil
	case enums.ContentActionUnschedule:
		extra["scheduled_for"] = nil
		item.ScheduledFor = nil
	}

	ok, err := s.repo.UpdateStatus(ctx, item.ID, item.Status, next, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "content changed concurrently")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"action": string(input.Action),
			"from":   string(item.Status),
			"to":     string(next),
		}), "content.transitioned")
	}
	item.Status = next
	return item, nil
}

// PublishNow publishes approved or scheduled content immediately. A failed
// platform call is reported in the result, not as an error.
func (s *service) PublishNow(ctx context.Context, userID, id uuid.UUID) (*publisher.Result, error) {
	item, err := s.repo.FindOwned(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "load content")
	}
	return s.publish(s.withContent(ctx, item.ID), item, publisher.TriggerManual)
}

func (s *service) publish(ctx context.Context, item *models.ContentItem, trigger string) (*publisher.Result, error) {
	if !CanPublish(item.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "content cannot be published in its current status").WithDetails(map[string]any{
			"status": item.Status,
		})
	}
	if item.Platform.IsVideoBearing() && item.PublishableVideoURL() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "video is not ready").WithDetails(map[string]any{
			"video_status": item.VideoStatus,
		})
	}

	result := s.publisher.Publish(ctx, publisher.Request{
		ContentID: item.ID,
		UserID:    item.UserID,
		Platform:  item.Platform,
		Script:    item.ScriptText(),
		VideoURL:  item.PublishableVideoURL(),
		Trigger:   trigger,
		Attempt:   item.PublishAttempts + 1,
	})
	now := s.now().UTC()

	if !result.Success {
		if _, err := s.repo.RecordPublishFailure(ctx, item.ID, item.Status, PublishFailure{Error: result.Error, At: now}); err != nil && s.logg != nil {
			s.logg.Error(ctx, "content.publish.record_failure_failed", err)
		}
		return &result, nil
	}

	ok, err := s.repo.MarkPublished(ctx, item.ID, item.Status, PublishedFields{
		At:            now,
		ExternalID:    result.ExternalID,
		ExternalURL:   result.ExternalURL,
		ClearSchedule: item.ScheduledFor != nil && item.ScheduledFor.After(now),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark content published")
	}
	if !ok {
		// The post is live but another writer moved the item first.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "external_id", result.ExternalID), "content.publish.state_race")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "content changed concurrently").WithDetails(result)
	}
	return &result, nil
}

// RefreshVideo polls the video provider for the item's in-flight job.
func (s *service) RefreshVideo(ctx context.Context, userID, id uuid.UUID) (*models.ContentItem, error) {
	item, err := s.repo.FindOwned(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "load content")
	}
	if item.VideoStatus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "content has no video job")
	}
	if s.videos == nil || !item.VideoStatus.InFlight() {
		return item, nil
	}
	updated, _, err := s.videos.Sync(s.withContent(ctx, item.ID), item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh video status")
	}
	return updated, nil
}

func (s *service) withContent(ctx context.Context, id uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithContentID(ctx, id.String())
}

func notFoundOr(err error, msg string) error {
	return pkgerrors.FromDB(err, "content", msg)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
