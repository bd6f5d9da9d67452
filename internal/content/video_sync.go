package content

import (
	"context"
	"fmt"

	"github.com/angelmondragon/personacast-backend/internal/providers/video"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/google/uuid"
)

type videoRepository interface {
	UpdateVideo(ctx context.Context, id uuid.UUID, expected enums.VideoStatus, update VideoUpdate) (bool, error)
}

// VideoSyncer advances an item's video job: render, then lip sync when the
// item has audio. A failed lip sync falls back to the raw render.
type VideoSyncer struct {
	repo  videoRepository
	video video.Dispatcher
	logg  *logger.Logger
}

func NewVideoSyncer(repo videoRepository, dispatcher video.Dispatcher, logg *logger.Logger) *VideoSyncer {
	return &VideoSyncer{repo: repo, video: dispatcher, logg: logg}
}

// Sync polls the provider once and persists any change. The returned item
// reflects the stored state; changed is false when nothing moved or a
// concurrent sync won the conditional update.
func (s *VideoSyncer) Sync(ctx context.Context, item *models.ContentItem) (*models.ContentItem, bool, error) {
	if item.VideoStatus == nil || !item.VideoStatus.InFlight() {
		return item, false, nil
	}
	prior := *item.VideoStatus

	update, err := s.next(ctx, item)
	if err != nil {
		return item, false, err
	}
	if update == nil || (update.Status == prior && update.VideoURL == nil && update.FinalVideoURL == nil && update.LipSyncTaskID == nil) {
		return item, false, nil
	}

	ok, err := s.repo.UpdateVideo(ctx, item.ID, prior, *update)
	if err != nil {
		return item, false, fmt.Errorf("update video status: %w", err)
	}
	if !ok {
		return item, false, nil
	}

	updated := *item
	status := update.Status
	updated.VideoStatus = &status
	if update.VideoURL != nil {
		updated.VideoURL = update.VideoURL
	}
	if update.FinalVideoURL != nil {
		updated.FinalVideoURL = update.FinalVideoURL
	}
	if update.LipSyncTaskID != nil {
		updated.LipSyncTaskID = update.LipSyncTaskID
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"content_id":   item.ID.String(),
			"video_status": string(status),
		}), "content.video.synced")
	}
	return &updated, true, nil
}

func (s *VideoSyncer) next(ctx context.Context, item *models.ContentItem) (*VideoUpdate, error) {
	if item.LipSyncTaskID != nil && *item.LipSyncTaskID != "" {
		return s.nextLipSync(ctx, item)
	}
	if item.VideoTaskID == nil || *item.VideoTaskID == "" {
		return &VideoUpdate{Status: enums.VideoStatusFailed}, nil
	}

	st, err := s.video.Status(ctx, *item.VideoTaskID)
	if err != nil {
		return nil, err
	}
	switch st.State {
	case enums.VideoStatusFailed:
		return &VideoUpdate{Status: enums.VideoStatusFailed}, nil
	case enums.VideoStatusCompleted:
		url := st.VideoURL
		if item.AudioURL == nil || *item.AudioURL == "" {
			return &VideoUpdate{Status: enums.VideoStatusCompleted, VideoURL: &url, FinalVideoURL: &url}, nil
		}
		lipSyncID, err := s.video.LipSync(ctx, *item.VideoTaskID, *item.AudioURL)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"content_id": item.ID.String(),
					"error":      err.Error(),
				}), "content.video.lip_sync_submit_failed")
			}
			return &VideoUpdate{Status: enums.VideoStatusCompleted, VideoURL: &url, FinalVideoURL: &url}, nil
		}
		return &VideoUpdate{Status: enums.VideoStatusProcessing, VideoURL: &url, LipSyncTaskID: &lipSyncID}, nil
	case enums.VideoStatusProcessing:
		return &VideoUpdate{Status: enums.VideoStatusProcessing}, nil
	default:
		return nil, nil
	}
}

func (s *VideoSyncer) nextLipSync(ctx context.Context, item *models.ContentItem) (*VideoUpdate, error) {
	st, err := s.video.LipSyncStatus(ctx, *item.LipSyncTaskID)
	if err != nil {
		return nil, err
	}
	switch st.State {
	case enums.VideoStatusCompleted:
		url := st.VideoURL
		return &VideoUpdate{Status: enums.VideoStatusCompleted, FinalVideoURL: &url}, nil
	case enums.VideoStatusFailed:
		if item.VideoURL == nil || *item.VideoURL == "" {
			return &VideoUpdate{Status: enums.VideoStatusFailed}, nil
		}
		raw := *item.VideoURL
		return &VideoUpdate{Status: enums.VideoStatusCompleted, FinalVideoURL: &raw}, nil
	default:
		return nil, nil
	}
}
