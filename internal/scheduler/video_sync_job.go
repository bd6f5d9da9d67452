package scheduler

import (
	"context"
	"fmt"

	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	videoSyncJobName          = "video-status-sync"
	defaultVideoSyncBatchSize = 25
)

type inFlightLister interface {
	ListVideoInFlight(ctx context.Context, limit int) ([]models.ContentItem, error)
}

type videoSyncer interface {
	Sync(ctx context.Context, item *models.ContentItem) (*models.ContentItem, bool, error)
}

// VideoSyncJob polls the video provider for items with unfinished renders.
type VideoSyncJob struct {
	repo      inFlightLister
	syncer    videoSyncer
	logg      *logger.Logger
	batchSize int
}

func NewVideoSyncJob(repo inFlightLister, syncer videoSyncer, logg *logger.Logger, batchSize int) (*VideoSyncJob, error) {
	if repo == nil || syncer == nil {
		return nil, fmt.Errorf("video sync dependencies required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if batchSize <= 0 {
		batchSize = defaultVideoSyncBatchSize
	}
	return &VideoSyncJob{repo: repo, syncer: syncer, logg: logg, batchSize: batchSize}, nil
}

func (j *VideoSyncJob) Name() string { return videoSyncJobName }

func (j *VideoSyncJob) Run(ctx context.Context) error {
	items, err := j.repo.ListVideoInFlight(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list in-flight videos: %w", err)
	}
	var errs error
	changed := 0
	for i := range items {
		_, moved, err := j.syncer.Sync(ctx, &items[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("content %s: %w", items[i].ID, err))
			continue
		}
		if moved {
			changed++
		}
	}
	if len(items) > 0 {
		j.logg.Debug(j.logg.WithFields(ctx, map[string]any{"in_flight": len(items), "changed": changed}), "scheduler.video_sync.complete")
	}
	return errs
}
