package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/content"
	"github.com/angelmondragon/personacast-backend/internal/publisher"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	publishDueJobName         = "publish-due"
	defaultPublishBatchSize   = 100
	defaultMaxPublishAttempts = 5
)

type dueRepository interface {
	FindDue(ctx context.Context, before time.Time, limit int) ([]models.ContentItem, error)
	MarkPublished(ctx context.Context, id uuid.UUID, expected enums.ContentStatus, fields content.PublishedFields) (bool, error)
	RecordPublishFailure(ctx context.Context, id uuid.UUID, expected enums.ContentStatus, failure content.PublishFailure) (bool, error)
}

type deadLetterNotifier interface {
	DeadLettered(ctx context.Context, dl publisher.DeadLetter)
}

var errVideoNotReady = errors.New("video not ready")

type PublishDueJobParams struct {
	Repo        dueRepository
	Publisher   publisher.Publisher
	Notifier    deadLetterNotifier
	Metrics     *metrics.PublishMetrics
	Logger      *logger.Logger
	BatchSize   int
	MaxAttempts int
	Now         func() time.Time
}

// PublishDueJob publishes scheduled content whose time has come. Items are
// handled one at a time in due order and a failure of one never stops the rest.
type PublishDueJob struct {
	repo        dueRepository
	publisher   publisher.Publisher
	notifier    deadLetterNotifier
	metrics     *metrics.PublishMetrics
	logg        *logger.Logger
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

func NewPublishDueJob(params PublishDueJobParams) (*PublishDueJob, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("content repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPublishBatchSize
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxPublishAttempts
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &PublishDueJob{
		repo:        params.Repo,
		publisher:   params.Publisher,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		logg:        params.Logger,
		batchSize:   batch,
		maxAttempts: maxAttempts,
		now:         now,
	}, nil
}

func (j *PublishDueJob) Name() string { return publishDueJobName }

func (j *PublishDueJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	items, err := j.repo.FindDue(ctx, now, j.batchSize)
	if err != nil {
		return fmt.Errorf("find due content: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	j.logg.Info(j.logg.WithField(ctx, "due", len(items)), "scheduler.publish.sweep")

	var errs error
	published, failed := 0, 0
	for i := range items {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		ok, err := j.publishOne(ctx, &items[i])
		if err != nil {
			failed++
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			published++
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":       len(items),
		"published": published,
		"failed":    failed,
	}), "scheduler.publish.sweep_complete")
	return errs
}

func (j *PublishDueJob) publishOne(ctx context.Context, item *models.ContentItem) (published bool, err error) {
	ctx = j.logg.WithContentID(ctx, item.ID.String())
	defer func() {
		if r := recover(); r != nil {
			published = false
			err = fmt.Errorf("content %s: publish panic: %v", item.ID, r)
			j.logg.Error(ctx, "scheduler.publish.panic", err)
		}
	}()

	if item.Platform.IsVideoBearing() {
		if awaitingVideo(item) {
			j.logg.Info(ctx, "scheduler.publish.waiting_for_video")
			return false, nil
		}
		if item.PublishableVideoURL() == "" {
			return false, j.recordFailure(ctx, item, errVideoNotReady.Error())
		}
	}

	result := j.publisher.Publish(ctx, publisher.Request{
		ContentID: item.ID,
		UserID:    item.UserID,
		Platform:  item.Platform,
		Script:    item.ScriptText(),
		VideoURL:  item.PublishableVideoURL(),
		Trigger:   publisher.TriggerScheduled,
		Attempt:   item.PublishAttempts + 1,
	})
	if !result.Success {
		return false, j.recordFailure(ctx, item, result.Error)
	}

	ok, err := j.repo.MarkPublished(ctx, item.ID, enums.ContentStatusScheduled, content.PublishedFields{
		At:          j.now().UTC(),
		ExternalID:  result.ExternalID,
		ExternalURL: result.ExternalURL,
	})
	if err != nil {
		return false, fmt.Errorf("content %s: mark published: %w", item.ID, err)
	}
	if !ok {
		j.logg.Warn(j.logg.WithField(ctx, "external_id", result.ExternalID), "scheduler.publish.state_race")
		return false, nil
	}
	return true, nil
}

// awaitingVideo reports whether the item's video job is still running. While
// lip sync runs the raw render is already set, but the synced cut is the one to post.
func awaitingVideo(item *models.ContentItem) bool {
	if item.VideoStatus == nil || !item.VideoStatus.InFlight() {
		return false
	}
	return item.PublishableVideoURL() == "" || (item.LipSyncTaskID != nil && *item.LipSyncTaskID != "")
}

// recordFailure bumps the attempt counter and dead-letters the item once the
// budget is spent. It returns the publish error for aggregation.
func (j *PublishDueJob) recordFailure(ctx context.Context, item *models.ContentItem, msg string) error {
	now := j.now().UTC()
	attempts := item.PublishAttempts + 1
	failure := content.PublishFailure{Error: msg, At: now}
	deadLettered := attempts >= j.maxAttempts
	if deadLettered {
		failure.DeadLetteredAt = &now
	}

	publishErr := fmt.Errorf("content %s: publish attempt %d failed: %s", item.ID, attempts, msg)
	ok, err := j.repo.RecordPublishFailure(ctx, item.ID, enums.ContentStatusScheduled, failure)
	if err != nil {
		return multierr.Append(publishErr, fmt.Errorf("content %s: record failure: %w", item.ID, err))
	}
	if !ok || !deadLettered {
		return publishErr
	}

	j.logg.Warn(j.logg.WithFields(ctx, map[string]any{"attempts": attempts, "error": msg}), "scheduler.publish.dead_lettered")
	j.metrics.Inc(string(item.Platform), publisher.TriggerScheduled, metrics.PublishOutcomeDeadLettered)
	if j.notifier != nil {
		j.notifier.DeadLettered(ctx, publisher.DeadLetter{
			ContentID: item.ID,
			UserID:    item.UserID,
			Platform:  item.Platform,
			Attempts:  attempts,
			LastError: msg,
			At:        now,
		})
	}
	return publishErr
}
