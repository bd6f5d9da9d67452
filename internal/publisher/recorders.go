package publisher

import (
	"context"
	"time"

	"github.com/angelmondragon/personacast-backend/pkg/bigquery"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/google/uuid"
)

// Content event types published on the content events topic.
const (
	EventContentPublished           = "content.published"
	EventContentPublishFailed       = "content.publish_failed"
	EventContentPublishDeadLettered = "content.publish_dead_lettered"
)

type eventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, attrs map[string]string, payload any) (string, error)
}

type attemptWriter interface {
	InsertPublishAttempts(ctx context.Context, rows ...bigquery.PublishAttemptRow) error
}

// PublishEvent is the payload of content publish events.
type PublishEvent struct {
	ContentID   string         `json:"content_id"`
	UserID      string         `json:"user_id"`
	Platform    enums.Platform `json:"platform"`
	Trigger     string         `json:"trigger,omitempty"`
	Attempt     int            `json:"attempt,omitempty"`
	ExternalID  string         `json:"external_id,omitempty"`
	ExternalURL string         `json:"external_url,omitempty"`
	Error       string         `json:"error,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// DeadLetter describes content whose publish retries are exhausted.
type DeadLetter struct {
	ContentID uuid.UUID
	UserID    uuid.UUID
	Platform  enums.Platform
	Attempts  int
	LastError string
	At        time.Time
}

// EventRecorder emits content publish events to Pub/Sub.
type EventRecorder struct {
	events eventPublisher
	logg   *logger.Logger
}

func NewEventRecorder(events eventPublisher, logg *logger.Logger) *EventRecorder {
	return &EventRecorder{events: events, logg: logg}
}

func (r *EventRecorder) RecordAttempt(ctx context.Context, attempt Attempt) {
	eventType := EventContentPublished
	if !attempt.Result.Success {
		eventType = EventContentPublishFailed
	}
	r.emit(ctx, eventType, attempt.Request.Platform, PublishEvent{
		ContentID:   attempt.Request.ContentID.String(),
		UserID:      attempt.Request.UserID.String(),
		Platform:    attempt.Request.Platform,
		Trigger:     attempt.Request.Trigger,
		Attempt:     attempt.Request.Attempt,
		ExternalID:  attempt.Result.ExternalID,
		ExternalURL: attempt.Result.ExternalURL,
		Error:       attempt.Result.Error,
		OccurredAt:  attempt.At,
	})
}

// DeadLettered emits content.publish_dead_lettered.
func (r *EventRecorder) DeadLettered(ctx context.Context, dl DeadLetter) {
	r.emit(ctx, EventContentPublishDeadLettered, dl.Platform, PublishEvent{
		ContentID:  dl.ContentID.String(),
		UserID:     dl.UserID.String(),
		Platform:   dl.Platform,
		Trigger:    TriggerScheduled,
		Attempt:    dl.Attempts,
		Error:      dl.LastError,
		OccurredAt: dl.At,
	})
}

func (r *EventRecorder) emit(ctx context.Context, eventType string, platform enums.Platform, payload PublishEvent) {
	if r == nil || r.events == nil {
		return
	}
	attrs := map[string]string{"platform": string(platform), "content_id": payload.ContentID}
	if _, err := r.events.PublishEvent(ctx, eventType, attrs, payload); err != nil && r.logg != nil {
		r.logg.Error(r.logg.WithField(ctx, "event_type", eventType), "publisher.event.emit_failed", err)
	}
}

// AnalyticsRecorder appends publish attempts to BigQuery.
type AnalyticsRecorder struct {
	writer attemptWriter
	logg   *logger.Logger
}

func NewAnalyticsRecorder(writer attemptWriter, logg *logger.Logger) *AnalyticsRecorder {
	return &AnalyticsRecorder{writer: writer, logg: logg}
}

func (r *AnalyticsRecorder) RecordAttempt(ctx context.Context, attempt Attempt) {
	if r == nil || r.writer == nil {
		return
	}
	row := bigquery.PublishAttemptRow{
		ContentID:   attempt.Request.ContentID.String(),
		UserID:      attempt.Request.UserID.String(),
		Platform:    string(attempt.Request.Platform),
		Trigger:     attempt.Request.Trigger,
		Success:     attempt.Result.Success,
		ExternalID:  attempt.Result.ExternalID,
		Error:       attempt.Result.Error,
		Attempt:     attempt.Request.Attempt,
		AttemptedAt: attempt.At,
	}
	if err := r.writer.InsertPublishAttempts(ctx, row); err != nil && r.logg != nil {
		r.logg.Error(ctx, "publisher.analytics.insert_failed", err)
	}
}
