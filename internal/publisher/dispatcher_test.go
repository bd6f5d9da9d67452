package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/providers/platforms"
	"github.com/angelmondragon/personacast-backend/pkg/bigquery"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/google/uuid"
)

type handlerFunc func(ctx context.Context, post platforms.Post) (platforms.Published, error)

func (f handlerFunc) Publish(ctx context.Context, post platforms.Post) (platforms.Published, error) {
	return f(ctx, post)
}

type captureRecorder struct {
	attempts []Attempt
}

func (c *captureRecorder) RecordAttempt(_ context.Context, attempt Attempt) {
	c.attempts = append(c.attempts, attempt)
}

func TestPublishRoutesToPlatformHandler(t *testing.T) {
	rec := &captureRecorder{}
	var seen platforms.Post
	d := NewDispatcher(DispatcherParams{
		Handlers: map[enums.Platform]platforms.Handler{
			enums.PlatformTwitter: handlerFunc(func(_ context.Context, post platforms.Post) (platforms.Published, error) {
				seen = post
				return platforms.Published{ExternalID: "42", ExternalURL: "https://x.com/i/web/status/42"}, nil
			}),
		},
		Recorders: []Recorder{rec},
	})

	id := uuid.New()
	res := d.Publish(context.Background(), Request{ContentID: id, Platform: enums.PlatformTwitter, Script: "hi", Trigger: TriggerManual})
	if !res.Success || res.ExternalID != "42" || res.Platform != enums.PlatformTwitter {
		t.Fatalf("unexpected result %+v", res)
	}
	if seen.ContentID != id.String() || seen.Script != "hi" {
		t.Fatalf("unexpected post %+v", seen)
	}
	if len(rec.attempts) != 1 || !rec.attempts[0].Result.Success {
		t.Fatalf("expected one recorded attempt, got %+v", rec.attempts)
	}
}

func TestPublishUnsupportedPlatform(t *testing.T) {
	rec := &captureRecorder{}
	d := NewDispatcher(DispatcherParams{Recorders: []Recorder{rec}})

	res := d.Publish(context.Background(), Request{ContentID: uuid.New(), Platform: enums.PlatformTikTok})
	if res.Success || res.Error != "unsupported platform" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(rec.attempts) != 1 {
		t.Fatal("unsupported attempts are still recorded")
	}
}

func TestPublishNormalizesErrorsAndPanics(t *testing.T) {
	d := NewDispatcher(DispatcherParams{
		Handlers: map[enums.Platform]platforms.Handler{
			enums.PlatformTikTok: handlerFunc(func(context.Context, platforms.Post) (platforms.Published, error) {
				return platforms.Published{}, errors.New("token expired")
			}),
			enums.PlatformInstagram: handlerFunc(func(context.Context, platforms.Post) (platforms.Published, error) {
				panic("nil map")
			}),
		},
	})

	res := d.Publish(context.Background(), Request{Platform: enums.PlatformTikTok})
	if res.Success || res.Error != "token expired" {
		t.Fatalf("unexpected result %+v", res)
	}
	res = d.Publish(context.Background(), Request{Platform: enums.PlatformInstagram})
	if res.Success || res.Error != "publish handler panic: nil map" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPublishRateLimitRespectsContext(t *testing.T) {
	calls := 0
	d := NewDispatcher(DispatcherParams{
		Handlers: map[enums.Platform]platforms.Handler{
			enums.PlatformTwitter: handlerFunc(func(context.Context, platforms.Post) (platforms.Published, error) {
				calls++
				return platforms.Published{ExternalID: "1"}, nil
			}),
		},
		Rates: map[enums.Platform]float64{enums.PlatformTwitter: 0.001},
	})

	if res := d.Publish(context.Background(), Request{Platform: enums.PlatformTwitter}); !res.Success {
		t.Fatalf("first call should use the burst token: %+v", res)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := d.Publish(ctx, Request{Platform: enums.PlatformTwitter})
	if res.Success {
		t.Fatal("second call should be throttled")
	}
	if calls != 1 {
		t.Fatalf("handler should run once, ran %d", calls)
	}
}

type fakeEvents struct {
	types []string
	attrs []map[string]string
	err   error
}

func (f *fakeEvents) PublishEvent(_ context.Context, eventType string, attrs map[string]string, _ any) (string, error) {
	f.types = append(f.types, eventType)
	f.attrs = append(f.attrs, attrs)
	return "msg-1", f.err
}

type fakeWriter struct {
	rows []bigquery.PublishAttemptRow
}

func (f *fakeWriter) InsertPublishAttempts(_ context.Context, rows ...bigquery.PublishAttemptRow) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func TestRecordersEmitEventsAndRows(t *testing.T) {
	events := &fakeEvents{}
	writer := &fakeWriter{}
	eventRec := NewEventRecorder(events, nil)
	analytics := NewAnalyticsRecorder(writer, nil)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := Attempt{Request: Request{ContentID: uuid.New(), Platform: enums.PlatformTwitter, Trigger: TriggerScheduled, Attempt: 2}, Result: Result{Success: true, ExternalID: "9"}, At: at}
	failed := Attempt{Request: Request{ContentID: uuid.New(), Platform: enums.PlatformTikTok}, Result: Result{Error: "boom"}, At: at}

	for _, a := range []Attempt{ok, failed} {
		eventRec.RecordAttempt(context.Background(), a)
		analytics.RecordAttempt(context.Background(), a)
	}
	eventRec.DeadLettered(context.Background(), DeadLetter{ContentID: uuid.New(), Platform: enums.PlatformTikTok, Attempts: 5})

	want := []string{EventContentPublished, EventContentPublishFailed, EventContentPublishDeadLettered}
	if len(events.types) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), events.types)
	}
	for i := range want {
		if events.types[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], events.types[i])
		}
	}
	if events.attrs[0]["platform"] != "twitter" {
		t.Fatalf("expected platform attribute, got %v", events.attrs[0])
	}
	if len(writer.rows) != 2 || writer.rows[0].Attempt != 2 || !writer.rows[0].AttemptedAt.Equal(at) || writer.rows[1].Error != "boom" {
		t.Fatalf("unexpected rows %+v", writer.rows)
	}
}

func TestRecordersTolerateErrorsAndNil(t *testing.T) {
	var nilRec *EventRecorder
	nilRec.RecordAttempt(context.Background(), Attempt{})

	events := &fakeEvents{err: errors.New("topic gone")}
	NewEventRecorder(events, nil).RecordAttempt(context.Background(), Attempt{})
	if len(events.types) != 1 {
		t.Fatal("expected a publish attempt despite the error")
	}
}
