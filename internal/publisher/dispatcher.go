package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/providers/platforms"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

const errUnsupportedPlatform = "unsupported platform"

// Request is one publish attempt for a content item.
type Request struct {
	ContentID uuid.UUID
	UserID    uuid.UUID
	Platform  enums.Platform
	Script    string
	VideoURL  string
	Trigger   string
	Attempt   int
}

// Result is the normalized outcome of a publish attempt.
type Result struct {
	Success     bool           `json:"success"`
	Platform    enums.Platform `json:"platform"`
	ExternalID  string         `json:"external_id,omitempty"`
	ExternalURL string         `json:"external_url,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Attempt pairs a request with its result for recorders.
type Attempt struct {
	Request Request
	Result  Result
	At      time.Time
}

// Recorder observes publish attempts. Implementations must not block for long;
// errors are the recorder's to log.
type Recorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt)
}

type Publisher interface {
	Publish(ctx context.Context, req Request) Result
}

// DispatcherParams configures the dispatcher. A platform without a rate entry
// is not throttled.
type DispatcherParams struct {
	Handlers  map[enums.Platform]platforms.Handler
	Rates     map[enums.Platform]float64
	Recorders []Recorder
	Metrics   *metrics.PublishMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

// Dispatcher routes publish requests to platform handlers.
type Dispatcher struct {
	handlers  map[enums.Platform]platforms.Handler
	limiters  map[enums.Platform]*rate.Limiter
	recorders []Recorder
	metrics   *metrics.PublishMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewDispatcher(params DispatcherParams) *Dispatcher {
	limiters := make(map[enums.Platform]*rate.Limiter, len(params.Rates))
	for platform, perSec := range params.Rates {
		if perSec <= 0 {
			continue
		}
		limiters[platform] = rate.NewLimiter(rate.Limit(perSec), 1)
	}
	handlers := make(map[enums.Platform]platforms.Handler, len(params.Handlers))
	for platform, h := range params.Handlers {
		if h != nil {
			handlers[platform] = h
		}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		handlers:  handlers,
		limiters:  limiters,
		recorders: params.Recorders,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
	}
}

// Publish never returns an error: every failure, including a handler panic,
// is folded into an unsuccessful Result.
func (d *Dispatcher) Publish(ctx context.Context, req Request) Result {
	if d.logg != nil {
		ctx = d.logg.WithFields(ctx, map[string]any{
			"content_id": req.ContentID.String(),
			"platform":   string(req.Platform),
			"trigger":    req.Trigger,
		})
	}

	result := d.dispatch(ctx, req)
	outcome := metrics.PublishOutcomeSuccess
	if !result.Success {
		outcome = metrics.PublishOutcomeFailure
	}
	d.metrics.Inc(string(req.Platform), req.Trigger, outcome)

	if d.logg != nil {
		if result.Success {
			d.logg.Info(d.logg.WithField(ctx, "external_id", result.ExternalID), "publisher.publish.succeeded")
		} else {
			d.logg.Warn(d.logg.WithField(ctx, "error", result.Error), "publisher.publish.failed")
		}
	}

	attempt := Attempt{Request: req, Result: result, At: d.now().UTC()}
	for _, rec := range d.recorders {
		rec.RecordAttempt(ctx, attempt)
	}
	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) Result {
	handler, ok := d.handlers[req.Platform]
	if !ok {
		return Result{Platform: req.Platform, Error: errUnsupportedPlatform}
	}
	if limiter, ok := d.limiters[req.Platform]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return Result{Platform: req.Platform, Error: fmt.Sprintf("rate limit wait: %v", err)}
		}
	}

	published, err := callHandler(ctx, handler, platforms.Post{
		ContentID: req.ContentID.String(),
		Script:    req.Script,
		VideoURL:  req.VideoURL,
	})
	if err != nil {
		return Result{Platform: req.Platform, Error: err.Error()}
	}
	return Result{
		Success:     true,
		Platform:    req.Platform,
		ExternalID:  published.ExternalID,
		ExternalURL: published.ExternalURL,
	}
}

func callHandler(ctx context.Context, handler platforms.Handler, post platforms.Post) (published platforms.Published, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish handler panic: %v", r)
		}
	}()
	return handler.Publish(ctx, post)
}
