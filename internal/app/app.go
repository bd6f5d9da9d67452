// Package app assembles the long-lived components shared by the api and
// scheduler-worker processes.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/personacast-backend/internal/avatars"
	"github.com/angelmondragon/personacast-backend/internal/content"
	"github.com/angelmondragon/personacast-backend/internal/generation"
	"github.com/angelmondragon/personacast-backend/internal/media"
	"github.com/angelmondragon/personacast-backend/internal/persona"
	"github.com/angelmondragon/personacast-backend/internal/providers/platforms"
	"github.com/angelmondragon/personacast-backend/internal/providers/script"
	"github.com/angelmondragon/personacast-backend/internal/providers/video"
	"github.com/angelmondragon/personacast-backend/internal/providers/voice"
	"github.com/angelmondragon/personacast-backend/internal/publisher"
	"github.com/angelmondragon/personacast-backend/internal/ratelimit"
	"github.com/angelmondragon/personacast-backend/internal/scheduler"
	"github.com/angelmondragon/personacast-backend/pkg/bigquery"
	"github.com/angelmondragon/personacast-backend/pkg/config"
	"github.com/angelmondragon/personacast-backend/pkg/db"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/metrics"
	"github.com/angelmondragon/personacast-backend/pkg/migrate"
	"github.com/angelmondragon/personacast-backend/pkg/pubsub"
	pkgredis "github.com/angelmondragon/personacast-backend/pkg/redis"
	"github.com/angelmondragon/personacast-backend/pkg/storage/gcs"
)

// Components holds every service a process may need. Optional infrastructure
// (Redis, GCS, PubSub, BigQuery) is nil when disabled.
type Components struct {
	Config *config.Config
	Logger *logger.Logger

	DB       *db.Client
	Redis    *pkgredis.Client
	GCS      *gcs.Client
	PubSub   *pubsub.Client
	BigQuery *bigquery.Client

	Limiter    *ratelimit.Limiter
	Personas   persona.Service
	Avatars    avatars.Service
	Content    content.Service
	Generation generation.Service
	Scheduler  *scheduler.Service

	closers []func() error
}

// Build connects infrastructure and wires services. On error everything opened
// so far is closed.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (c *Components, err error) {
	c = &Components{Config: cfg, Logger: logg}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	if err = c.connect(ctx); err != nil {
		return nil, err
	}
	if err = c.wire(reg); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Components) connect(ctx context.Context) error {
	cfg, logg := c.Config, c.Logger

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	c.DB = dbClient
	c.closers = append(c.closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	if cfg.Redis.Enabled() {
		redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		c.Redis = redisClient
		c.closers = append(c.closers, redisClient.Close)
	}

	if cfg.FeatureFlags.GCSEnabled {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return fmt.Errorf("bootstrap gcs: %w", err)
		}
		c.GCS = gcsClient
		c.closers = append(c.closers, gcsClient.Close)
	}

	if cfg.FeatureFlags.PubSub {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return fmt.Errorf("bootstrap pubsub: %w", err)
		}
		c.PubSub = psClient
		c.closers = append(c.closers, psClient.Close)
	}

	if cfg.FeatureFlags.BigQuery {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			return fmt.Errorf("bootstrap bigquery: %w", err)
		}
		c.BigQuery = bqClient
		c.closers = append(c.closers, bqClient.Close)
	}
	return nil
}

func (c *Components) wire(reg prometheus.Registerer) error {
	cfg, logg := c.Config, c.Logger
	conn := c.DB.DB()

	publishMetrics := metrics.NewPublishMetrics(reg)
	generationMetrics := metrics.NewGenerationMetrics(reg)
	jobMetrics := metrics.NewSchedulerJobMetrics(reg)

	scripts := script.New(cfg.Script, nil)
	voices := voice.New(cfg.Voice, nil)
	videos := video.New(cfg.Video, nil)

	personaRepo := persona.NewRepository(conn)
	avatarRepo := avatars.NewRepository(conn)
	contentRepo := content.NewRepository(conn)

	var recorders []publisher.Recorder
	var deadLetters *publisher.EventRecorder
	if c.PubSub != nil {
		deadLetters = publisher.NewEventRecorder(c.PubSub, logg)
		recorders = append(recorders, deadLetters)
	}
	if c.BigQuery != nil {
		recorders = append(recorders, publisher.NewAnalyticsRecorder(c.BigQuery, logg))
	}

	dispatcher := publisher.NewDispatcher(publisher.DispatcherParams{
		Handlers: map[enums.Platform]platforms.Handler{
			enums.PlatformTwitter:   platforms.NewTwitter(cfg.Twitter, nil),
			enums.PlatformTikTok:    platforms.NewTikTok(cfg.TikTok, nil),
			enums.PlatformInstagram: platforms.NewInstagram(cfg.Instagram, nil),
		},
		Rates: map[enums.Platform]float64{
			enums.PlatformTwitter:   cfg.Twitter.RatePerSec,
			enums.PlatformTikTok:    cfg.TikTok.RatePerSec,
			enums.PlatformInstagram: cfg.Instagram.RatePerSec,
		},
		Recorders: recorders,
		Metrics:   publishMetrics,
		Logger:    logg,
	})

	syncer := content.NewVideoSyncer(contentRepo, videos, logg)

	var err error
	c.Content, err = content.NewService(content.ServiceParams{
		Repo:      contentRepo,
		Publisher: dispatcher,
		Videos:    syncer,
		Logger:    logg,
	})
	if err != nil {
		return fmt.Errorf("content service: %w", err)
	}

	c.Personas, err = persona.NewService(personaRepo)
	if err != nil {
		return fmt.Errorf("persona service: %w", err)
	}

	genParams := generation.ServiceParams{
		Personas: persona.NewBuilder(personaRepo),
		Avatars:  avatarRepo,
		Content:  contentRepo,
		Scripts:  scripts,
		Voice:    voices,
		Video:    videos,
		Policy:   persona.LatestAvatar,
		VideoSettings: generation.VideoSettings{
			AspectRatio: cfg.Video.AspectRatio,
			Duration:    cfg.Video.Duration,
			Mode:        cfg.Video.Mode,
		},
		Metrics: generationMetrics,
		Logger:  logg,
	}
	avatarParams := avatars.ServiceParams{
		Repo:        avatarRepo,
		Extractor:   media.NewFFmpeg(cfg.Media),
		Cloner:      voices,
		Synthesizer: voices,
		Policy:      persona.LatestAvatar,
		Logger:      logg,
	}
	// assigned only when enabled so the interfaces stay nil otherwise
	if c.GCS != nil {
		genParams.Storage = c.GCS
		avatarParams.Storage = c.GCS
	}
	if c.Redis != nil {
		avatarParams.SpeechCache = c.Redis
		avatarParams.CacheTTL = cfg.Redis.SpeechCacheTTL
	}

	c.Generation, err = generation.NewService(genParams)
	if err != nil {
		return fmt.Errorf("generation service: %w", err)
	}
	c.Avatars, err = avatars.NewService(avatarParams)
	if err != nil {
		return fmt.Errorf("avatar service: %w", err)
	}

	c.Limiter = ratelimit.New(ratelimit.Params{
		Rules:         ratelimit.RulesFromConfig(cfg.RateLimit),
		SweepInterval: cfg.RateLimit.SweepInterval,
		Logger:        logg,
	})

	dueParams := scheduler.PublishDueJobParams{
		Repo:        contentRepo,
		Publisher:   dispatcher,
		Metrics:     publishMetrics,
		Logger:      logg,
		BatchSize:   cfg.Scheduler.BatchSize,
		MaxAttempts: cfg.Scheduler.MaxPublishAttempts,
	}
	if deadLetters != nil {
		dueParams.Notifier = deadLetters
	}
	publishDue, err := scheduler.NewPublishDueJob(dueParams)
	if err != nil {
		return fmt.Errorf("publish-due job: %w", err)
	}
	registry := scheduler.NewRegistry(publishDue)
	if cfg.Scheduler.VideoSyncEnabled {
		videoSync, err := scheduler.NewVideoSyncJob(contentRepo, syncer, logg, cfg.Scheduler.VideoSyncBatchSize)
		if err != nil {
			return fmt.Errorf("video-sync job: %w", err)
		}
		registry.Register(videoSync)
	}

	c.Scheduler, err = scheduler.NewService(scheduler.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  jobMetrics,
		Interval: cfg.Scheduler.Interval,
	})
	if err != nil {
		return fmt.Errorf("scheduler service: %w", err)
	}
	return nil
}

// Close releases infrastructure in reverse order of acquisition.
func (c *Components) Close() error {
	if c == nil {
		return nil
	}
	var errs error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, c.closers[i]())
	}
	c.closers = nil
	return errs
}
