package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/personacast-backend/api/controllers"
	"github.com/angelmondragon/personacast-backend/api/middleware"
	"github.com/angelmondragon/personacast-backend/internal/avatars"
	"github.com/angelmondragon/personacast-backend/internal/content"
	"github.com/angelmondragon/personacast-backend/internal/generation"
	"github.com/angelmondragon/personacast-backend/internal/persona"
	"github.com/angelmondragon/personacast-backend/pkg/config"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/personacast-backend/pkg/redis"
)

// Deps is everything the HTTP surface needs. Readiness entries may be nil for
// dependencies that are disabled by feature flags.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Gatherer    prometheus.Gatherer
	Readiness   map[string]controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Limiter     middleware.Admitter

	Generation generation.Service
	Content    content.Service
	Avatars    avatars.Service
	Personas   persona.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	maxUpload := int64(cfg.Media.MaxUploadMB) << 20

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/content", func(r chi.Router) {
			r.With(middleware.RateLimit(deps.Limiter, enums.OperationClassContentGeneration, logg)).
				Post("/generate", controllers.GenerateContent(deps.Generation, deps.Limiter, logg))
			r.Post("/", controllers.CreateContent(deps.Content, logg))
			r.Get("/", controllers.ListContent(deps.Content, logg))
			r.Get("/{id}", controllers.GetContent(deps.Content, logg))
			r.Delete("/{id}", controllers.DeleteContent(deps.Content, logg))
			r.Post("/{id}/transition", controllers.TransitionContent(deps.Content, logg))
			r.Post("/{id}/publish", controllers.PublishContent(deps.Content, logg))
			r.Post("/{id}/video/refresh", controllers.RefreshContentVideo(deps.Content, logg))
		})

		r.Route("/avatars", func(r chi.Router) {
			r.Post("/", controllers.CreateAvatar(deps.Avatars, logg))
			r.Get("/", controllers.ListAvatars(deps.Avatars, logg))
			r.With(middleware.RateLimit(deps.Limiter, enums.OperationClassVoiceCloning, logg)).
				Post("/{id}/voice", controllers.CloneAvatarVoice(deps.Avatars, maxUpload, logg))
		})

		r.With(middleware.RateLimit(deps.Limiter, enums.OperationClassTextToSpeech, logg)).
			Post("/voice/speech", controllers.SynthesizeSpeech(deps.Avatars, logg))

		r.Get("/persona", controllers.GetPersona(deps.Personas, logg))
		r.Put("/persona", controllers.SavePersona(deps.Personas, logg))
	})

	return r
}
