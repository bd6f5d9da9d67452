package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/personacast-backend/internal/avatars"
	"github.com/angelmondragon/personacast-backend/internal/persona"
	"github.com/angelmondragon/personacast-backend/internal/ratelimit"
	pkgAuth "github.com/angelmondragon/personacast-backend/pkg/auth"
	"github.com/angelmondragon/personacast-backend/pkg/config"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/metrics"
)

type stubPersonas struct{}

func (stubPersonas) Get(context.Context, uuid.UUID) (persona.Context, error) {
	return persona.Context{Bio: "builder", Topics: []string{"go"}}, nil
}

func (stubPersonas) Save(_ context.Context, _ uuid.UUID, in persona.Context) (persona.Context, error) {
	return in, nil
}

type stubAvatars struct{}

func (stubAvatars) Create(context.Context, uuid.UUID, string) (*models.Avatar, error) {
	return &models.Avatar{}, nil
}

func (stubAvatars) List(context.Context, uuid.UUID) ([]models.Avatar, error) {
	return nil, nil
}

func (stubAvatars) CloneVoice(context.Context, uuid.UUID, uuid.UUID, avatars.Sample) (*models.Avatar, error) {
	return &models.Avatar{}, nil
}

func (stubAvatars) PreviewSpeech(context.Context, uuid.UUID, string) ([]byte, error) {
	return []byte("mp3"), nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:   config.AppConfig{Env: "dev"},
		JWT:   config.JWTConfig{Secret: "secret", Issuer: "personacast", ExpirationMinutes: 30},
		Media: config.MediaConfig{MaxUploadMB: 1},
	}
}

func newTestRouter(t *testing.T, limiter *ratelimit.Limiter) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics.NewPublishMetrics(reg).Inc("twitter", "manual", metrics.PublishOutcomeSuccess)
	deps := Deps{
		Config:   testConfig(),
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Gatherer: reg,
		Avatars:  stubAvatars{},
		Personas: stubPersonas{},
	}
	if limiter != nil {
		deps.Limiter = limiter
	}
	return NewRouter(deps), reg
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(resp.Body.String(), "personacast_publish_attempts_total") {
		t.Fatalf("expected publish counter in metrics output")
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/persona", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthenticatedPersonaFetch(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/persona", nil)
	req.Header.Set("Authorization", bearer(t, testConfig(), uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestSpeechRouteIsRateLimited(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.Params{
		Rules: map[enums.OperationClass]ratelimit.Rule{
			enums.OperationClassTextToSpeech: {Window: time.Minute, Max: 1},
		},
		Now: func() time.Time { return now },
	})
	router, _ := newTestRouter(t, limiter)
	auth := bearer(t, testConfig(), uuid.New())

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/voice/speech", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Authorization", auth)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}
