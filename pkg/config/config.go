package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Scheduler    SchedulerConfig
	FeatureFlags FeatureFlagsConfig
	Script       ScriptProviderConfig
	Voice        VoiceProviderConfig
	Video        VideoProviderConfig
	Twitter      TwitterConfig
	TikTok       TikTokConfig
	Instagram    InstagramConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Media        MediaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PERSONACAST_APP_ENV" required:"true"`
	Port         string `envconfig:"PERSONACAST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PERSONACAST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PERSONACAST_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PERSONACAST_LOG_FORMAT" default:"json"`

	CORSOrigins     []string      `envconfig:"PERSONACAST_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"PERSONACAST_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PERSONACAST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"PERSONACAST_DB_DSN"`
	Driver     string `envconfig:"PERSONACAST_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"PERSONACAST_SQLITE_PATH" default:"personacast.db"`

	LegacyHost     string `envconfig:"PERSONACAST_DB_HOST"`
	LegacyPort     int    `envconfig:"PERSONACAST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PERSONACAST_DB_USER"`
	LegacyPassword string `envconfig:"PERSONACAST_DB_PASSWORD"`
	LegacyName     string `envconfig:"PERSONACAST_DB_NAME"`
	LegacySSLMode  string `envconfig:"PERSONACAST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PERSONACAST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PERSONACAST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PERSONACAST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PERSONACAST_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PERSONACAST_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PERSONACAST_REDIS_URL"`
	Address      string        `envconfig:"PERSONACAST_REDIS_ADDR"`
	Password     string        `envconfig:"PERSONACAST_REDIS_PASSWORD"`
	DB           int           `envconfig:"PERSONACAST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PERSONACAST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PERSONACAST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PERSONACAST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PERSONACAST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PERSONACAST_REDIS_WRITE_TIMEOUT" default:"5s"`

	SpeechCacheTTL time.Duration `envconfig:"PERSONACAST_REDIS_SPEECH_CACHE_TTL" default:"1h"`
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"PERSONACAST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PERSONACAST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PERSONACAST_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig holds one fixed window per operation class.
type RateLimitConfig struct {
	GenerationWindow   time.Duration `envconfig:"PERSONACAST_RATE_LIMIT_GENERATION_WINDOW" default:"1m"`
	GenerationMax      int           `envconfig:"PERSONACAST_RATE_LIMIT_GENERATION_MAX" default:"10"`
	VoiceCloningWindow time.Duration `envconfig:"PERSONACAST_RATE_LIMIT_VOICE_CLONING_WINDOW" default:"1h"`
	VoiceCloningMax    int           `envconfig:"PERSONACAST_RATE_LIMIT_VOICE_CLONING_MAX" default:"3"`
	VideoWindow        time.Duration `envconfig:"PERSONACAST_RATE_LIMIT_VIDEO_WINDOW" default:"1h"`
	VideoMax           int           `envconfig:"PERSONACAST_RATE_LIMIT_VIDEO_MAX" default:"5"`
	TextToSpeechWindow time.Duration `envconfig:"PERSONACAST_RATE_LIMIT_TTS_WINDOW" default:"1m"`
	TextToSpeechMax    int           `envconfig:"PERSONACAST_RATE_LIMIT_TTS_MAX" default:"20"`
	SweepInterval      time.Duration `envconfig:"PERSONACAST_RATE_LIMIT_SWEEP_INTERVAL" default:"5m"`
}

type SchedulerConfig struct {
	Enabled            bool          `envconfig:"PERSONACAST_SCHEDULER_ENABLED" default:"true"`
	Interval           time.Duration `envconfig:"PERSONACAST_SCHEDULER_INTERVAL" default:"60s"`
	BatchSize          int           `envconfig:"PERSONACAST_SCHEDULER_BATCH_SIZE" default:"100"`
	MaxPublishAttempts int           `envconfig:"PERSONACAST_SCHEDULER_MAX_PUBLISH_ATTEMPTS" default:"5"`
	VideoSyncEnabled   bool          `envconfig:"PERSONACAST_SCHEDULER_VIDEO_SYNC_ENABLED" default:"true"`
	VideoSyncBatchSize int           `envconfig:"PERSONACAST_SCHEDULER_VIDEO_SYNC_BATCH_SIZE" default:"25"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PERSONACAST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PERSONACAST_AUTO_MIGRATE" default:"false"`
	GCSEnabled  bool `envconfig:"PERSONACAST_GCS_ENABLED" default:"false"`
	PubSub      bool `envconfig:"PERSONACAST_PUBSUB_ENABLED" default:"false"`
	BigQuery    bool `envconfig:"PERSONACAST_BIGQUERY_ENABLED" default:"false"`
}

type ScriptProviderConfig struct {
	APIKey      string        `envconfig:"PERSONACAST_SCRIPT_API_KEY"`
	BaseURL     string        `envconfig:"PERSONACAST_SCRIPT_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `envconfig:"PERSONACAST_SCRIPT_MODEL" default:"gpt-4o-mini"`
	MaxTokens   int           `envconfig:"PERSONACAST_SCRIPT_MAX_TOKENS" default:"800"`
	Temperature float64       `envconfig:"PERSONACAST_SCRIPT_TEMPERATURE" default:"0.8"`
	Timeout     time.Duration `envconfig:"PERSONACAST_SCRIPT_TIMEOUT" default:"90s"`
}

type VoiceProviderConfig struct {
	APIKey  string        `envconfig:"PERSONACAST_VOICE_API_KEY"`
	BaseURL string        `envconfig:"PERSONACAST_VOICE_BASE_URL" default:"https://api.elevenlabs.io"`
	ModelID string        `envconfig:"PERSONACAST_VOICE_MODEL_ID" default:"eleven_multilingual_v2"`
	Timeout time.Duration `envconfig:"PERSONACAST_VOICE_TIMEOUT" default:"120s"`
}

type VideoProviderConfig struct {
	APIKey      string        `envconfig:"PERSONACAST_VIDEO_API_KEY"`
	SecretKey   string        `envconfig:"PERSONACAST_VIDEO_SECRET_KEY"`
	BaseURL     string        `envconfig:"PERSONACAST_VIDEO_BASE_URL" default:"https://api.klingai.com"`
	Duration    int           `envconfig:"PERSONACAST_VIDEO_DURATION_SECONDS" default:"10"`
	AspectRatio string        `envconfig:"PERSONACAST_VIDEO_ASPECT_RATIO" default:"9:16"`
	Mode        string        `envconfig:"PERSONACAST_VIDEO_MODE" default:"std"`
	Timeout     time.Duration `envconfig:"PERSONACAST_VIDEO_TIMEOUT" default:"60s"`
}

type TwitterConfig struct {
	BaseURL     string  `envconfig:"PERSONACAST_TWITTER_BASE_URL" default:"https://api.twitter.com"`
	AccessToken string  `envconfig:"PERSONACAST_TWITTER_ACCESS_TOKEN"`
	RatePerSec  float64 `envconfig:"PERSONACAST_TWITTER_RATE_PER_SEC" default:"1"`
}

type TikTokConfig struct {
	BaseURL     string  `envconfig:"PERSONACAST_TIKTOK_BASE_URL" default:"https://open.tiktokapis.com"`
	AccessToken string  `envconfig:"PERSONACAST_TIKTOK_ACCESS_TOKEN"`
	RatePerSec  float64 `envconfig:"PERSONACAST_TIKTOK_RATE_PER_SEC" default:"0.5"`
}

type InstagramConfig struct {
	BaseURL     string  `envconfig:"PERSONACAST_INSTAGRAM_BASE_URL" default:"https://graph.facebook.com/v21.0"`
	AccessToken string  `envconfig:"PERSONACAST_INSTAGRAM_ACCESS_TOKEN"`
	AccountID   string  `envconfig:"PERSONACAST_INSTAGRAM_ACCOUNT_ID"`
	RatePerSec  float64 `envconfig:"PERSONACAST_INSTAGRAM_RATE_PER_SEC" default:"0.5"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PERSONACAST_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PERSONACAST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PERSONACAST_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"PERSONACAST_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"PERSONACAST_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type PubSubConfig struct {
	ContentEventsTopic string `envconfig:"PERSONACAST_PUBSUB_CONTENT_EVENTS_TOPIC" default:"personacast-content-events"`
}

type BigQueryConfig struct {
	Dataset              string `envconfig:"PERSONACAST_BIGQUERY_DATASET" default:"personacast"`
	PublishAttemptsTable string `envconfig:"PERSONACAST_BIGQUERY_PUBLISH_ATTEMPTS_TABLE" default:"publish_attempts"`
}

type MediaConfig struct {
	FFmpegPath      string `envconfig:"PERSONACAST_FFMPEG_PATH" default:"ffmpeg"`
	MaxUploadMB     int    `envconfig:"PERSONACAST_MAX_UPLOAD_MB" default:"200"`
	AudioSampleRate int    `envconfig:"PERSONACAST_MEDIA_AUDIO_SAMPLE_RATE" default:"44100"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
