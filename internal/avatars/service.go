package avatars

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/media"
	"github.com/angelmondragon/personacast-backend/internal/persona"
	"github.com/angelmondragon/personacast-backend/internal/providers/voice"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/google/uuid"
)

type avatarRepository interface {
	Create(ctx context.Context, avatar *models.Avatar) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Avatar, error)
	FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.Avatar, error)
	BeginCloning(ctx context.Context, userID, id uuid.UUID) (bool, error)
	FinishCloning(ctx context.Context, id uuid.UUID, status enums.VoiceStatus, voiceID, sourceURL *string) error
}

type objectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// speechCache keeps recent previews so repeated text does not bill the voice provider.
type speechCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SpeechKey(voiceID, text string) string
}

// Sample is an uploaded recording used for voice cloning.
type Sample struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service manages avatars and their cloned voices.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, name string) (*models.Avatar, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Avatar, error)
	CloneVoice(ctx context.Context, userID, avatarID uuid.UUID, sample Sample) (*models.Avatar, error)
	PreviewSpeech(ctx context.Context, userID uuid.UUID, text string) ([]byte, error)
}

// ServiceParams wires the avatar service. Storage may be nil, in which case
// source videos are not retained.
type ServiceParams struct {
	Repo        avatarRepository
	Extractor   media.AudioExtractor
	Cloner      voice.Cloner
	Synthesizer voice.Synthesizer
	Storage     objectStore
	Policy      persona.AvatarPolicy
	Logger      *logger.Logger

	// SpeechCache is optional. CacheTTL defaults to one hour.
	SpeechCache speechCache
	CacheTTL    time.Duration
}

type service struct {
	repo        avatarRepository
	extractor   media.AudioExtractor
	cloner      voice.Cloner
	synthesizer voice.Synthesizer
	storage     objectStore
	policy      persona.AvatarPolicy
	logg        *logger.Logger
	cache       speechCache
	cacheTTL    time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("avatar repository required")
	}
	if params.Extractor == nil {
		return nil, fmt.Errorf("audio extractor required")
	}
	if params.Cloner == nil || params.Synthesizer == nil {
		return nil, fmt.Errorf("voice provider required")
	}
	policy := params.Policy
	if policy == nil {
		policy = persona.LatestAvatar
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &service{
		cache:       params.SpeechCache,
		cacheTTL:    ttl,
		repo:        params.Repo,
		extractor:   params.Extractor,
		cloner:      params.Cloner,
		synthesizer: params.Synthesizer,
		storage:     params.Storage,
		policy:      policy,
		logg:        params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, name string) (*models.Avatar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	avatar := &models.Avatar{UserID: userID, Name: name, VoiceStatus: enums.VoiceStatusNone}
	if err := s.repo.Create(ctx, avatar); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create avatar")
	}
	return avatar, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Avatar, error) {
	avatars, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list avatars")
	}
	return avatars, nil
}

// CloneVoice extracts audio from the sample, clones it with the voice provider
// and stores the resulting voice id. Any failure after the avatar enters
// processing leaves it failed.
func (s *service) CloneVoice(ctx context.Context, userID, avatarID uuid.UUID, sample Sample) (*models.Avatar, error) {
	if sample.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video file is required")
	}
	if _, err := media.ValidateSampleType(sample.ContentType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported upload").WithDetails(map[string]any{"content_type": sample.ContentType})
	}

	avatar, err := s.repo.FindOwned(ctx, userID, avatarID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "avatar", "load avatar")
	}
	started, err := s.repo.BeginCloning(ctx, userID, avatarID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update avatar")
	}
	if !started {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "voice cloning already in progress")
	}

	ctx = s.withAvatar(ctx, avatarID)
	voiceID, sourceURL, err := s.clone(ctx, avatar, sample)
	if err != nil {
		if finishErr := s.repo.FinishCloning(ctx, avatarID, enums.VoiceStatusFailed, nil, sourceURL); finishErr != nil && s.logg != nil {
			s.logg.Error(ctx, "avatars.voice.mark_failed", finishErr)
		}
		if s.logg != nil {
			s.logg.Error(ctx, "avatars.voice.clone_failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "voice cloning failed")
	}

	if err := s.repo.FinishCloning(ctx, avatarID, enums.VoiceStatusReady, &voiceID, sourceURL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update avatar")
	}
	avatar.VoiceID = &voiceID
	avatar.VoiceStatus = enums.VoiceStatusReady
	if sourceURL != nil {
		avatar.SourceVideoURL = sourceURL
	}
	if s.logg != nil {
		s.logg.Info(ctx, "avatars.voice.cloned")
	}
	return avatar, nil
}

func (s *service) clone(ctx context.Context, avatar *models.Avatar, sample Sample) (string, *string, error) {
	video, err := io.ReadAll(sample.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}

	var sourceURL *string
	if s.storage != nil {
		key := fmt.Sprintf("avatars/%s/source%s", avatar.ID, strings.ToLower(filepath.Ext(sample.Filename)))
		if url, upErr := s.storage.Upload(ctx, key, sample.ContentType, bytes.NewReader(video)); upErr != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", upErr.Error()), "avatars.voice.source_upload_failed")
			}
		} else {
			sourceURL = &url
		}
	}

	audio, err := s.extractor.ExtractAudio(ctx, bytes.NewReader(video), sample.Filename)
	if err != nil {
		return "", sourceURL, err
	}
	voiceID, err := s.cloner.CloneVoice(ctx, avatar.Name, "sample.wav", bytes.NewReader(audio))
	if err != nil {
		return "", sourceURL, err
	}
	return voiceID, sourceURL, nil
}

// PreviewSpeech synthesizes text with the voice of the user's selected ready avatar.
func (s *service) PreviewSpeech(ctx context.Context, userID uuid.UUID, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "text is required")
	}
	avatars, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list avatars")
	}
	ready := make([]models.Avatar, 0, len(avatars))
	for _, a := range avatars {
		if a.HasReadyVoice() {
			ready = append(ready, a)
		}
	}
	avatar := s.policy(ready)
	if avatar == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no avatar with a ready voice")
	}
	voiceID := *avatar.VoiceID

	var key string
	if s.cache != nil {
		key = s.cache.SpeechKey(voiceID, text)
		if cached, hit, err := s.cache.GetBytes(ctx, key); err == nil && hit {
			return cached, nil
		} else if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "avatars.speech.cache_read_failed")
		}
	}

	audio, err := s.synthesizer.Synthesize(ctx, voiceID, text)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "speech synthesis failed")
	}
	if s.cache != nil {
		if err := s.cache.SetBytes(ctx, key, audio, s.cacheTTL); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "avatars.speech.cache_write_failed")
		}
	}
	return audio, nil
}

func (s *service) withAvatar(ctx context.Context, avatarID uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithField(ctx, "avatar_id", avatarID.String())
}
