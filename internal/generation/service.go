package generation

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/personacast-backend/internal/persona"
	"github.com/angelmondragon/personacast-backend/internal/providers/script"
	"github.com/angelmondragon/personacast-backend/internal/providers/video"
	"github.com/angelmondragon/personacast-backend/internal/providers/voice"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	videoPromptRunes   = 500
	defaultAspectRatio = "9:16"
	defaultDuration    = 10
	defaultMode        = "std"
)

// Pipeline step names reported in StepOutcome and metrics.
const (
	StepPersona = "persona"
	StepAvatar  = "avatar"
	StepScript  = "script"
	StepVoice   = "voice"
	StepVideo   = "video"
	StepPersist = "persist"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// StepOutcome reports how one pipeline step ended. Failed optional steps do
// not fail the request.
type StepOutcome struct {
	Step    string  `json:"step"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Request is a generation request for one platform.
type Request struct {
	Platform    enums.Platform
	Topic       string
	Tone        string
	WantVideo   bool
	VideoPrompt string
}

type Result struct {
	Content *models.ContentItem `json:"content"`
	Steps   []StepOutcome       `json:"steps"`
}

type contextBuilder interface {
	BuildContext(ctx context.Context, userID uuid.UUID) (persona.Context, error)
}

type avatarLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Avatar, error)
}

type contentCreator interface {
	Create(ctx context.Context, item *models.ContentItem) error
}

type audioStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type VideoSettings struct {
	AspectRatio string
	Duration    int
	Mode        string
}

// ServiceParams wires the orchestrator. Storage may be nil, in which case the
// voice step is skipped.
type ServiceParams struct {
	Personas      contextBuilder
	Avatars       avatarLister
	Content       contentCreator
	Scripts       script.Generator
	Voice         voice.Synthesizer
	Video         video.Dispatcher
	Storage       audioStore
	Policy        persona.AvatarPolicy
	VideoSettings VideoSettings
	Metrics       *metrics.GenerationMetrics
	Logger        *logger.Logger
}

// Service runs the generation pipeline.
type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, req Request) (*Result, error)
}

type service struct {
	personas contextBuilder
	avatars  avatarLister
	content  contentCreator
	scripts  script.Generator
	voice    voice.Synthesizer
	video    video.Dispatcher
	storage  audioStore
	policy   persona.AvatarPolicy
	settings VideoSettings
	metrics  *metrics.GenerationMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Personas == nil {
		return nil, fmt.Errorf("persona builder required")
	}
	if params.Avatars == nil {
		return nil, fmt.Errorf("avatar lister required")
	}
	if params.Content == nil {
		return nil, fmt.Errorf("content repository required")
	}
	if params.Scripts == nil {
		return nil, fmt.Errorf("script generator required")
	}
	settings := params.VideoSettings
	if settings.AspectRatio == "" {
		settings.AspectRatio = defaultAspectRatio
	}
	if settings.Duration <= 0 {
		settings.Duration = defaultDuration
	}
	if settings.Mode == "" {
		settings.Mode = defaultMode
	}
	policy := params.Policy
	if policy == nil {
		policy = persona.LatestAvatar
	}
	return &service{
		personas: params.Personas,
		avatars:  params.Avatars,
		content:  params.Content,
		scripts:  params.Scripts,
		voice:    params.Voice,
		video:    params.Video,
		storage:  params.Storage,
		policy:   policy,
		settings: settings,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// run accumulates step outcomes for one request.
type run struct {
	svc   *service
	ctx   context.Context
	steps []StepOutcome
}

func (r *run) record(step string, outcome Outcome, err error) {
	entry := StepOutcome{Step: step, Outcome: outcome}
	if err != nil {
		entry.Error = err.Error()
	}
	r.steps = append(r.steps, entry)
	r.svc.metrics.IncStep(step, string(outcome))

	if r.svc.logg == nil {
		return
	}
	ctx := r.svc.logg.WithField(r.ctx, "step", step)
	switch outcome {
	case OutcomeFailed:
		r.svc.logg.Error(ctx, "generation.step.failed", err)
	case OutcomeSkipped:
		r.svc.logg.Debug(ctx, "generation.step.skipped")
	default:
		r.svc.logg.Debug(ctx, "generation.step.ok")
	}
}

// Generate produces a draft ContentItem. Only persona and avatar lookup,
// script generation and persistence are fatal; voice and video failures are reported
// as failed steps on a successful result.
func (s *service) Generate(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	if !req.Platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported platform").WithDetails(map[string]any{"platform": req.Platform})
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "platform": string(req.Platform)})
	}
	r := &run{svc: s, ctx: ctx}

	personaCtx, err := s.personas.BuildContext(ctx, userID)
	if err != nil {
		r.record(StepPersona, OutcomeFailed, err)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load persona")
	}
	if personaCtx.IsEmpty() {
		r.record(StepPersona, OutcomeSkipped, nil)
	} else {
		r.record(StepPersona, OutcomeOK, nil)
	}

	avatar, err := s.resolveAvatar(r, userID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load avatars")
	}

	topic := strings.TrimSpace(req.Topic)
	tone := strings.TrimSpace(req.Tone)
	text, err := s.scripts.Generate(ctx, script.Request{Persona: personaCtx, Platform: req.Platform, Topic: topic, Tone: tone})
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("script provider returned empty content")
	}
	if err != nil {
		r.record(StepScript, OutcomeFailed, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGeneration, err, "script generation failed")
	}
	text = strings.TrimSpace(text)
	r.record(StepScript, OutcomeOK, nil)

	item := &models.ContentItem{
		UserID:      userID,
		ContentType: req.Platform.ContentType(),
		Platform:    req.Platform,
		Topic:       optional(topic),
		Tone:        optional(tone),
		Script:      &text,
		Status:      enums.ContentStatusDraft,
	}
	if avatar != nil {
		id := avatar.ID
		item.AvatarID = &id
	}

	if req.Platform.IsVideoBearing() {
		s.synthesize(r, item, avatar, text)
		s.dispatchVideo(r, item, req, text)
	} else {
		r.record(StepVoice, OutcomeSkipped, nil)
		r.record(StepVideo, OutcomeSkipped, nil)
	}

	if err := s.content.Create(ctx, item); err != nil {
		r.record(StepPersist, OutcomeFailed, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save content")
	}
	r.record(StepPersist, OutcomeOK, nil)

	if s.logg != nil {
		s.logg.Info(s.logg.WithContentID(ctx, item.ID.String()), "generation.completed")
	}
	return &Result{Content: item, Steps: r.steps}, nil
}

func (s *service) resolveAvatar(r *run, userID uuid.UUID) (*models.Avatar, error) {
	avatars, err := s.avatars.ListByUser(r.ctx, userID)
	if err != nil {
		r.record(StepAvatar, OutcomeFailed, err)
		return nil, err
	}
	avatar := s.policy(avatars)
	if avatar == nil {
		r.record(StepAvatar, OutcomeSkipped, nil)
		return nil, nil
	}
	r.record(StepAvatar, OutcomeOK, nil)
	return avatar, nil
}

func (s *service) synthesize(r *run, item *models.ContentItem, avatar *models.Avatar, text string) {
	if s.voice == nil || s.storage == nil || !avatar.HasReadyVoice() {
		r.record(StepVoice, OutcomeSkipped, nil)
		return
	}
	spoken := SpeakableScript(text)
	if spoken == "" {
		r.record(StepVoice, OutcomeSkipped, nil)
		return
	}
	audio, err := s.voice.Synthesize(r.ctx, *avatar.VoiceID, spoken)
	if err != nil {
		r.record(StepVoice, OutcomeFailed, err)
		return
	}
	url, err := s.storage.Upload(r.ctx, AudioKey(audio), "audio/mpeg", bytes.NewReader(audio))
	if err != nil {
		r.record(StepVoice, OutcomeFailed, fmt.Errorf("upload audio: %w", err))
		return
	}
	item.AudioURL = &url
	r.record(StepVoice, OutcomeOK, nil)
}

func (s *service) dispatchVideo(r *run, item *models.ContentItem, req Request, text string) {
	if !req.WantVideo || s.video == nil {
		r.record(StepVideo, OutcomeSkipped, nil)
		return
	}
	prompt := strings.TrimSpace(req.VideoPrompt)
	if prompt == "" {
		prompt = firstRunes(text, videoPromptRunes)
	}
	taskID, err := s.video.Submit(r.ctx, video.SubmitRequest{
		Prompt:      prompt,
		AspectRatio: s.settings.AspectRatio,
		Duration:    s.settings.Duration,
		Mode:        s.settings.Mode,
	})
	if err != nil {
		failed := enums.VideoStatusFailed
		item.VideoStatus = &failed
		r.record(StepVideo, OutcomeFailed, err)
		return
	}
	pending := enums.VideoStatusPending
	item.VideoTaskID = &taskID
	item.VideoStatus = &pending
	r.record(StepVideo, OutcomeOK, nil)
}

// AudioKey is the content-addressed object key for synthesized audio.
func AudioKey(audio []byte) string {
	sum := blake2b.Sum256(audio)
	return "audio/" + hex.EncodeToString(sum[:]) + ".mp3"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
