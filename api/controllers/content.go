package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/personacast-backend/api/middleware"
	"github.com/angelmondragon/personacast-backend/api/responses"
	"github.com/angelmondragon/personacast-backend/api/validators"
	"github.com/angelmondragon/personacast-backend/internal/content"
	"github.com/angelmondragon/personacast-backend/internal/generation"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/pagination"
)

const (
	maxTopicLength       = 280
	maxToneLength        = 64
	maxVideoPromptLength = 2000
	maxScriptLength      = 10000
)

type generateContentRequest struct {
	Platform    string `json:"platform" validate:"required,platform"`
	Topic       string `json:"topic" validate:"max=280"`
	Tone        string `json:"tone" validate:"max=64"`
	WantVideo   bool   `json:"want_video"`
	VideoPrompt string `json:"video_prompt" validate:"max=2000"`
}

// GenerateContent runs the generation pipeline. A request that wants video is
// charged against the video_generation window on top of content_generation.
func GenerateContent(svc generation.Service, limiter middleware.Admitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generateContentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		platform, err := enums.ParsePlatform(body.Platform)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}

		if body.WantVideo && !middleware.Admit(w, r, limiter, enums.OperationClassVideoGeneration, logg) {
			return
		}

		result, err := svc.Generate(r.Context(), userID, generation.Request{
			Platform:    platform,
			Topic:       validators.SanitizeString(body.Topic, maxTopicLength),
			Tone:        validators.SanitizeString(body.Tone, maxToneLength),
			WantVideo:   body.WantVideo,
			VideoPrompt: validators.SanitizeString(body.VideoPrompt, maxVideoPromptLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type createContentRequest struct {
	Platform string     `json:"platform" validate:"required,platform"`
	Script   string     `json:"script" validate:"required,max=10000"`
	Topic    string     `json:"topic" validate:"max=280"`
	Tone     string     `json:"tone" validate:"max=64"`
	VideoURL string     `json:"video_url" validate:"omitempty,url"`
	AvatarID *uuid.UUID `json:"avatar_id"`
}

func CreateContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createContentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		platform, err := enums.ParsePlatform(body.Platform)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}

		item, err := svc.Create(r.Context(), userID, content.CreateInput{
			Platform: platform,
			Script:   validators.SanitizeString(body.Script, maxScriptLength),
			Topic:    validators.SanitizeString(body.Topic, maxTopicLength),
			Tone:     validators.SanitizeString(body.Tone, maxToneLength),
			VideoURL: strings.TrimSpace(body.VideoURL),
			AvatarID: body.AvatarID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// ListContent returns the caller's items newest first. Optional filters: status, platform.
func ListContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		input := content.ListInput{
			Pagination: pagination.Params{Limit: limit, Cursor: strings.TrimSpace(query.Get("cursor"))},
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseContentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Filter.Status = status
		}
		if raw := strings.TrimSpace(query.Get("platform")); raw != "" {
			platform, err := enums.ParsePlatform(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform filter"))
				return
			}
			input.Filter.Platform = platform
		}

		page, err := svc.List(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := ownedTarget(w, r, logg)
		if !ok {
			return
		}
		item, err := svc.Get(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := ownedTarget(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type transitionRequest struct {
	Action       string  `json:"action" validate:"required,content_action"`
	ScheduledFor *string `json:"scheduled_for"`
}

func TransitionContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := ownedTarget(w, r, logg)
		if !ok {
			return
		}
		var body transitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseContentAction(body.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}
		scheduledFor, err := validators.ParseOptionalTime(body.ScheduledFor, "scheduled_for")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Transition(r.Context(), userID, id, content.TransitionInput{Action: action, ScheduledFor: scheduledFor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// PublishContent publishes immediately. A platform rejection is still a 200
// carrying success=false so clients can read the platform error.
func PublishContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := ownedTarget(w, r, logg)
		if !ok {
			return
		}
		result, err := svc.PublishNow(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func RefreshContentVideo(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := ownedTarget(w, r, logg)
		if !ok {
			return
		}
		item, err := svc.RefreshVideo(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ownedTarget(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, uuid.UUID, bool) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := validators.ParseUUIDParam(r, "id")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
