package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/personacast-backend/api/middleware"
	"github.com/angelmondragon/personacast-backend/api/responses"
	"github.com/angelmondragon/personacast-backend/api/validators"
	"github.com/angelmondragon/personacast-backend/internal/avatars"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
)

const (
	voiceSampleField = "video"
	multipartMemory  = 32 << 20
)

type createAvatarRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

func CreateAvatar(svc avatars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createAvatarRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		avatar, err := svc.Create(r.Context(), userID, validators.SanitizeString(body.Name, 120))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, avatar)
	}
}

func ListAvatars(svc avatars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": list})
	}
}

// CloneAvatarVoice accepts a multipart upload with the sample video in the
// "video" field. Bodies above maxBytes are rejected before parsing completes.
func CloneAvatarVoice(svc avatars.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, avatarID, ok := ownedTarget(w, r, logg)
		if !ok {
			return
		}

		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload too large").WithDetails(map[string]any{"max_bytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(voiceSampleField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "video file is required"))
			return
		}
		defer file.Close()

		avatar, err := svc.CloneVoice(r.Context(), userID, avatarID, avatars.Sample{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, avatar)
	}
}

type speechRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// SynthesizeSpeech previews text in the caller's latest ready voice and answers with raw mp3 bytes.
func SynthesizeSpeech(svc avatars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body speechRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		audio, err := svc.PreviewSpeech(r.Context(), userID, body.Text)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(audio)
	}
}
