package controllers

import (
	"net/http"

	"github.com/angelmondragon/personacast-backend/api/middleware"
	"github.com/angelmondragon/personacast-backend/api/responses"
	"github.com/angelmondragon/personacast-backend/api/validators"
	"github.com/angelmondragon/personacast-backend/internal/persona"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
)

type personaRequest struct {
	Bio            string   `json:"bio" validate:"max=2000"`
	Topics         []string `json:"topics" validate:"max=20,dive,max=80"`
	Style          string   `json:"style" validate:"max=500"`
	Catchphrases   []string `json:"catchphrases" validate:"max=20,dive,max=120"`
	TargetAudience string   `json:"target_audience" validate:"max=500"`
}

func GetPersona(svc persona.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pc, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pc)
	}
}

func SavePersona(svc persona.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body personaRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.Save(r.Context(), userID, persona.Context{
			Bio:            validators.SanitizeString(body.Bio, 2000),
			Topics:         sanitizeList(body.Topics, 80),
			Style:          validators.SanitizeString(body.Style, 500),
			Catchphrases:   sanitizeList(body.Catchphrases, 120),
			TargetAudience: validators.SanitizeString(body.TargetAudience, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}

func sanitizeList(values []string, maxLen int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if clean := validators.SanitizeString(v, maxLen); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
