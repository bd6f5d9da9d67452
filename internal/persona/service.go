package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type personaRepository interface {
	personaFinder
	Upsert(ctx context.Context, p *models.Persona) error
}

// Service exposes the creator's persona profile.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (Context, error)
	Save(ctx context.Context, userID uuid.UUID, input Context) (Context, error)
}

type service struct {
	repo personaRepository
}

func NewService(repo personaRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("persona repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (Context, error) {
	p, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return Context{}, pkgerrors.FromDB(err, "persona", "load persona")
	}
	return FromModel(p), nil
}

func (s *service) Save(ctx context.Context, userID uuid.UUID, input Context) (Context, error) {
	topics, err := encodeList(input.Topics)
	if err != nil {
		return Context{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid topics")
	}
	catchphrases, err := encodeList(input.Catchphrases)
	if err != nil {
		return Context{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid catchphrases")
	}
	p := &models.Persona{
		UserID:         userID,
		Bio:            optional(input.Bio),
		Topics:         topics,
		Style:          optional(input.Style),
		Catchphrases:   catchphrases,
		TargetAudience: optional(input.TargetAudience),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return Context{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save persona")
	}
	return FromModel(p), nil
}

func encodeList(values []string) (datatypes.JSON, error) {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
