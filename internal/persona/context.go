package persona

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/personacast-backend/internal/repo"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Context is the read-only persona view handed to script generation.
type Context struct {
	Bio            string   `json:"bio"`
	Topics         []string `json:"topics"`
	Style          string   `json:"style"`
	Catchphrases   []string `json:"catchphrases"`
	TargetAudience string   `json:"target_audience"`
}

// IsEmpty reports whether no persona data is available.
func (c Context) IsEmpty() bool {
	return c.Bio == "" && c.Style == "" && c.TargetAudience == "" && len(c.Topics) == 0 && len(c.Catchphrases) == 0
}

type personaFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Persona, error)
}

// Builder resolves a user's persona into a Context.
type Builder struct {
	repo personaFinder
}

func NewBuilder(repo personaFinder) *Builder {
	return &Builder{repo: repo}
}

// BuildContext returns an empty Context when the user has no persona. Any
// other lookup failure is a dependency error.
func (b *Builder) BuildContext(ctx context.Context, userID uuid.UUID) (Context, error) {
	p, err := b.repo.FindByUserID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return Context{}, nil
		}
		return Context{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load persona")
	}
	return FromModel(p), nil
}

// FromModel flattens the stored persona. Malformed list columns read as empty.
func FromModel(p *models.Persona) Context {
	if p == nil {
		return Context{}
	}
	return Context{
		Bio:            deref(p.Bio),
		Topics:         stringList(p.Topics),
		Style:          deref(p.Style),
		Catchphrases:   stringList(p.Catchphrases),
		TargetAudience: deref(p.TargetAudience),
	}
}

func stringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
