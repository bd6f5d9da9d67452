package persona

import (
	"context"
	"fmt"

	"github.com/angelmondragon/personacast-backend/internal/repo"
	"github.com/angelmondragon/personacast-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles persona persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to persona operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByUserID loads the persona owned by userID. A missing row returns gorm.ErrRecordNotFound.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Persona, error) {
	var p models.Persona
	if err := r.Owned(ctx, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert writes the persona keyed by user_id.
func (r *Repository) Upsert(ctx context.Context, p *models.Persona) error {
	if p == nil {
		return fmt.Errorf("persona is required")
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bio", "topics", "style", "catchphrases", "target_audience", "updated_at"}),
	}).Create(p).Error
}
