package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by the per-user repositories: personas, avatars and
// content items all carry a user_id owner column.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Owned scopes a query to rows belonging to userID.
func (b Base) Owned(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return b.DB(ctx).Where("user_id = ?", userID)
}

// FindOwned loads the row with id inside the owner's scope. Rows owned by
// another user surface as gorm.ErrRecordNotFound.
func FindOwned[T any](ctx context.Context, b Base, userID, id uuid.UUID) (*T, error) {
	var out T
	if err := b.Owned(ctx, userID).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
