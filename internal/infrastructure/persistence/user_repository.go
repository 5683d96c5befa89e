package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository stores operator accounts
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByUsername matches the normalized form, so lookups ignore case
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.first(ctx, "username = ?", identity.NormalizeUsername(username))
}

func (r *GormUserRepository) first(ctx context.Context, cond string, arg any) (*identity.User, error) {
	var row models.UserModel
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(&row).Error; err != nil {
		return nil, translateError("find user", err)
	}
	return row.ToDomain(), nil
}

// Save upserts by primary key
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	return translateError("save user", r.db.WithContext(ctx).Save(models.UserModelFromDomain(user)).Error)
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).Count(&n).Error
	return n, translateError("count users", err)
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
