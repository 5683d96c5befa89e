package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerdesk/backend/internal/domain/timeshift"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingRepository stores durable scalar settings in ledger_settings.
// It implements timeshift.OffsetRepository for the cumulative offset slot.
type GormSettingRepository struct {
	db *gorm.DB
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// GetInt returns the value stored under key, or 0 when the key is absent
func (r *GormSettingRepository) GetInt(ctx context.Context, key string) (int64, error) {
	var model models.SettingModel
	err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, translateError("read setting "+key, err)
	}
	return model.IntValue, nil
}

// SetInt upserts the value stored under key
func (r *GormSettingRepository) SetInt(ctx context.Context, key string, value int64) error {
	model := models.SettingModel{Key: key, IntValue: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"int_value", "updated_at"}),
	}).Create(&model).Error
	return translateError("write setting "+key, err)
}

// GetOffsetDays returns the cumulative temporal offset in days
func (r *GormSettingRepository) GetOffsetDays(ctx context.Context) (int, error) {
	v, err := r.GetInt(ctx, models.SettingTimeOffsetDays)
	return int(v), err
}

// SetOffsetDays stores the cumulative temporal offset in days
func (r *GormSettingRepository) SetOffsetDays(ctx context.Context, days int) error {
	return r.SetInt(ctx, models.SettingTimeOffsetDays, int64(days))
}

// Ensure GormSettingRepository implements timeshift.OffsetRepository
var _ timeshift.OffsetRepository = (*GormSettingRepository)(nil)
