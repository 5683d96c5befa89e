package persistence

import (
	"context"

	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditEntryRepository implements audit.EntryRepository using GORM.
// Entries are only ever inserted; ShiftTimestamps and DeleteAll are bulk maintenance paths.
type GormAuditEntryRepository struct {
	db *gorm.DB
}

// NewGormAuditEntryRepository creates a new GormAuditEntryRepository
func NewGormAuditEntryRepository(db *gorm.DB) *GormAuditEntryRepository {
	return &GormAuditEntryRepository{db: db}
}

// Append inserts a new entry
func (r *GormAuditEntryRepository) Append(ctx context.Context, entry *audit.Entry) error {
	model := models.AuditEntryModelFromDomain(entry)
	return translateError("append audit entry", r.db.WithContext(ctx).Create(model).Error)
}

// FindAll returns one page of entries, newest first by default
func (r *GormAuditEntryRepository) FindAll(ctx context.Context, filter audit.Filter) ([]audit.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEntryModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Search != "" {
		term := containsPattern(filter.Search)
		query = query.Where(likeClause("description", "actor_id"), term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError("count audit entries", err)
	}

	var entryModels []models.AuditEntryModel
	query = query.Order(auditSort.orderBy(filter.Filter))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, 0, translateError("list audit entries", err)
	}

	entries := make([]audit.Entry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, total, nil
}

// DeleteAll removes every entry and returns the number of rows deleted
func (r *GormAuditEntryRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.AuditEntryModel{})
	if result.Error != nil {
		return 0, translateError("delete audit entries", result.Error)
	}
	return result.RowsAffected, nil
}

// ShiftTimestamps moves the timestamp of every entry by days
func (r *GormAuditEntryRepository) ShiftTimestamps(ctx context.Context, days int) (int64, error) {
	if days == 0 {
		return 0, nil
	}
	var shifted int64
	var batch []models.AuditEntryModel
	result := r.db.WithContext(ctx).Select("id", "timestamp").
		FindInBatches(&batch, shiftBatchSize, func(_ *gorm.DB, _ int) error {
			for _, m := range batch {
				err := r.db.WithContext(ctx).Model(&models.AuditEntryModel{}).
					Where("id = ?", m.ID).
					UpdateColumn("timestamp", shiftUTC(m.Timestamp, days)).Error
				if err != nil {
					return err
				}
				shifted++
			}
			return nil
		})
	if result.Error != nil {
		return shifted, translateError("shift audit timestamps", result.Error)
	}
	return shifted, nil
}

// Ensure GormAuditEntryRepository implements audit.EntryRepository
var _ audit.EntryRepository = (*GormAuditEntryRepository)(nil)
