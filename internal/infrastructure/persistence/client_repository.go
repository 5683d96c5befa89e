package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClientRepository implements billing.ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find client", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of clients matching the filter and the total count
func (r *GormClientRepository) FindAll(ctx context.Context, filter billing.ClientFilter) ([]billing.Client, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ClientModel{})
	if filter.Search != "" {
		term := containsPattern(filter.Search)
		query = query.Where(likeClause("name", "email", "company"), term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError("count clients", err)
	}

	var clientModels []models.ClientModel
	query = query.Order(clientSort.orderBy(filter.Filter))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&clientModels).Error; err != nil {
		return nil, 0, translateError("list clients", err)
	}

	clients := make([]billing.Client, len(clientModels))
	for i, model := range clientModels {
		clients[i] = *model.ToDomain()
	}
	return clients, total, nil
}

// ListAll returns every client
func (r *GormClientRepository) ListAll(ctx context.Context) ([]billing.Client, error) {
	var clientModels []models.ClientModel
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&clientModels).Error; err != nil {
		return nil, translateError("list clients", err)
	}
	clients := make([]billing.Client, len(clientModels))
	for i, model := range clientModels {
		clients[i] = *model.ToDomain()
	}
	return clients, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *billing.Client) error {
	model := models.ClientModelFromDomain(client)
	return translateError("save client", r.db.WithContext(ctx).Save(model).Error)
}

// DeleteAll removes every client and returns the number of rows deleted
func (r *GormClientRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ClientModel{})
	if result.Error != nil {
		return 0, translateError("delete clients", result.Error)
	}
	return result.RowsAffected, nil
}

// ShiftTimestamps moves created_at and updated_at on every client by days
func (r *GormClientRepository) ShiftTimestamps(ctx context.Context, days int) (int64, error) {
	if days == 0 {
		return 0, nil
	}
	var shifted int64
	var batch []models.ClientModel
	result := r.db.WithContext(ctx).Select("id", "created_at", "updated_at").
		FindInBatches(&batch, shiftBatchSize, func(_ *gorm.DB, _ int) error {
			for _, m := range batch {
				err := r.db.WithContext(ctx).Model(&models.ClientModel{}).
					Where("id = ?", m.ID).
					UpdateColumns(map[string]any{
						"created_at": shiftUTC(m.CreatedAt, days),
						"updated_at": shiftUTC(m.UpdatedAt, days),
					}).Error
				if err != nil {
					return err
				}
				shifted++
			}
			return nil
		})
	if result.Error != nil {
		return shifted, translateError("shift client timestamps", result.Error)
	}
	return shifted, nil
}

// Ensure GormClientRepository implements billing.ClientRepository
var _ billing.ClientRepository = (*GormClientRepository)(nil)
