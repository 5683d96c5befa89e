package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/timeshift"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// shiftBatchSize bounds how many rows are loaded per batch while shifting timestamps
const shiftBatchSize = 200

func shiftUTC(t time.Time, days int) time.Time {
	return timeshift.Shift(t.UTC(), days)
}

// GormOrderRepository implements billing.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find order", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of orders matching the filter and the total count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter billing.OrderFilter) ([]billing.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		term := containsPattern(filter.Search)
		query = query.Where(likeClause("code", "description"), term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError("count orders", err)
	}

	var orderModels []models.OrderModel
	query = query.Order(orderSort.orderBy(filter.Filter))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&orderModels).Error; err != nil {
		return nil, 0, translateError("list orders", err)
	}

	orders := make([]billing.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, total, nil
}

// ListAll returns every order, oldest first
func (r *GormOrderRepository) ListAll(ctx context.Context) ([]billing.Order, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).Order("date_placed ASC, id ASC").Find(&orderModels).Error; err != nil {
		return nil, translateError("list orders", err)
	}
	orders := make([]billing.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// ExistsByCode checks whether an order with the given code exists
func (r *GormOrderRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, translateError("check order code", err)
	}
	return count > 0, nil
}

// Save creates or updates an order
func (r *GormOrderRepository) Save(ctx context.Context, order *billing.Order) error {
	model := models.OrderModelFromDomain(order)
	return translateError("save order", r.db.WithContext(ctx).Omit("Client").Save(model).Error)
}

// DeleteAll removes every order and returns the number of rows deleted
func (r *GormOrderRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OrderModel{})
	if result.Error != nil {
		return 0, translateError("delete orders", result.Error)
	}
	return result.RowsAffected, nil
}

// ShiftTimestamps moves date_placed, created_at and updated_at on every order
// by days. Rows are shifted one by one in Go so the calendar arithmetic is
// identical on every driver.
func (r *GormOrderRepository) ShiftTimestamps(ctx context.Context, days int) (int64, error) {
	if days == 0 {
		return 0, nil
	}
	var shifted int64
	var batch []models.OrderModel
	result := r.db.WithContext(ctx).Select("id", "date_placed", "created_at", "updated_at").
		FindInBatches(&batch, shiftBatchSize, func(_ *gorm.DB, _ int) error {
			for _, m := range batch {
				err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
					Where("id = ?", m.ID).
					UpdateColumns(map[string]any{
						"date_placed": shiftUTC(m.DatePlaced, days),
						"created_at":  shiftUTC(m.CreatedAt, days),
						"updated_at":  shiftUTC(m.UpdatedAt, days),
					}).Error
				if err != nil {
					return err
				}
				shifted++
			}
			return nil
		})
	if result.Error != nil {
		return shifted, translateError("shift order timestamps", result.Error)
	}
	return shifted, nil
}

// Ensure GormOrderRepository implements billing.OrderRepository
var _ billing.OrderRepository = (*GormOrderRepository)(nil)
