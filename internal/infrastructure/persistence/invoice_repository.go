package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find invoice", err)
	}
	return model.ToDomain(), nil
}

// FindByOrderID finds the invoice linked to an order
func (r *GormInvoiceRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error; err != nil {
		return nil, translateError("find invoice by order", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of invoices matching the filter and the total count.
// Search matches a case-insensitive substring of the invoice code.
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		query = query.Where(likeClause("code"), containsPattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError("count invoices", err)
	}

	var invoiceModels []models.InvoiceModel
	query = query.Order(invoiceSort.orderBy(filter.Filter))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, 0, translateError("list invoices", err)
	}

	return toInvoices(invoiceModels), total, nil
}

// ListAll returns every invoice, oldest first
func (r *GormInvoiceRepository) ListAll(ctx context.Context) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).Order("date_created ASC, id ASC").Find(&invoiceModels).Error; err != nil {
		return nil, translateError("list invoices", err)
	}
	return toInvoices(invoiceModels), nil
}

// FindOpenDueBefore returns PENDING or SENT invoices whose due date is before t
func (r *GormInvoiceRepository) FindOpenDueBefore(ctx context.Context, t time.Time) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND date_due < ?", []billing.InvoiceStatus{billing.InvoiceStatusPending, billing.InvoiceStatusSent}, t.UTC()).
		Order("date_due ASC, id ASC").
		Find(&invoiceModels).Error
	if err != nil {
		return nil, translateError("find due invoices", err)
	}
	return toInvoices(invoiceModels), nil
}

// FindOverdueDueAfter returns OVERDUE invoices whose due date is after t
func (r *GormInvoiceRepository) FindOverdueDueAfter(ctx context.Context, t time.Time) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND date_due > ?", billing.InvoiceStatusOverdue, t.UTC()).
		Order("date_due ASC, id ASC").
		Find(&invoiceModels).Error
	if err != nil {
		return nil, translateError("find overdue invoices", err)
	}
	return toInvoices(invoiceModels), nil
}

// ExistsByCode checks whether an invoice with the given code exists
func (r *GormInvoiceRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, translateError("check invoice code", err)
	}
	return count > 0, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return translateError("save invoice", r.db.WithContext(ctx).Omit("Order", "Client").Save(model).Error)
}

// Delete removes an invoice by ID
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete invoice", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteAll removes every invoice and returns the number of rows deleted
func (r *GormInvoiceRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.InvoiceModel{})
	if result.Error != nil {
		return 0, translateError("delete invoices", result.Error)
	}
	return result.RowsAffected, nil
}

// ShiftTimestamps moves date_created, date_due, created_at and updated_at on
// every invoice by days
func (r *GormInvoiceRepository) ShiftTimestamps(ctx context.Context, days int) (int64, error) {
	if days == 0 {
		return 0, nil
	}
	var shifted int64
	var batch []models.InvoiceModel
	result := r.db.WithContext(ctx).Select("id", "date_created", "date_due", "created_at", "updated_at").
		FindInBatches(&batch, shiftBatchSize, func(_ *gorm.DB, _ int) error {
			for _, m := range batch {
				err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
					Where("id = ?", m.ID).
					UpdateColumns(map[string]any{
						"date_created": shiftUTC(m.DateCreated, days),
						"date_due":     shiftUTC(m.DateDue, days),
						"created_at":   shiftUTC(m.CreatedAt, days),
						"updated_at":   shiftUTC(m.UpdatedAt, days),
					}).Error
				if err != nil {
					return err
				}
				shifted++
			}
			return nil
		})
	if result.Error != nil {
		return shifted, translateError("shift invoice timestamps", result.Error)
	}
	return shifted, nil
}

func toInvoices(invoiceModels []models.InvoiceModel) []billing.Invoice {
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements billing.InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
