package billing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/application/ledger"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/billing"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Bounds for generated test orders
const (
	DefaultTestOrderCount = 3
	MaxTestOrderCount     = 100
)

// TestOrderDescriptions are the descriptions drawn for generated test orders
var TestOrderDescriptions = []string{
	"Web Design Service",
	"Server Maintenance",
	"Consultation Fee",
	"Software License",
	"Hardware Repair",
}

// orderCodeAttempts bounds retries when a generated order code collides
const orderCodeAttempts = 10

// OrderService creates and lists orders
type OrderService struct {
	scope    ledger.TransactionScope
	orders   billing.OrderRepository
	recorder *appaudit.Recorder
	clock    shared.Clock
	codes    billing.CodeGenerator
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	scope ledger.TransactionScope,
	orders billing.OrderRepository,
	recorder *appaudit.Recorder,
	clock shared.Clock,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		scope:    scope,
		orders:   orders,
		recorder: recorder,
		clock:    clock,
		codes:    billing.OrderCodeGenerator{},
		logger:   logger,
	}
}

// CreateOrder places a PENDING order for an existing client
func (s *OrderService) CreateOrder(ctx context.Context, actor identity.Actor, input CreateOrderInput) (*billing.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, input.ClientID.String(),
		telemetry.SpanAttrActor, actor.Label(),
	)

	if err := actor.Authorize(identity.ActionCreateOrder); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionCreateOrder, audit.EntityClient, input.ClientID.String())
		telemetry.RecordError(span, err)
		return nil, err
	}

	var created *billing.Order
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		client, err := repos.Clients().FindByID(ctx, input.ClientID)
		if err != nil {
			return notFound(err, "Client", input.ClientID)
		}

		order, err := s.newOrder(ctx, repos, client.ID, input.Description, input.Amount)
		if err != nil {
			return err
		}
		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionOrderCreated, audit.StatusSuccess).
				On(audit.EntityOrder, order.Code).
				Describe(fmt.Sprintf("Created order %s for %s (amount %s)", order.Code, client.Name, order.Amount.StringFixed(2))))
		created = order
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("create order", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, created.ID.String())
	logger.WithLogger(ctx, s.logger).Info("Order created",
		zap.String("order_code", created.Code),
		zap.String("amount", created.Amount.StringFixed(2)),
	)
	return created, nil
}

func (s *OrderService) newOrder(ctx context.Context, repos ledger.TransactionalRepositories, clientID uuid.UUID, description string, amount decimal.Decimal) (*billing.Order, error) {
	now := s.clock.Now()
	code, err := uniqueCode(ctx, s.codes, repos.Orders().ExistsByCode, now, orderCodeAttempts, "order")
	if err != nil {
		return nil, err
	}
	stamp, err := logicalNow(ctx, repos, now)
	if err != nil {
		return nil, err
	}
	order, err := billing.NewOrder(code, clientID, description, amount, stamp)
	if err != nil {
		return nil, err
	}
	if err := repos.Orders().Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns one page of orders, newest first by default
func (s *OrderService) ListOrders(ctx context.Context, filter billing.OrderFilter) ([]billing.Order, int64, error) {
	orders, total, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, ledger.PersistenceError("list orders", err)
	}
	return orders, total, nil
}

// GenerateTestOrders places count random PENDING orders for the first client,
// creating a placeholder client when the store has none.
func (s *OrderService) GenerateTestOrders(ctx context.Context, actor identity.Actor, count int) ([]billing.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "generate_test_data")
	defer span.End()

	if err := actor.Authorize(identity.ActionGenerateData); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionGenerateData, audit.EntitySystem, "test-data")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if count == 0 {
		count = DefaultTestOrderCount
	}
	if count < 0 || count > MaxTestOrderCount {
		return nil, shared.NewValidationError(fmt.Sprintf("Count must be between 1 and %d", MaxTestOrderCount),
			shared.FieldError{Field: "count", Message: fmt.Sprintf("must be between 1 and %d", MaxTestOrderCount)})
	}

	var generated []billing.Order
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		stamp, err := logicalNow(ctx, repos, s.clock.Now())
		if err != nil {
			return err
		}
		client, err := firstOrPlaceholderClient(ctx, repos, stamp)
		if err != nil {
			return err
		}

		codes := make([]string, 0, count)
		for range count {
			amount := decimal.NewFromInt(int64(100 + rand.IntN(4901))).Add(decimal.RequireFromString("0.50"))
			description := TestOrderDescriptions[rand.IntN(len(TestOrderDescriptions))]
			order, err := s.newOrder(ctx, repos, client.ID, description, amount)
			if err != nil {
				return err
			}
			generated = append(generated, *order)
			codes = append(codes, order.Code)
		}

		_, err = s.recorder.RecordTx(ctx, repos,
			audit.DraftFor(actor, audit.ActionTestDataGenerated, audit.StatusSuccess).
				On(audit.EntityOrder, "N/A").
				Describe(fmt.Sprintf("Generated %d test orders for %s: %s", count, client.Name, strings.Join(codes, ", "))))
		return err
	})
	if err != nil {
		err = ledger.PersistenceError("generate test orders", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Test orders generated", zap.Int("count", len(generated)))
	return generated, nil
}

func firstOrPlaceholderClient(ctx context.Context, repos ledger.TransactionalRepositories, now time.Time) (*billing.Client, error) {
	clients, err := repos.Clients().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) > 0 {
		return &clients[0], nil
	}

	client, err := billing.NewClient("Test Client", "test@example.com", "Tester Co.", now)
	if err != nil {
		return nil, err
	}
	if err := repos.Clients().Save(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}
