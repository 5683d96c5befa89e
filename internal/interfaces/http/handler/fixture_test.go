package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	appbilling "github.com/ledgerdesk/backend/internal/application/billing"
	appidentity "github.com/ledgerdesk/backend/internal/application/identity"
	appreport "github.com/ledgerdesk/backend/internal/application/report"
	"github.com/ledgerdesk/backend/internal/application/timeshift"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/report"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/auth"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/ledgerdesk/backend/internal/infrastructure/persistence"
	"github.com/ledgerdesk/backend/internal/interfaces/http/middleware"
	"github.com/ledgerdesk/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const actorHeader = "X-Test-Actor"

// testAPI wires real services over an in-memory database behind the handlers
type testAPI struct {
	engine   *gin.Engine
	db       *gorm.DB
	clock    *shared.FixedClock
	users    *persistence.GormUserRepository
	entries  *persistence.GormAuditEntryRepository
	seeder   *appbilling.Seeder
	orderSvc *appbilling.OrderService
}

// asActor injects the actor named by the test header, standing in for JWT auth
func asActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.GetHeader(actorHeader) {
		case "staff":
			c.Set(middleware.ActorKey, testutil.StaffActor())
		case "manager":
			c.Set(middleware.ActorKey, testutil.ManagerActor())
		case "admin":
			c.Set(middleware.ActorKey, testutil.SuperAdminActor())
		}
		c.Next()
	}
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	middleware.SetupValidator()

	db := testutil.NewTestDB(t)
	clock := testutil.NewTestClock()
	log := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db)
	recorder := appaudit.NewRecorder(scope, clock, log)

	clients := persistence.NewGormClientRepository(db)
	orders := persistence.NewGormOrderRepository(db)
	invoices := persistence.NewGormInvoiceRepository(db)
	entries := persistence.NewGormAuditEntryRepository(db)
	users := persistence.NewGormUserRepository(db)

	invoiceSvc := appbilling.NewInvoiceService(scope, clients, orders, invoices, recorder, clock, appbilling.DefaultInvoiceConfig(), log)
	orderSvc := appbilling.NewOrderService(scope, orders, recorder, clock, log)
	clientSvc := appbilling.NewClientService(scope, clients, recorder, clock, log)
	dashboardSvc := appreport.NewDashboardService(scope, invoiceSvc, clock, report.DefaultOptions(), log)
	engine := timeshift.NewEngine(scope, invoiceSvc, recorder, clock, log)
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "handler-test-secret-32-characters!",
		AccessTokenExpiration: time.Hour,
		Issuer:                "ledger-test",
	})
	authSvc := appidentity.NewAuthService(users, jwtService, recorder, clock, log)

	authH := NewAuthHandler(authSvc)
	clientH := NewClientHandler(clientSvc)
	orderH := NewOrderHandler(orderSvc)
	invoiceH := NewInvoiceHandler(invoiceSvc)
	dashboardH := NewDashboardHandler(dashboardSvc)
	auditH := NewAuditHandler(appaudit.NewQueryService(entries), recorder)
	systemH := NewSystemHandler(engine, orderSvc, clock)

	r := gin.New()
	r.Use(middleware.RequestID(), asActor())
	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", authH.Login)
	v1.GET("/auth/me", authH.Me)
	v1.GET("/clients", clientH.List)
	v1.POST("/clients", clientH.Create)
	v1.GET("/orders", orderH.List)
	v1.POST("/orders", orderH.Create)
	v1.POST("/orders/:id/invoice", invoiceH.CreateFromOrder)
	v1.GET("/invoices", invoiceH.List)
	v1.GET("/invoices/:id", invoiceH.Get)
	v1.PUT("/invoices/:id", invoiceH.Update)
	v1.DELETE("/invoices/:id", invoiceH.Delete)
	v1.GET("/dashboard", dashboardH.Get)
	v1.GET("/audit", auditH.List)
	v1.POST("/audit", auditH.Append)
	v1.GET("/system/time", systemH.GetTime)
	v1.POST("/system/time/shift", systemH.ShiftTime)
	v1.POST("/system/time/restore", systemH.RestoreTime)
	v1.POST("/system/wipe", systemH.Wipe)
	v1.POST("/system/test-data", systemH.GenerateTestData)

	return &testAPI{
		engine:   r,
		db:       db,
		clock:    clock,
		users:    users,
		entries:  entries,
		seeder:   appbilling.NewSeeder(scope, recorder, clock, log),
		orderSvc: orderSvc,
	}
}

func (a *testAPI) do(t *testing.T, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	headers := map[string]string{}
	if actor != "" {
		headers[actorHeader] = actor
	}
	return testutil.Serve(t, a.engine, testutil.Request{
		Method:  method,
		Path:    path,
		Body:    body,
		Headers: headers,
	})
}

func (a *testAPI) seed(t *testing.T) {
	t.Helper()
	seeded, err := a.seeder.SeedDemoData(context.Background(), identity.SystemActor(identity.SystemActorCLI))
	require.NoError(t, err)
	require.True(t, seeded)
}

// createClient creates a client as manager and returns its id
func (a *testAPI) createClient(t *testing.T, name string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/clients", "manager", map[string]any{
		"name":    name,
		"email":   "billing@example.com",
		"company": name + " Ltd",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataField(t, w, "id")
}

// createOrder places an order as manager and returns its id
func (a *testAPI) createOrder(t *testing.T, clientID, amount string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/orders", "manager", map[string]any{
		"client_id":   clientID,
		"description": "Quarterly retainer",
		"amount":      amount,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataField(t, w, "id")
}

// createInvoice invoices the order as manager and returns the invoice data
func (a *testAPI) createInvoice(t *testing.T, orderID string) map[string]any {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/invoice", "manager", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.AssertSuccessResponse(t, w).(map[string]any)
}

func (a *testAPI) auditEntries(t *testing.T, action string) []audit.Entry {
	t.Helper()
	entries, _, err := a.entries.FindAll(context.Background(), audit.Filter{
		Filter: shared.Filter{Page: 1, PageSize: 1000, OrderBy: "timestamp", OrderDir: "asc"},
		Action: action,
	})
	require.NoError(t, err)
	return entries
}

func dataField(t *testing.T, w *httptest.ResponseRecorder, field string) string {
	t.Helper()
	data, ok := testutil.AssertSuccessResponse(t, w).(map[string]any)
	require.True(t, ok, "expected object data: %s", w.Body.String())
	value, ok := data[field].(string)
	require.True(t, ok, "expected string field %q: %s", field, w.Body.String())
	return value
}

func dataList(t *testing.T, w *httptest.ResponseRecorder) []any {
	t.Helper()
	data, ok := testutil.AssertSuccessResponse(t, w).([]any)
	require.True(t, ok, "expected list data: %s", w.Body.String())
	return data
}

func meta(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	m, ok := testutil.DecodeJSON(t, w)["meta"].(map[string]any)
	require.True(t, ok, "expected meta: %s", w.Body.String())
	return m
}
