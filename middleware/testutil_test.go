package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopfloor/config"
	"shopfloor/models"
	"shopfloor/utils"
)

func TestMain(m *testing.M) {
	config.AppConfig.JWTSecret = "middleware-test-secret"
	config.AppConfig.SaaSMode = true
	os.Exit(m.Run())
}

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mwtest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))
	require.NoError(t, models.CreateDefaultPlans(db))
	return db
}

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	resolver   *utils.TenantResolver
	compliance *utils.ComplianceService
}

// newTestEnv wires the request pipeline the way the server does: Protected,
// then the read-only gate, then the compliance gate, with plain handlers
// standing in for the real controllers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	tenantCache := utils.NewTTLCache("tenant", time.Minute)
	lifecycle := utils.NewLifecycleService(db, tenantCache)
	resolver := utils.NewTenantResolver(db, tenantCache, lifecycle)
	compliance := utils.NewComplianceService(db, utils.NewTTLCache("compliance", time.Minute))
	features := utils.NewFeatureService(db, utils.NewTTLCache("plan", time.Minute))

	ok := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"ok":             true,
			"platform_admin": IsPlatformAdmin(c),
		})
	}

	app := fiber.New()
	api := app.Group("/api/v1", Protected(db, resolver), ReadOnlyEnforcer(), ComplianceGate(compliance))
	api.Get("/machines", ok)
	api.Post("/machines", ok)
	api.Put("/machines/:id", ok)
	api.Delete("/machines/:id", ok)
	api.Get("/machines/export", RequireComplianceCapability(compliance, "export"), ok)
	api.Post("/shifts", RequirePlanFeature(features, "shift_scheduling"), ok)
	api.Post("/compliance-settings", ok)
	api.Delete("/compliance-settings", ok)
	api.Put("/tenant", ok)

	return &testEnv{app: app, db: db, resolver: resolver, compliance: compliance}
}

func (e *testEnv) createUser(t *testing.T, mutate func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{
		Email:    fmt.Sprintf("op%d@example.com", atomic.AddInt64(&testDBCounter, 1)),
		Name:     "Test Operator",
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("changeme123"))
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createTenant(t *testing.T, mutate func(*models.Tenant)) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Slug:        fmt.Sprintf("plant-%d", atomic.AddInt64(&testDBCounter, 1)),
		Name:        "Acme Manufacturing",
		Status:      models.TenantStatusActive,
		Plan:        models.PlanStarter,
		MaxUsers:    10,
		MaxMachines: 15,
		IsActive:    true,
	}
	if mutate != nil {
		mutate(tenant)
	}
	require.NoError(t, e.db.Create(tenant).Error)
	return tenant
}

// memberToken creates a user, attaches it to the tenant and returns its
// access token.
func (e *testEnv) memberToken(t *testing.T, tenant *models.Tenant) string {
	t.Helper()
	user := e.createUser(t, nil)
	require.NoError(t, e.db.Create(&models.TenantUser{
		TenantID: tenant.ID,
		UserID:   user.ID,
	}).Error)
	id := tenant.ID
	token, _, err := utils.GenerateJWTToken(user, &id)
	require.NoError(t, err)
	return token
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	user := e.createUser(t, func(u *models.User) { u.IsPlatformAdmin = true })
	token, _, err := utils.GenerateJWTToken(user, nil)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func errorKind(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeBody(t, resp)
	kind, _ := body["kind"].(string)
	return kind
}

func pastTime(d time.Duration) *time.Time {
	ts := time.Now().Add(-d)
	return &ts
}

func futureTime(d time.Duration) *time.Time {
	ts := time.Now().Add(d)
	return &ts
}
