package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/kimmokhwa/beautiful-management-app/app/handlers"
	businessflow "github.com/kimmokhwa/beautiful-management-app/business_flow"
	"github.com/kimmokhwa/beautiful-management-app/config"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	testingutil "github.com/kimmokhwa/beautiful-management-app/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func testConfig() *config.ProductionConfig {
	return &config.ProductionConfig{
		Server: config.ServerConfig{
			BodyLimit:     4 * 1024 * 1024,
			ReadTimeout:   5 * time.Second,
			WriteTimeout:  5 * time.Second,
			IdleTimeout:   5 * time.Second,
			EnableMetrics: true,
		},
		Security: config.SecurityConfig{
			AllowedOrigins:      []string{"http://localhost:3000"},
			AllowedMethods:      []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:      []string{"Origin", "Content-Type", "Accept"},
			CORSMaxAge:          60,
			GlobalRateLimit:     1000,
			UploadRateLimit:     100,
			RateLimitWindow:     time.Minute,
			CSPPolicy:           "default-src 'self'",
			XFrameOptions:       "DENY",
			XContentTypeOptions: "nosniff",
			ReferrerPolicy:      "no-referrer",
		},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Deployment: config.DeploymentConfig{Environment: "test", Version: "test"},
	}
}

func newTestApp(t *testing.T, cfg *config.ProductionConfig) *fiber.App {
	t.Helper()

	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	db := tdb.DB
	sqlDB, err := db.DB()
	require.NoError(t, err)

	logger := zap.NewNop()
	materialRepo := repository.NewMaterialRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	procedureRepo := repository.NewProcedureRepository(db)
	linkRepo := repository.NewProcedureMaterialRepository(db)
	jobRepo := repository.NewUploadJobRepository(db)
	costReader := repository.NewProcedureCostReader(db)
	cache := businessflow.NewDashboardCache(nil, "", 0, logger)

	h := Handlers{
		System:    handlers.NewSystemHandler(sqlDB, "test", "test", logger, true),
		Material:  handlers.NewMaterialHandler(businessflow.NewMaterialFlow(materialRepo, linkRepo, cache, logger), logger, true),
		Procedure: handlers.NewProcedureHandler(businessflow.NewProcedureFlow(procedureRepo, categoryRepo, materialRepo, linkRepo, costReader, cache, logger, db), logger, true),
		Dashboard: handlers.NewDashboardHandler(businessflow.NewDashboardFlow(procedureRepo, materialRepo, categoryRepo, costReader, cache, logger), logger, true),
		Upload:    handlers.NewUploadHandler(businessflow.NewUploadFlow(jobRepo, materialRepo, categoryRepo, procedureRepo, linkRepo, cache, cfg.Upload, logger, db), logger, true),
	}

	r := NewFiberRouter(cfg, h, logger, io.Discard)
	r.SetupRoutes()
	return r.GetApp()
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp, env
}

func jsonRequest(method, target string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		bs, _ := json.Marshal(body)
		reader = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func uploadRequest(t *testing.T, target, filename, content, mode string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	if mode != "" {
		require.NoError(t, w.WriteField("mode", mode))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestHealthAndConnection(t *testing.T) {
	app := newTestApp(t, testConfig())

	resp, env := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Equal(t, "DENY", resp.Header.Get(fiber.HeaderXFrameOptions))

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/test-connection", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestMaterialRoutes(t *testing.T) {
	app := newTestApp(t, testConfig())

	resp, env := do(t, app, jsonRequest(http.MethodPost, "/api/materials", map[string]any{"name": "보톡스 100U", "cost": 50000}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID   uint    `json:"id"`
		Cost float64 `json:"cost"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, 50000.0, created.Cost)

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/materials?search=보톡스", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	resp, env = do(t, app, jsonRequest(http.MethodPost, "/api/materials", map[string]any{"name": "", "cost": -1}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/materials/999", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "MATERIAL_NOT_FOUND", env.Error.Code)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/materials/1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcedureRoutesAndDashboard(t *testing.T) {
	app := newTestApp(t, testConfig())

	resp, env := do(t, app, jsonRequest(http.MethodPost, "/api/materials", map[string]any{"name": "필러 1cc", "cost": 100000}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var material struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &material))

	resp, env = do(t, app, jsonRequest(http.MethodPost, "/api/procedures", map[string]any{
		"name":          "코 필러",
		"category":      "필러",
		"customerPrice": 300000,
		"materials":     []map[string]any{{"materialId": material.ID, "quantity": 1.5}},
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var procedure struct {
		ID            uint    `json:"id"`
		TotalCost     float64 `json:"totalCost"`
		Margin        float64 `json:"margin"`
		MarginRate    float64 `json:"marginRate"`
		IsRecommended bool    `json:"isRecommended"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &procedure))
	assert.Equal(t, 150000.0, procedure.TotalCost)
	assert.Equal(t, 150000.0, procedure.Margin)
	assert.Equal(t, 50.0, procedure.MarginRate)
	assert.False(t, procedure.IsRecommended)

	resp, env = do(t, app, httptest.NewRequest(http.MethodPut, "/api/procedures/1/recommend", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &procedure))
	assert.True(t, procedure.IsRecommended)

	// linked materials cannot be deleted
	resp, env = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/materials/1", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/procedures?sortBy=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard/recommended", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var recommended []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &recommended))
	require.Len(t, recommended, 1)
	assert.Equal(t, "코 필러", recommended[0].Name)

	for _, path := range []string{"/api/dashboard/stats", "/api/dashboard/top-margin", "/api/dashboard/top-margin-rate", "/api/dashboard/categories"} {
		resp, env = do(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.True(t, env.Success, path)
	}
}

func TestUploadRoutes(t *testing.T) {
	app := newTestApp(t, testConfig())

	resp, env := do(t, app, uploadRequest(t, "/api/upload/materials", "materials.csv", "재료명,원가\n리도카인,5000\n거즈,\n", "add"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Status      string `json:"status"`
		TotalRows   int    `json:"totalRows"`
		SuccessRows int    `json:"successRows"`
		ErrorRows   int    `json:"errorRows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "Import finished with errors", env.Message)
	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 1, result.SuccessRows)
	assert.Equal(t, 1, result.ErrorRows)

	resp, env = do(t, app, uploadRequest(t, "/api/upload/materials", "materials.txt", "x", ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/upload/history?type=materials", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/upload/history/1/errors", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, businessflow.XLSXContentType, resp.Header.Get(fiber.HeaderContentType))

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/upload/templates/procedures", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")

	resp, env = do(t, app, httptest.NewRequest(http.MethodGet, "/api/upload/templates/unknown", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = do(t, app, httptest.NewRequest(http.MethodPost, "/api/upload/history/1/rollback", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestUploadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.UploadRateLimit = 1
	app := newTestApp(t, cfg)

	resp, _ := do(t, app, uploadRequest(t, "/api/upload/materials", "materials.csv", "재료명,원가\n거즈,100\n", ""))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := do(t, app, uploadRequest(t, "/api/upload/materials", "materials.csv", "재료명,원가\n솜,100\n", ""))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)

	resp, env = do(t, app, jsonRequest(http.MethodPost, "/api/upload/history/1/rollback", nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)

	// reads are not limited by the upload budget
	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/upload/history", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOperationalRoutes(t *testing.T) {
	app := newTestApp(t, testConfig())

	resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := do(t, app, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "ROUTE_NOT_FOUND", env.Error.Code)
	assert.Equal(t, "/api/unknown", env.Error.Details["path"])
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	app := newTestApp(t, cfg)

	resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
