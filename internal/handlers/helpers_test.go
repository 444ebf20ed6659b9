package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"auscultify/internal/config"
	"auscultify/internal/models"
	"auscultify/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type testServices struct {
	users      *MockUserService
	categories *MockCategoryService
	questions  *MockQuestionService
	selection  *MockSelectionService
	statistics *MockStatisticsService
	social     *MockSocialService
}

func (s *testServices) assertExpectations(t *testing.T) {
	s.users.AssertExpectations(t)
	s.categories.AssertExpectations(t)
	s.questions.AssertExpectations(t)
	s.selection.AssertExpectations(t)
	s.statistics.AssertExpectations(t)
	s.social.AssertExpectations(t)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:          config.DefaultPort,
			SessionSecret: "test-secret",
		},
		Storage: config.StorageConfig{
			AudioRoot:      t.TempDir(),
			MaxUploadBytes: config.DefaultMaxUploadBytes,
		},
		OpenTelemetry: config.OpenTelemetryConfig{ServiceName: "auscultify-test"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *testServices) {
	t.Helper()
	svc := &testServices{
		users:      new(MockUserService),
		categories: new(MockCategoryService),
		questions:  new(MockQuestionService),
		selection:  new(MockSelectionService),
		statistics: new(MockStatisticsService),
		social:     new(MockSocialService),
	}
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	router, err := NewRouter(cfg, svc.users, svc.categories, svc.questions, svc.selection, svc.statistics, svc.social, logger)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	return router, svc
}

func newJSONRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doRequest(router *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := newJSONRequest(method, path, body)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return serve(router, req)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func sampleUser() *models.User {
	return &models.User{
		ID:                  5,
		Email:               "ana@example.com",
		PasswordHash:        "$2a$04$hash",
		TotalCorrect:        3,
		TotalFailed:         1,
		TotalAnswered:       4,
		Streak:              2,
		IsPublic:            true,
		FavoriteCriterionID: 1,
	}
}

func intPtr(v int) *int { return &v }
