package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Wikid82/scirius/backend/internal/api/handlers"
	"github.com/Wikid82/scirius/backend/internal/database"
	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/services"
)

const (
	scanURI = "https://rules.example.com/emerging-scan.rules"
	webURI  = "https://rules.example.com/pt-web.rules"
)

var scanRules = "alert tcp any any -> any any (msg:\"ET SCAN nmap\"; reference:cve,2020-1234; reference:url,example.com; sid:2000002; rev:3;)\n" +
	"alert tcp any any -> any any (msg:\"ET SCAN masscan\"; sid:2000001; rev:1;)\n"

var webRules = "alert http any any -> any any (msg:\"PT WEB shell\"; sid:3000001; rev:1;)\n"

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, src *models.Source) ([]byte, error) {
	data, ok := m[src.URI]
	if !ok {
		return nil, fmt.Errorf("%w: dial tcp: connection refused", feeds.ErrFetch)
	}
	return data, nil
}

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, handlers.RegisterValidators())

	db := database.OpenTestDB(t)
	store := services.NewStore(db)
	fetcher := mapFetcher{scanURI: []byte(scanRules), webURI: []byte(webRules)}
	notifications := services.NewNotificationService(db, nil)
	sources := services.NewSourceService(store, fetcher, services.NewStoreMerger(db), feeds.DiffComparer{}, notifications)
	rulesets := services.NewRulesetService(store, sources, 2)
	refs, err := services.NewReferenceCache(64)
	require.NoError(t, err)
	rules := services.NewRuleService(store, refs)

	sourceHandler := handlers.NewSourceHandler(sources)
	categoryHandler := handlers.NewCategoryHandler(rules)
	ruleHandler := handlers.NewRuleHandler(rules, rulesets)
	rulesetHandler := handlers.NewRulesetHandler(rulesets)
	notificationHandler := handlers.NewNotificationHandler(notifications)
	dashboardHandler := handlers.NewDashboardHandler(sources, rulesets)

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/health", handlers.HealthHandler)
	api.GET("/", dashboardHandler.Index)
	api.GET("/sources", sourceHandler.List)
	api.POST("/sources", sourceHandler.Create)
	api.GET("/sources/:id", sourceHandler.Get)
	api.PUT("/sources/:id", sourceHandler.Update)
	api.POST("/sources/:id/update", sourceHandler.Refresh)
	api.GET("/sources/:id/diff", sourceHandler.Diff)
	api.GET("/categories", categoryHandler.List)
	api.GET("/categories/:id", categoryHandler.Get)
	api.GET("/rules/:id", ruleHandler.Get)
	api.POST("/rules/:id/suppress", ruleHandler.Suppress)
	api.GET("/rulesets", rulesetHandler.List)
	api.POST("/rulesets", rulesetHandler.Create)
	api.GET("/rulesets/:id", rulesetHandler.Get)
	api.DELETE("/rulesets/:id", rulesetHandler.Delete)
	api.GET("/rulesets/:id/edit", rulesetHandler.EditView)
	api.POST("/rulesets/:id/edit", rulesetHandler.Edit)
	api.POST("/rulesets/:id/suppressed", rulesetHandler.Suppressed)
	api.POST("/rulesets/:id/copy", rulesetHandler.Copy)
	api.POST("/rulesets/:id/update", rulesetHandler.Refresh)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
	api.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)

	return &testAPI{router: r, db: db}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// seedSource creates a source through the API and runs its first update.
func (a *testAPI) seedSource(t *testing.T, name, uri string) models.Source {
	t.Helper()
	w := a.do(t, http.MethodPost, "/sources", gin.H{"name": name, "uri": uri, "method": "http", "datatype": "sig"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	src := decode[models.Source](t, w)

	w = a.do(t, http.MethodPost, fmt.Sprintf("/sources/%d/update", src.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return src
}

func (a *testAPI) categoryOf(t *testing.T, sourceID uint) models.Category {
	t.Helper()
	var cat models.Category
	require.NoError(t, a.db.Where("source_id = ?", sourceID).First(&cat).Error)
	return cat
}

func (a *testAPI) ruleBySID(t *testing.T, sid uint) models.Rule {
	t.Helper()
	var r models.Rule
	require.NoError(t, a.db.Where("sid = ?", sid).First(&r).Error)
	return r
}

func (a *testAPI) createRuleset(t *testing.T, name string, sourceID uint, cats ...uint) models.Ruleset {
	t.Helper()
	w := a.do(t, http.MethodPost, "/rulesets", gin.H{"name": name, "sources": []uint{sourceID}, "categories": cats})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Ruleset](t, w)
}
