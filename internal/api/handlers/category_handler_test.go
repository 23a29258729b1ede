package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/services"
)

func TestCategoryHandler_List(t *testing.T) {
	api := setupAPI(t)
	api.seedSource(t, "ET Open", scanURI)
	api.seedSource(t, "PT", webURI)

	w := api.do(t, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[services.Listing[models.Category]](t, w)
	assert.EqualValues(t, 2, listing.Total)
	require.Len(t, listing.Items, 2)
	assert.Equal(t, "emerging-scan", listing.Items[0].Name)
	require.NotNil(t, listing.Items[0].Source)
	assert.Equal(t, "ET Open", listing.Items[0].Source.Name)
}

func TestCategoryHandler_GetPaginatesRules(t *testing.T) {
	api := setupAPI(t)
	src := api.seedSource(t, "ET Open", scanURI)
	cat := api.categoryOf(t, src.ID)

	w := api.do(t, http.MethodGet, fmt.Sprintf("/categories/%d?per_page=1&page=2", cat.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[services.CategoryDetail](t, w)
	assert.Equal(t, "emerging-scan", detail.Category.Name)
	assert.Equal(t, "emerging-scan.rules", detail.Category.Filename)
	assert.EqualValues(t, 2, detail.Rules.Total)
	require.Len(t, detail.Rules.Items, 1)
	assert.EqualValues(t, 2000002, detail.Rules.Items[0].SID)
	assert.Equal(t, []services.PathItem{{Kind: "source", ID: src.ID, Name: "ET Open"}}, detail.Path)
}

func TestCategoryHandler_GetMissing(t *testing.T) {
	api := setupAPI(t)

	w := api.do(t, http.MethodGet, "/categories/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"category not found"}`, w.Body.String())

	w = api.do(t, http.MethodGet, "/categories/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
