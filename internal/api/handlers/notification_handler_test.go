package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/scirius/backend/internal/models"
)

func TestNotificationHandler_Flow(t *testing.T) {
	api := setupAPI(t)
	api.seedSource(t, "ET Open", scanURI)
	pt := api.seedSource(t, "PT", webURI)

	w := api.do(t, http.MethodGet, "/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	unread := decode[[]models.Notification](t, w)
	require.Len(t, unread, 2)
	for _, n := range unread {
		assert.Equal(t, models.NotificationTypeSuccess, n.Type)
	}

	w = api.do(t, http.MethodGet, fmt.Sprintf("/notifications?source_id=%d", pt.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	bySource := decode[[]models.Notification](t, w)
	require.Len(t, bySource, 1)
	require.NotNil(t, bySource[0].SourceID)
	assert.Equal(t, pt.ID, *bySource[0].SourceID)
	assert.Equal(t, "PT", bySource[0].SourceName)

	w = api.do(t, http.MethodGet, "/notifications?source_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/notifications?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Notification](t, w), 1)

	w = api.do(t, http.MethodPost, fmt.Sprintf("/notifications/%s/read", unread[0].ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/notifications?unread=true", nil)
	assert.Len(t, decode[[]models.Notification](t, w), 1)

	w = api.do(t, http.MethodPost, "/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/notifications?unread=true", nil)
	assert.Empty(t, decode[[]models.Notification](t, w))

	w = api.do(t, http.MethodGet, "/notifications", nil)
	assert.Len(t, decode[[]models.Notification](t, w), 2)
}
