package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/scirius/backend/internal/database"
	"github.com/Wikid82/scirius/backend/internal/models"
)

func TestNotificationService_CreateAndList(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewNotificationService(db, nil)
	ctx := context.Background()

	notif := &models.Notification{Type: models.NotificationTypeInfo, Title: "N1", Message: "M1"}
	require.NoError(t, svc.Create(ctx, notif))
	assert.NotEmpty(t, notif.ID)
	assert.False(t, notif.Read)

	require.NoError(t, svc.Create(ctx, &models.Notification{Type: models.NotificationTypeError, Title: "N2", Message: "M2"}))

	list, err := svc.List(ctx, NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.MarkAsRead(ctx, notif.ID))
	unread, err := svc.List(ctx, NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "N2", unread[0].Title)

	require.NoError(t, svc.MarkAllAsRead(ctx))
	unread, err = svc.List(ctx, NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	limited, err := svc.List(ctx, NotificationFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNotificationService_NotifyForwardsToURLs(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewNotificationService(db, []string{
		"generic://hooks.example.com/scirius",
		"https://discord.com/api/webhooks/123/abc-DEF",
		"ftp://not-a-webhook",
	})

	var (
		mu   sync.Mutex
		sent []string
	)
	svc.send = func(url, message string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, url)
		assert.Equal(t, "Source updated\n\nET Open: 3 added", message)
		return errors.New("delivery failures are only logged")
	}

	src := &models.Source{ID: 4, Name: "ET Open"}
	svc.Notify(context.Background(), models.NewSourceNotification(models.NotificationTypeSuccess, src, "Source updated", "ET Open: 3 added"))
	svc.Wait()

	assert.ElementsMatch(t, []string{
		"generic://hooks.example.com/scirius",
		"discord://abc-DEF@123",
		"ftp://not-a-webhook",
	}, sent)

	list, err := svc.List(context.Background(), NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationTypeSuccess, list[0].Type)
	require.NotNil(t, list[0].SourceID)
	assert.Equal(t, uint(4), *list[0].SourceID)
	assert.Equal(t, "ET Open", list[0].SourceName)
}

func TestNotificationService_ListBySource(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewNotificationService(db, nil)
	ctx := context.Background()

	et := &models.Source{ID: 1, Name: "ET Open"}
	pt := &models.Source{ID: 2, Name: "PT"}
	require.NoError(t, svc.Create(ctx, models.NewSourceNotification(models.NotificationTypeSuccess, et, "Source updated", "ET Open")))
	require.NoError(t, svc.Create(ctx, models.NewSourceNotification(models.NotificationTypeError, pt, "Source update failed", "PT")))
	require.NoError(t, svc.Create(ctx, &models.Notification{Type: models.NotificationTypeInfo, Title: "unrelated"}))

	list, err := svc.List(ctx, NotificationFilter{SourceID: pt.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "PT", list[0].SourceName)
	assert.Equal(t, models.NotificationTypeError, list[0].Type)

	all, err := svc.List(ctx, NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestValidateWebhookURL(t *testing.T) {
	_, err := validateWebhookURL("ftp://example.com")
	assert.Error(t, err)
	_, err = validateWebhookURL("http://")
	assert.Error(t, err)
	u, err := validateWebhookURL("http://localhost:8080/hook")
	require.NoError(t, err)
	assert.Equal(t, "localhost", u.Hostname())
}
