package services_test

import (
	"testing"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/IANDYI/journal-service/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationInbox_DropsOldest(t *testing.T) {
	inbox := services.NewNotificationInbox(2)

	inbox.Notify(domain.Notification{Kind: domain.NotificationSuccess, Week: 1})
	inbox.Notify(domain.Notification{Kind: domain.NotificationSuccess, Week: 2})
	inbox.Notify(domain.Notification{Kind: domain.NotificationError, Week: 3})

	items := inbox.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, domain.Week(2), items[0].Week)
	assert.Equal(t, domain.Week(3), items[1].Week)
	assert.False(t, items[0].At.IsZero())
}

func TestNotificationInbox_DrainEmpty(t *testing.T) {
	items := services.NewNotificationInbox(0).Drain()
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
