package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VangaRenuka/SocialConnect/internal/cache"
	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

type fakeCounter struct {
	unread    map[string]int64
	published [][]byte
	channel   string
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{unread: make(map[string]int64)}
}

func (f *fakeCounter) IncrUnread(_ context.Context, userID string) (int64, error) {
	f.unread[userID]++
	return f.unread[userID], nil
}

func (f *fakeCounter) Publish(_ context.Context, channel string, payload []byte) error {
	f.channel = channel
	f.published = append(f.published, payload)
	return nil
}

func newTestService() (*Service, *store.MockStore, *fakeCounter) {
	mock := store.NewMock()
	counter := newFakeCounter()
	return NewService(mock, counter, logger.New()), mock, counter
}

func TestCreateStoresAndPublishes(t *testing.T) {
	svc, mock, counter := newTestService()

	err := svc.Create(context.Background(), models.Notification{
		RecipientID: "u2",
		SenderID:    "u1",
		Type:        models.NotifyLike,
		Title:       "New like",
		Message:     "alice liked your post",
	})
	require.NoError(t, err)

	require.Len(t, mock.Notifs["u2"], 1)
	stored := mock.Notifs["u2"][0]
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.Created.IsZero())

	assert.Equal(t, int64(1), counter.unread["u2"])
	require.Len(t, counter.published, 1)
	assert.Equal(t, cache.NotificationsChannel, counter.channel)

	var pushed models.Notification
	require.NoError(t, json.Unmarshal(counter.published[0], &pushed))
	assert.Equal(t, "u2", pushed.RecipientID)
	assert.Equal(t, models.NotifyLike, pushed.Type)
}

func TestCreateSkipsSelfNotification(t *testing.T) {
	svc, mock, counter := newTestService()

	err := svc.Create(context.Background(), models.Notification{
		RecipientID: "u1",
		SenderID:    "u1",
		Type:        models.NotifyLike,
	})
	require.NoError(t, err)
	assert.Empty(t, mock.Notifs["u1"])
	assert.Empty(t, counter.published)
}

func TestCreateRespectsTypePreference(t *testing.T) {
	svc, mock, counter := newTestService()

	prefs := models.DefaultPreferences("u2")
	prefs.InAppLikes = false
	require.NoError(t, mock.SavePreferences(prefs))

	err := svc.Create(context.Background(), models.Notification{
		RecipientID: "u2",
		SenderID:    "u1",
		Type:        models.NotifyLike,
	})
	require.NoError(t, err)

	// Stored for later browsing but not delivered.
	assert.Len(t, mock.Notifs["u2"], 1)
	assert.Zero(t, counter.unread["u2"])
	assert.Empty(t, counter.published)
}

func TestCreateRespectsQuietHours(t *testing.T) {
	svc, mock, counter := newTestService()
	svc.now = func() time.Time {
		return time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	}

	prefs := models.DefaultPreferences("u2")
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "22:00"
	prefs.QuietHoursEnd = "07:00"
	require.NoError(t, mock.SavePreferences(prefs))

	err := svc.Create(context.Background(), models.Notification{
		RecipientID: "u2",
		SenderID:    "u1",
		Type:        models.NotifyComment,
	})
	require.NoError(t, err)
	assert.Len(t, mock.Notifs["u2"], 1)
	assert.Empty(t, counter.published)
}

func TestNotifyFollow(t *testing.T) {
	svc, mock, _ := newTestService()

	require.NoError(t, svc.NotifyFollow(context.Background(), "u1", "alice", "u2"))

	require.Len(t, mock.Notifs["u2"], 1)
	n := mock.Notifs["u2"][0]
	assert.Equal(t, models.NotifyFollow, n.Type)
	assert.Equal(t, "alice started following you", n.Message)
	assert.Equal(t, "u1", n.SenderID)
}

func TestNotifyMentions(t *testing.T) {
	svc, mock, _ := newTestService()
	require.NoError(t, mock.CreateUser(models.User{ID: "u2", Username: "bob", Email: "bob@example.com"}))
	require.NoError(t, mock.CreateUser(models.User{ID: "u3", Username: "carol", Email: "carol@example.com"}))

	content := "hey @bob and @carol, also @bob again and @nobody"
	require.NoError(t, svc.NotifyMentions(context.Background(), "u1", "alice", content, "p1"))

	// bob mentioned twice but notified once; unknown user ignored.
	assert.Len(t, mock.Notifs["u2"], 1)
	assert.Len(t, mock.Notifs["u3"], 1)
	n := mock.Notifs["u2"][0]
	assert.Equal(t, models.NotifyMention, n.Type)
	assert.Equal(t, "p1", n.Data["post_id"])
}

func TestNotifyMentionsSkipsExcluded(t *testing.T) {
	svc, mock, _ := newTestService()
	require.NoError(t, mock.CreateUser(models.User{ID: "u2", Username: "bob", Email: "bob@example.com"}))

	require.NoError(t, svc.NotifyMentions(context.Background(), "u1", "alice", "cc @bob", "p1", "u2"))
	assert.Empty(t, mock.Notifs["u2"])
}

func TestNotifyMentionsSkipsSelf(t *testing.T) {
	svc, mock, _ := newTestService()
	require.NoError(t, mock.CreateUser(models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}))

	require.NoError(t, svc.NotifyMentions(context.Background(), "u1", "alice", "talking about @alice", "p1"))
	assert.Empty(t, mock.Notifs["u1"])
}
