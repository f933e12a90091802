package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	appkafka "github.com/VangaRenuka/SocialConnect/internal/broker"
	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/notify"
	"github.com/VangaRenuka/SocialConnect/internal/store"
	"github.com/segmentio/kafka-go"
)

type nopCounter struct{}

func (nopCounter) IncrUnread(context.Context, string) (int64, error) { return 0, nil }
func (nopCounter) Publish(context.Context, string, []byte) error     { return nil }

func newTestWorker(st store.StoreInterface, reader appkafka.KafkaReader) *Worker {
	notifier := notify.NewService(st, nopCounter{}, logger.New())
	return New(st, reader, notifier, 1, 1)
}

// runWorkerOnce processes a single broker message for testing.
func runWorkerOnce(ctx context.Context, w *Worker) error {
	msg, err := w.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}
	if len(msg.Value) == 0 {
		return nil
	}
	var ev models.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return err
	}
	return w.handleEvent(ctx, ev)
}

func seedUser(t *testing.T, mockStore *store.MockStore, username string) models.User {
	t.Helper()
	u := models.User{
		ID:       username + "-id",
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
		JoinedAt: time.Now(),
	}
	if err := mockStore.CreateUser(u); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	return u
}

func eventMessage(t *testing.T, ev models.Event) kafka.Message {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return kafka.Message{Key: []byte(ev.Type), Value: data}
}

// ---------- Positive tests ----------

func TestWorker_DistributePost(t *testing.T) {
	mockStore := store.NewMock()
	author := seedUser(t, mockStore, "author")
	follower := seedUser(t, mockStore, "follower")
	mockStore.CreateFollow(follower.ID, author.ID)

	post := models.Post{
		ID:       "100",
		AuthorID: author.ID,
		Content:  "Hello followers!",
		Created:  time.Now(),
		IsActive: true,
	}
	if err := mockStore.AddPost(post); err != nil {
		t.Fatalf("seed post failed: %v", err)
	}
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.Event{
			Type:    models.EventPostCreated,
			ActorID: author.ID,
			Post:    &post,
		})},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	feed, _ := mockStore.GetFeed(follower.ID, 10)
	if len(feed) != 1 || feed[0].Content != post.Content {
		t.Fatalf("follower feed not updated correctly, got: %+v", feed)
	}
	// The author sees their own post too.
	ownFeed, _ := mockStore.GetFeed(author.ID, 10)
	if len(ownFeed) != 1 {
		t.Fatalf("author feed not updated, got: %+v", ownFeed)
	}
}

func TestWorker_FollowEventCreatesNotification(t *testing.T) {
	mockStore := store.NewMock()
	follower := seedUser(t, mockStore, "almaz")
	followee := seedUser(t, mockStore, "nur")

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.Event{
			Type:     models.EventUserFollowed,
			ActorID:  follower.ID,
			TargetID: followee.ID,
		})},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	notifs := mockStore.Notifs[followee.ID]
	if len(notifs) != 1 || notifs[0].Type != models.NotifyFollow {
		t.Fatalf("expected one follow notification, got: %+v", notifs)
	}
	if notifs[0].Message != "almaz started following you" {
		t.Fatalf("unexpected message: %q", notifs[0].Message)
	}
}

func TestWorker_LikeEventCreatesNotification(t *testing.T) {
	mockStore := store.NewMock()
	liker := seedUser(t, mockStore, "almaz")
	author := seedUser(t, mockStore, "nur")

	post := models.Post{ID: "p1", AuthorID: author.ID, Content: "hi", IsActive: true}
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.Event{
			Type:     models.EventPostLiked,
			ActorID:  liker.ID,
			TargetID: author.ID,
			Post:     &post,
		})},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	notifs := mockStore.Notifs[author.ID]
	if len(notifs) != 1 || notifs[0].Type != models.NotifyLike {
		t.Fatalf("expected one like notification, got: %+v", notifs)
	}
	if notifs[0].Data["post_id"] != "p1" {
		t.Fatalf("expected post_id in notification data")
	}
}

func TestWorker_CommentEventNotifiesAuthorAndMentions(t *testing.T) {
	mockStore := store.NewMock()
	commenter := seedUser(t, mockStore, "almaz")
	author := seedUser(t, mockStore, "nur")
	mentioned := seedUser(t, mockStore, "aliya")

	comment := models.Comment{
		ID:       "c1",
		PostID:   "p1",
		AuthorID: commenter.ID,
		Content:  "great point @aliya, also cc @nur",
		IsActive: true,
	}
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.Event{
			Type:     models.EventCommentAdded,
			ActorID:  commenter.ID,
			TargetID: author.ID,
			Comment:  &comment,
		})},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	// The post author gets exactly one notification (comment, not a
	// second one for the mention).
	authorNotifs := mockStore.Notifs[author.ID]
	if len(authorNotifs) != 1 || authorNotifs[0].Type != models.NotifyComment {
		t.Fatalf("expected one comment notification for author, got: %+v", authorNotifs)
	}

	mentionNotifs := mockStore.Notifs[mentioned.ID]
	if len(mentionNotifs) != 1 || mentionNotifs[0].Type != models.NotifyMention {
		t.Fatalf("expected one mention notification, got: %+v", mentionNotifs)
	}
}

// ---------- Negative tests ----------

func TestWorker_KafkaReadError(t *testing.T) {
	mockStore := store.NewMock()
	w := newTestWorker(mockStore, &appkafka.MockKafkaFail{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, w); err == nil {
		t.Fatalf("expected error from Kafka read")
	}
}

func TestWorker_InvalidEventJSON(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{{Value: []byte("{invalid-json}")}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestWorker_EmptyMessage(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{{Value: nil}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err != nil {
		t.Fatalf("expected no error for empty message, got: %v", err)
	}
}

func TestWorker_UnknownEventType(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.Event{Type: "something_else"})},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err != nil {
		t.Fatalf("unknown event types must be skipped, got: %v", err)
	}
}

func TestWorker_StoreGetFollowersFail(t *testing.T) {
	mockStore := store.NewMock()
	mockStore.ShouldFail = true

	post := models.Post{ID: "200", AuthorID: "author123", Content: "x"}
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.Event{
			Type:    models.EventPostCreated,
			ActorID: "author123",
			Post:    &post,
		})},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, newTestWorker(mockStore, mockKafka)); err == nil {
		t.Fatalf("expected error from store GetFollowers, got nil")
	}
}

// Run drains the queue and stops when the context is cancelled.
func TestWorker_RunGracefulStop(t *testing.T) {
	mockStore := store.NewMock()
	author := seedUser(t, mockStore, "author")

	post := models.Post{ID: "p1", AuthorID: author.ID, Content: "hi", IsActive: true}
	if err := mockStore.AddPost(post); err != nil {
		t.Fatalf("seed post failed: %v", err)
	}
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.Event{
			Type:    models.EventPostCreated,
			ActorID: author.ID,
			Post:    &post,
		})},
	}

	w := newTestWorker(mockStore, mockKafka)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	feed, _ := mockStore.GetFeed(author.ID, 10)
	if len(feed) != 1 {
		t.Fatalf("expected the queued event to be processed, got: %+v", feed)
	}
}
