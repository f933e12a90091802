// Package notify creates notifications and pushes them to online
// recipients through the cache pub/sub channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/VangaRenuka/SocialConnect/internal/cache"
	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/VangaRenuka/SocialConnect/internal/models"
)

var mentionRegex = regexp.MustCompile(`@(\w+)`)

// Store is the persistence surface the service needs.
type Store interface {
	AddNotification(n models.Notification) error
	GetPreferences(userID string) (models.NotificationPreference, error)
	GetUserIDByUsername(username string) (string, error)
}

// Counter tracks unread counts and publishes delivery payloads.
type Counter interface {
	IncrUnread(ctx context.Context, userID string) (int64, error)
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Service persists notifications and, when the recipient's preferences
// allow it, publishes them for real-time delivery.
type Service struct {
	store Store
	cache Counter
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, counter Counter, log *logger.Logger) *Service {
	return &Service{store: store, cache: counter, log: log, now: time.Now}
}

// Create stores the notification unconditionally. Delivery (unread
// counter and pub/sub push) is skipped when the recipient disabled the
// type or is inside quiet hours. Self-notifications are dropped.
func (s *Service) Create(ctx context.Context, n models.Notification) error {
	if n.SenderID != "" && n.SenderID == n.RecipientID {
		return nil
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Created.IsZero() {
		n.Created = s.now()
	}

	if err := s.store.AddNotification(n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	prefs, err := s.store.GetPreferences(n.RecipientID)
	if err != nil {
		s.log.Error("notify", "failed to load preferences, delivering anyway", err)
		prefs = models.DefaultPreferences(n.RecipientID)
	}
	if !prefs.AllowsInApp(n.Type) || prefs.InQuietHours(s.now()) {
		s.log.Debug("notify", "delivery suppressed for user "+n.RecipientID)
		return nil
	}

	if _, err := s.cache.IncrUnread(ctx, n.RecipientID); err != nil {
		s.log.Error("notify", "failed to bump unread counter", err)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.cache.Publish(ctx, cache.NotificationsChannel, payload); err != nil {
		s.log.Error("notify", "failed to publish notification", err)
	}
	return nil
}

func (s *Service) NotifyFollow(ctx context.Context, followerID, followerName, followeeID string) error {
	return s.Create(ctx, models.Notification{
		RecipientID: followeeID,
		SenderID:    followerID,
		Type:        models.NotifyFollow,
		Title:       "New follower",
		Message:     fmt.Sprintf("%s started following you", followerName),
	})
}

func (s *Service) NotifyLike(ctx context.Context, likerID, likerName string, post models.Post) error {
	return s.Create(ctx, models.Notification{
		RecipientID: post.AuthorID,
		SenderID:    likerID,
		Type:        models.NotifyLike,
		Title:       "New like",
		Message:     fmt.Sprintf("%s liked your post", likerName),
		Data:        map[string]string{"post_id": post.ID},
	})
}

func (s *Service) NotifyComment(ctx context.Context, commenterID, commenterName string, comment models.Comment, postAuthorID string) error {
	return s.Create(ctx, models.Notification{
		RecipientID: postAuthorID,
		SenderID:    commenterID,
		Type:        models.NotifyComment,
		Title:       "New comment",
		Message:     fmt.Sprintf("%s commented on your post", commenterName),
		Data:        map[string]string{"post_id": comment.PostID, "comment_id": comment.ID},
	})
}

// NotifyMentions scans content for @username references and notifies
// each mentioned user once. Unknown usernames are ignored, as are the
// actor and any ids in exclude (the post author is already notified
// through the comment itself).
func (s *Service) NotifyMentions(ctx context.Context, actorID, actorName, content, postID string, exclude ...string) error {
	excluded := make(map[string]bool, len(exclude)+1)
	excluded[actorID] = true
	for _, id := range exclude {
		excluded[id] = true
	}

	seen := make(map[string]bool)
	for _, match := range mentionRegex.FindAllStringSubmatch(content, -1) {
		username := match[1]
		if seen[username] {
			continue
		}
		seen[username] = true

		userID, err := s.store.GetUserIDByUsername(username)
		if err != nil {
			s.log.Error("notify", "mention lookup failed for "+username, err)
			continue
		}
		if userID == "" || excluded[userID] {
			continue
		}

		err = s.Create(ctx, models.Notification{
			RecipientID: userID,
			SenderID:    actorID,
			Type:        models.NotifyMention,
			Title:       "You were mentioned",
			Message:     fmt.Sprintf("%s mentioned you in a post", actorName),
			Data:        map[string]string{"post_id": postID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NotifySystem is used by admin broadcasts.
func (s *Service) NotifySystem(ctx context.Context, recipientID, title, message string) error {
	return s.Create(ctx, models.Notification{
		RecipientID: recipientID,
		Type:        models.NotifySystem,
		Title:       title,
		Message:     message,
	})
}
