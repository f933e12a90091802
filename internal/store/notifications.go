package store

import (
	"time"

	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/gocql/gocql"
)

const notificationColumns = `recipient_id, id, sender_id, type, title, message, data,
	is_read, is_archived, created_at, read_at`

// AddNotification stores the notification and its id lookup row.
func (s *Store) AddNotification(n models.Notification) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO notifications_by_recipient (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.RecipientID, n.ID, n.SenderID, n.Type, n.Title, n.Message, n.Data,
		n.IsRead, n.IsArchived, n.Created, timeOrZero(n.ReadAt))
	batch.Query(`INSERT INTO notifications_by_id (id, recipient_id) VALUES (?, ?)`,
		n.ID, n.RecipientID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add notification", err)
		return err
	}
	return nil
}

func scanNotificationIter(iter interface {
	Scan(dest ...interface{}) bool
	Close() error
}) ([]models.Notification, error) {
	var res []models.Notification
	var n models.Notification
	var readAt time.Time
	for iter.Scan(&n.RecipientID, &n.ID, &n.SenderID, &n.Type, &n.Title, &n.Message,
		&n.Data, &n.IsRead, &n.IsArchived, &n.Created, &readAt) {
		cp := n
		cp.Data = copyData(n.Data)
		if !readAt.IsZero() {
			ra := readAt
			cp.ReadAt = &ra
		}
		res = append(res, cp)
	}
	return res, iter.Close()
}

func copyData(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) GetNotification(recipientID, id string) (*models.Notification, error) {
	var n models.Notification
	var readAt time.Time
	err := s.Session.Query(`
		SELECT `+notificationColumns+` FROM notifications_by_recipient
		WHERE recipient_id = ? AND id = ?`,
		recipientID, id,
	).Scan(&n.RecipientID, &n.ID, &n.SenderID, &n.Type, &n.Title, &n.Message,
		&n.Data, &n.IsRead, &n.IsArchived, &n.Created, &readAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !readAt.IsZero() {
		n.ReadAt = &readAt
	}
	return &n, nil
}

// ListNotifications returns the newest notifications of a recipient,
// filtered client-side.
func (s *Store) ListNotifications(recipientID string, f NotificationFilter) ([]models.Notification, error) {
	iter := s.Session.Query(`
		SELECT `+notificationColumns+` FROM notifications_by_recipient
		WHERE recipient_id = ?`,
		recipientID,
	).Iter()

	all, err := scanNotificationIter(iter)
	if err != nil {
		logg.Error("store", "Failed to list notifications", err)
		return nil, err
	}

	var res []models.Notification
	for _, n := range all {
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		if f.IsArchived != nil && n.IsArchived != *f.IsArchived {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		res = append(res, n)
		if f.Limit > 0 && len(res) >= f.Limit {
			break
		}
	}
	return res, nil
}

func (s *Store) MarkRead(recipientID, id string, t time.Time) error {
	return s.Session.Query(`
		UPDATE notifications_by_recipient SET is_read = true, read_at = ?
		WHERE recipient_id = ? AND id = ?`,
		t, recipientID, id,
	).Exec()
}

// MarkAllRead flags every unread notification of the recipient and
// returns how many were flipped.
func (s *Store) MarkAllRead(recipientID string, t time.Time) (int64, error) {
	unread := false
	pending, err := s.ListNotifications(recipientID, NotificationFilter{IsRead: &unread})
	if err != nil {
		return 0, err
	}

	var count int64
	for _, n := range pending {
		if err := s.MarkRead(recipientID, n.ID, t); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Store) SetArchived(recipientID, id string, archived bool) error {
	return s.Session.Query(`
		UPDATE notifications_by_recipient SET is_archived = ?
		WHERE recipient_id = ? AND id = ?`,
		archived, recipientID, id,
	).Exec()
}

func (s *Store) DeleteNotification(recipientID, id string) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM notifications_by_recipient WHERE recipient_id = ? AND id = ?`,
		recipientID, id)
	batch.Query(`DELETE FROM notifications_by_id WHERE id = ?`, id)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete notification", err)
		return err
	}
	return nil
}

// NotificationStats aggregates counts over the recipient's partition.
func (s *Store) NotificationStats(recipientID string) (models.NotificationStats, error) {
	all, err := s.ListNotifications(recipientID, NotificationFilter{})
	if err != nil {
		return models.NotificationStats{}, err
	}

	var st models.NotificationStats
	for _, n := range all {
		st.Total++
		if n.IsRead {
			st.Read++
		} else {
			st.Unread++
		}
		if n.IsArchived {
			st.Archived++
		}
		switch n.Type {
		case models.NotifyFollow:
			st.Follows++
		case models.NotifyLike:
			st.Likes++
		case models.NotifyComment:
			st.Comments++
		case models.NotifyMention:
			st.Mentions++
		case models.NotifySystem:
			st.System++
		}
	}
	return st, nil
}

// GetPreferences returns stored preferences, or the defaults when the
// user has never saved any.
func (s *Store) GetPreferences(userID string) (models.NotificationPreference, error) {
	var p models.NotificationPreference
	err := s.Session.Query(`
		SELECT user_id, email_follows, email_likes, email_comments, email_mentions, email_system,
			push_follows, push_likes, push_comments, push_mentions, push_system,
			in_app_follows, in_app_likes, in_app_comments, in_app_mentions, in_app_system,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end
		FROM notification_prefs WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.EmailFollows, &p.EmailLikes, &p.EmailComments, &p.EmailMentions, &p.EmailSystem,
		&p.PushFollows, &p.PushLikes, &p.PushComments, &p.PushMentions, &p.PushSystem,
		&p.InAppFollows, &p.InAppLikes, &p.InAppComments, &p.InAppMentions, &p.InAppSystem,
		&p.QuietHoursEnabled, &p.QuietHoursStart, &p.QuietHoursEnd)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.DefaultPreferences(userID), nil
		}
		return p, err
	}
	return p, nil
}

func (s *Store) SavePreferences(p models.NotificationPreference) error {
	err := s.Session.Query(`
		INSERT INTO notification_prefs (user_id, email_follows, email_likes, email_comments,
			email_mentions, email_system, push_follows, push_likes, push_comments, push_mentions,
			push_system, in_app_follows, in_app_likes, in_app_comments, in_app_mentions,
			in_app_system, quiet_hours_enabled, quiet_hours_start, quiet_hours_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.EmailFollows, p.EmailLikes, p.EmailComments, p.EmailMentions, p.EmailSystem,
		p.PushFollows, p.PushLikes, p.PushComments, p.PushMentions, p.PushSystem,
		p.InAppFollows, p.InAppLikes, p.InAppComments, p.InAppMentions, p.InAppSystem,
		p.QuietHoursEnabled, p.QuietHoursStart, p.QuietHoursEnd,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to save notification preferences", err)
	}
	return err
}

// ListAllNotifications scans the full table for the admin view; acceptable
// at admin-tool frequency.
func (s *Store) ListAllNotifications(f AdminNotificationFilter) ([]models.Notification, error) {
	iter := s.Session.Query(
		`SELECT ` + notificationColumns + ` FROM notifications_by_recipient`,
	).Iter()

	all, err := scanNotificationIter(iter)
	if err != nil {
		logg.Error("store", "Failed to list all notifications", err)
		return nil, err
	}

	var res []models.Notification
	for _, n := range all {
		if f.RecipientID != "" && n.RecipientID != f.RecipientID {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		res = append(res, n)
		if f.Limit > 0 && len(res) >= f.Limit {
			break
		}
	}
	return res, nil
}

// FindNotificationRecipient resolves a notification id to its recipient.
func (s *Store) FindNotificationRecipient(id string) (string, error) {
	var recipient string
	err := s.Session.Query(
		`SELECT recipient_id FROM notifications_by_id WHERE id = ?`, id,
	).Scan(&recipient)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", ErrNotFound
		}
		return "", err
	}
	return recipient, nil
}
