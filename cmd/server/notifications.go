package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/VangaRenuka/SocialConnect/internal/middleware"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

func (s *Server) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	filter := store.NotificationFilter{
		IsRead:     queryBool(r, "is_read"),
		IsArchived: queryBool(r, "is_archived"),
		Type:       r.URL.Query().Get("type"),
		Limit:      queryInt(r, "limit", 50),
	}

	notifs, err := s.store.ListNotifications(userID, filter)
	if err != nil {
		logg.Error("http/notifications", "Failed to list notifications", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifs,
		"count":         len(notifs),
	})
}

func (s *Server) getNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	n, err := s.store.GetNotification(userID, id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) markReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	n, err := s.store.GetNotification(userID, id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if n.IsRead {
		writeJSON(w, http.StatusOK, map[string]string{"message": "already read"})
		return
	}

	if err := s.store.MarkRead(userID, id, time.Now()); err != nil {
		logg.Error("http/notifications", "Failed to mark read", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.cache.DecrUnread(r.Context(), userID); err != nil {
		logg.Error("http/notifications", "Failed to decrement unread counter", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "marked read"})
}

func (s *Server) markAllReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	count, err := s.store.MarkAllRead(userID, time.Now())
	if err != nil {
		logg.Error("http/notifications", "Failed to mark all read", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.cache.ResetUnread(r.Context(), userID); err != nil {
		logg.Error("http/notifications", "Failed to reset unread counter", err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"marked_read": count})
}

func (s *Server) archiveHandler(w http.ResponseWriter, r *http.Request) {
	s.setArchivedHandler(w, r, true)
}

func (s *Server) unarchiveHandler(w http.ResponseWriter, r *http.Request) {
	s.setArchivedHandler(w, r, false)
}

func (s *Server) setArchivedHandler(w http.ResponseWriter, r *http.Request, archived bool) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := s.store.SetArchived(userID, id, archived); err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	} else if err != nil {
		logg.Error("http/notifications", "Failed to update archive flag", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	msg := "archived"
	if !archived {
		msg = "unarchived"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) deleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	n, err := s.store.GetNotification(userID, id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.store.DeleteNotification(userID, id); err != nil {
		logg.Error("http/notifications", "Failed to delete notification", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !n.IsRead {
		if err := s.cache.DecrUnread(r.Context(), userID); err != nil {
			logg.Error("http/notifications", "Failed to decrement unread counter", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}

func (s *Server) notificationStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	stats, err := s.store.NotificationStats(userID)
	if err != nil {
		logg.Error("http/notifications", "Failed to aggregate stats", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) unreadCountHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	count, err := s.cache.GetUnread(r.Context(), userID)
	if err != nil {
		logg.Error("http/notifications", "Failed to read unread counter", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}

func (s *Server) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	prefs, err := s.store.GetPreferences(userID)
	if err != nil {
		logg.Error("http/notifications", "Failed to load preferences", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) updatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var prefs models.NotificationPreference
	if err := decodeJSON(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if prefs.QuietHoursEnabled {
		if _, err := time.Parse("15:04", prefs.QuietHoursStart); err != nil {
			writeError(w, http.StatusBadRequest, "quiet_hours_start must be HH:MM")
			return
		}
		if _, err := time.Parse("15:04", prefs.QuietHoursEnd); err != nil {
			writeError(w, http.StatusBadRequest, "quiet_hours_end must be HH:MM")
			return
		}
	}
	prefs.UserID = userID

	if err := s.store.SavePreferences(prefs); err != nil {
		logg.Error("http/notifications", "Failed to save preferences", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// testNotificationHandler sends a system notification to the caller so
// clients can verify their WebSocket wiring.
func (s *Server) testNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	err := s.notifier.NotifySystem(r.Context(), userID, "Test notification", "Notifications are working")
	if err != nil {
		logg.Error("http/notifications", "Failed to create test notification", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "test notification sent"})
}
