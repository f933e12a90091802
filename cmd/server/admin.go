package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/VangaRenuka/SocialConnect/internal/middleware"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

func (s *Server) adminStatsHandler(w http.ResponseWriter, r *http.Request) {
	var stats models.AdminStats
	var err error

	dayStart := time.Now().Truncate(24 * time.Hour)

	if stats.TotalUsers, err = s.store.CountUsers(); err != nil {
		logg.Error("http/admin", "Failed to count users", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if stats.TotalPosts, err = s.store.CountPosts(); err != nil {
		logg.Error("http/admin", "Failed to count posts", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if stats.ActiveToday, err = s.store.CountActiveSince(dayStart); err != nil {
		logg.Error("http/admin", "Failed to count active users", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if stats.NewUsersToday, err = s.store.CountJoinedSince(dayStart); err != nil {
		logg.Error("http/admin", "Failed to count new users", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) adminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.URL.Query().Get("q"), r.URL.Query().Get("role"), queryInt(r, "limit", 100))
	if err != nil {
		logg.Error("http/admin", "Failed to list users", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

func (s *Server) adminGetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(mux.Vars(r)["id"])
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// adminUpdateUserHandler changes role or reactivates an account.
// Admins cannot demote themselves.
func (s *Server) adminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["id"]
	callerID, _ := middleware.UserIDFromContext(r.Context())

	var body struct {
		Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
		IsActive *bool   `json:"is_active"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.store.GetUserByID(targetID); err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if body.Role != nil {
		if targetID == callerID && *body.Role != models.RoleAdmin {
			writeError(w, http.StatusBadRequest, "cannot change your own role")
			return
		}
		if err := s.store.SetUserRole(targetID, *body.Role); err != nil {
			logg.Error("http/admin", "Failed to set user role", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if body.IsActive != nil {
		var err error
		if *body.IsActive {
			err = s.store.ReactivateUser(targetID)
		} else {
			if targetID == callerID {
				writeError(w, http.StatusBadRequest, "cannot deactivate your own account")
				return
			}
			err = s.store.DeactivateUser(targetID, time.Now())
		}
		if err != nil {
			logg.Error("http/admin", "Failed to update user status", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	user, err := s.store.GetUserByID(targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// adminDeactivateUserHandler soft-deletes an account. Admins cannot
// deactivate themselves.
func (s *Server) adminDeactivateUserHandler(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["id"]
	callerID, _ := middleware.UserIDFromContext(r.Context())

	if targetID == callerID {
		writeError(w, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	// The deactivation UPDATE is an upsert on Cassandra; confirm the
	// user exists so an unknown id cannot create a phantom row.
	if _, err := s.store.GetUserByID(targetID); err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.store.DeactivateUser(targetID, time.Now()); err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		logg.Error("http/admin", "Failed to deactivate user", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logg.Info("http/admin", "User deactivated user_id="+targetID+" by admin="+callerID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}

func (s *Server) adminListPostsHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.PostFilter{
		Category:        r.URL.Query().Get("category"),
		Search:          r.URL.Query().Get("q"),
		IncludeInactive: r.URL.Query().Get("status") != "active",
		Limit:           queryInt(r, "limit", 100),
	}
	posts, err := s.store.ListPosts(filter)
	if err != nil {
		logg.Error("http/admin", "Failed to list posts", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts, "count": len(posts)})
}

// adminDeletePostHandler removes the post rows permanently.
func (s *Server) adminDeletePostHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.DeletePost(id); err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "post not found")
		return
	} else if err != nil {
		logg.Error("http/admin", "Failed to delete post", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logg.Info("http/admin", "Post hard-deleted post_id="+id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func (s *Server) adminListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	comments, err := s.store.ListAllComments(queryInt(r, "limit", 100))
	if err != nil {
		logg.Error("http/admin", "Failed to list comments", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments, "count": len(comments)})
}

func (s *Server) adminDeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.DeleteComment(id); err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	} else if err != nil {
		logg.Error("http/admin", "Failed to delete comment", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}

func (s *Server) adminListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.AdminNotificationFilter{
		RecipientID: r.URL.Query().Get("recipient"),
		Type:        r.URL.Query().Get("type"),
		IsRead:      queryBool(r, "is_read"),
		Limit:       queryInt(r, "limit", 100),
	}
	notifs, err := s.store.ListAllNotifications(filter)
	if err != nil {
		logg.Error("http/admin", "Failed to list notifications", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifs, "count": len(notifs)})
}

func (s *Server) adminDeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	recipientID, err := s.store.FindNotificationRecipient(id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.store.DeleteNotification(recipientID, id); err != nil {
		logg.Error("http/admin", "Failed to delete notification", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}

// adminBroadcastHandler fans a system notification out to every active
// user synchronously. Acceptable at admin-tool frequency.
func (s *Server) adminBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title   string `json:"title" validate:"required,max=100"`
		Message string `json:"message" validate:"required,max=200"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	users, err := s.store.ListUsers("", "", 0)
	if err != nil {
		logg.Error("http/admin", "Failed to list broadcast recipients", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sent := 0
	for _, u := range users {
		if err := s.notifier.NotifySystem(r.Context(), u.ID, body.Title, body.Message); err != nil {
			logg.Error("http/admin", "Failed to notify user_id="+u.ID, err)
			continue
		}
		sent++
	}

	logg.Info("http/admin", "System broadcast sent")
	writeJSON(w, http.StatusCreated, map[string]int{"recipients": sent})
}
