package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"

	"github.com/VangaRenuka/SocialConnect/internal/middleware"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

// publishEvent writes an event envelope to the broker. Failures are
// logged but never fail the originating request once the write to the
// store has succeeded.
func (s *Server) publishEvent(ev models.Event) {
	ev.Created = time.Now()
	data, err := json.Marshal(ev)
	if err != nil {
		logg.Error("server", "Failed to marshal event", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.Type),
		Value: data,
	}
	if err := s.kafkaWriter.WriteMessages(msg); err != nil {
		logg.Error("server", "Failed to write Kafka message", err)
	}
}

type profileResponse struct {
	models.User
	FollowerCount  int  `json:"follower_count"`
	FollowingCount int  `json:"following_count"`
	IsFollowing    bool `json:"is_following"`
}

// getProfileHandler serves a user profile, honoring its visibility.
func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	viewerID, _ := middleware.UserIDFromContext(r.Context())

	user, err := s.store.GetUserByUsername(username)
	if err == store.ErrNotFound || (err == nil && (!user.IsActive || user.IsDeactivated)) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		logg.Error("http/users", "Failed to load user", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	isFollower, err := s.store.IsFollowing(viewerID, user.ID)
	if err != nil {
		logg.Error("http/users", "Failed to check follow edge", err)
	}
	if !user.CanViewProfile(viewerID, isFollower) {
		writeError(w, http.StatusForbidden, "this profile is private")
		return
	}

	if viewerID != user.ID {
		user.Email = ""
	}

	followers, _ := s.store.GetFollowers(user.ID)
	following, _ := s.store.GetFollowing(user.ID)
	writeJSON(w, http.StatusOK, profileResponse{
		User:           *user,
		FollowerCount:  len(followers),
		FollowingCount: len(following),
		IsFollowing:    isFollower,
	})
}

// updateProfileHandler lets the authenticated user edit their own profile.
func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Bio        string `json:"bio" validate:"max=160"`
		AvatarURL  string `json:"avatar_url" validate:"omitempty,url"`
		Website    string `json:"website" validate:"omitempty,url"`
		Location   string `json:"location" validate:"max=100"`
		Visibility string `json:"profile_visibility" validate:"omitempty,oneof=public private followers_only"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := s.currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user.Bio = body.Bio
	user.AvatarURL = body.AvatarURL
	user.Website = body.Website
	user.Location = body.Location
	if body.Visibility != "" {
		user.Visibility = body.Visibility
	}

	if err := s.store.SaveProfile(*user); err != nil {
		logg.Error("http/users", "Failed to save profile", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logg.Info("http/users", "Profile updated user_id="+user.ID)
	writeJSON(w, http.StatusOK, user)
}

// listUsersHandler searches active users. The role filter is reserved
// for admins; others get it silently ignored.
func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("q")
	role := r.URL.Query().Get("role")
	limit := queryInt(r, "limit", 50)

	if callerRole, _ := middleware.RoleFromContext(r.Context()); callerRole != models.RoleAdmin {
		role = ""
	}

	users, err := s.store.ListUsers(search, role, limit)
	if err != nil {
		logg.Error("http/users", "Failed to list users", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for i := range users {
		users[i].Email = ""
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	followerID, _ := middleware.UserIDFromContext(r.Context())

	followee, err := s.store.GetUserByUsername(username)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		logg.Error("http/follow", "Failed to load followee", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if followee.ID == followerID {
		writeError(w, http.StatusBadRequest, "cannot follow yourself")
		return
	}

	already, err := s.store.IsFollowing(followerID, followee.ID)
	if err != nil {
		logg.Error("http/follow", "Failed to check follow edge", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if already {
		writeError(w, http.StatusBadRequest, "already following this user")
		return
	}

	if err := s.store.CreateFollow(followerID, followee.ID); err != nil {
		logg.Error("http/follow", "Failed to create follow relationship", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.publishEvent(models.Event{
		Type:     models.EventUserFollowed,
		ActorID:  followerID,
		TargetID: followee.ID,
	})

	logg.Info("http/follow", "User "+followerID+" followed "+followee.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "now following " + followee.Username})
}

func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	followerID, _ := middleware.UserIDFromContext(r.Context())

	followee, err := s.store.GetUserByUsername(username)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	following, err := s.store.IsFollowing(followerID, followee.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !following {
		writeError(w, http.StatusBadRequest, "not following this user")
		return
	}

	if err := s.store.DeleteFollow(followerID, followee.ID); err != nil {
		logg.Error("http/follow", "Failed to delete follow relationship", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logg.Info("http/follow", "User "+followerID+" unfollowed "+followee.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "unfollowed " + followee.Username})
}

func (s *Server) followersHandler(w http.ResponseWriter, r *http.Request) {
	s.followListHandler(w, r, s.store.GetFollowers, "followers")
}

func (s *Server) followingHandler(w http.ResponseWriter, r *http.Request) {
	s.followListHandler(w, r, s.store.GetFollowing, "following")
}

func (s *Server) followListHandler(w http.ResponseWriter, r *http.Request, fetch func(string) ([]string, error), key string) {
	username := mux.Vars(r)["username"]

	user, err := s.store.GetUserByUsername(username)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ids, err := fetch(user.ID)
	if err != nil {
		logg.Error("http/follow", "Failed to list "+key, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.store.GetUserByID(id)
		if err != nil || !u.IsActive {
			continue
		}
		u.Email = ""
		users = append(users, *u)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{key: users, "count": len(users)})
}

// userPostsHandler lists a user's posts, subject to profile visibility.
func (s *Server) userPostsHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	limit := queryInt(r, "limit", 50)

	user, err := s.store.GetUserByUsername(username)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	isFollower, _ := s.store.IsFollowing(viewerID, user.ID)
	if !user.CanViewProfile(viewerID, isFollower) {
		writeError(w, http.StatusForbidden, "this profile is private")
		return
	}

	posts, err := s.store.GetUserPosts(user.ID, limit)
	if err != nil {
		logg.Error("http/users", "Failed to list user posts", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts, "count": len(posts)})
}
