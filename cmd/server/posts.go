package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/VangaRenuka/SocialConnect/internal/middleware"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

// listPostsHandler lists active posts with optional category, author
// and search filters.
func (s *Server) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.PostFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("q"),
		Limit:    queryInt(r, "limit", 50),
	}
	if author := r.URL.Query().Get("author"); author != "" {
		authorID, err := s.store.GetUserIDByUsername(author)
		if err != nil || authorID == "" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"posts": []models.Post{}, "count": 0})
			return
		}
		filter.AuthorID = authorID
	}

	posts, err := s.store.ListPosts(filter)
	if err != nil {
		logg.Error("http/posts", "Failed to list posts", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts, "count": len(posts)})
}

// createPostHandler stores a post and publishes a post_created event
// for feed fan-out.
func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content  string `json:"content" validate:"required,min=1,max=280"`
		Category string `json:"category"`
		ImageURL string `json:"image_url" validate:"omitempty,url"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "post content must be 1-280 characters")
		return
	}
	if body.Category == "" {
		body.Category = models.CategoryGeneral
	}
	if !models.ValidCategory(body.Category) {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	user, ok := s.currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	now := time.Now()
	post := models.Post{
		ID:       uuid.NewString(),
		AuthorID: user.ID,
		Author:   user.Username,
		Content:  body.Content,
		Category: body.Category,
		ImageURL: body.ImageURL,
		Created:  now,
		Updated:  now,
		IsActive: true,
	}

	if err := s.store.AddPost(post); err != nil {
		logg.Error("http/posts", "Failed to save post to Cassandra", err)
		writeError(w, http.StatusInternalServerError, "failed to save post")
		return
	}

	s.publishEvent(models.Event{
		Type:    models.EventPostCreated,
		ActorID: user.ID,
		Post:    &post,
	})

	logg.Info("http/posts", "Post created successfully by user_id="+user.ID)
	writeJSON(w, http.StatusCreated, post)
}

// loadActivePost resolves a post id from the route and 404s inactive posts.
func (s *Server) loadActivePost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id := mux.Vars(r)["id"]
	post, err := s.store.GetPost(id)
	if err == store.ErrNotFound || (err == nil && !post.IsActive) {
		writeError(w, http.StatusNotFound, "post not found")
		return nil, false
	}
	if err != nil {
		logg.Error("http/posts", "Failed to load post", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return post, true
}

func (s *Server) getPostHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// updatePostHandler edits a post's content. Owner or admin only.
func (s *Server) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content  string `json:"content" validate:"required,min=1,max=280"`
		Category string `json:"category"`
		ImageURL string `json:"image_url" validate:"omitempty,url"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "post content must be 1-280 characters")
		return
	}

	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if post.AuthorID != claims.UserID && claims.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "not your post")
		return
	}

	post.Content = body.Content
	if body.Category != "" {
		if !models.ValidCategory(body.Category) {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		post.Category = body.Category
	}
	post.ImageURL = body.ImageURL
	post.Updated = time.Now()

	if err := s.store.UpdatePost(*post); err != nil {
		logg.Error("http/posts", "Failed to update post", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// deletePostHandler soft-deletes. Hard deletion stays on the admin surface.
func (s *Server) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if post.AuthorID != claims.UserID && claims.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "not your post")
		return
	}

	if err := s.store.DeactivatePost(post.ID); err != nil {
		logg.Error("http/posts", "Failed to deactivate post", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	logg.Info("http/posts", "Post deactivated post_id="+post.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func (s *Server) likeHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	applied, err := s.store.AddLike(post.ID, userID)
	if err != nil {
		logg.Error("http/posts", "Failed to add like", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !applied {
		writeError(w, http.StatusBadRequest, "already liked this post")
		return
	}

	s.publishEvent(models.Event{
		Type:     models.EventPostLiked,
		ActorID:  userID,
		TargetID: post.AuthorID,
		Post:     post,
	})
	writeJSON(w, http.StatusCreated, map[string]string{"message": "post liked"})
}

func (s *Server) unlikeHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	applied, err := s.store.RemoveLike(post.ID, userID)
	if err != nil {
		logg.Error("http/posts", "Failed to remove like", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !applied {
		writeError(w, http.StatusBadRequest, "post not liked")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "like removed"})
}

func (s *Server) likeStatusHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	liked, err := s.store.HasLiked(post.ID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liked":      liked,
		"like_count": post.LikeCount,
	})
}

func (s *Server) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 100)

	comments, err := s.store.ListComments(post.ID, limit)
	if err != nil {
		logg.Error("http/comments", "Failed to list comments", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments, "count": len(comments)})
}

// createCommentHandler stores a comment and publishes a comment_added
// event; the worker notifies the post author and any mentioned users.
func (s *Server) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content" validate:"required,min=1,max=200"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "comment content must be 1-200 characters")
		return
	}

	post, ok := s.loadActivePost(w, r)
	if !ok {
		return
	}
	user, ok := s.currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	comment := models.Comment{
		ID:       uuid.NewString(),
		PostID:   post.ID,
		AuthorID: user.ID,
		Author:   user.Username,
		Content:  body.Content,
		Created:  time.Now(),
		IsActive: true,
	}

	if err := s.store.AddComment(comment); err != nil {
		logg.Error("http/comments", "Failed to save comment", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.publishEvent(models.Event{
		Type:     models.EventCommentAdded,
		ActorID:  user.ID,
		TargetID: post.AuthorID,
		Comment:  &comment,
	})

	logg.Info("http/comments", "Comment created on post_id="+post.ID)
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) updateCommentHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content" validate:"required,min=1,max=200"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "comment content must be 1-200 characters")
		return
	}

	id := mux.Vars(r)["id"]
	comment, err := s.store.GetComment(id)
	if err == store.ErrNotFound || (err == nil && !comment.IsActive) {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	if comment.AuthorID != claims.UserID && claims.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "not your comment")
		return
	}

	comment.Content = body.Content
	if err := s.store.UpdateComment(*comment); err != nil {
		logg.Error("http/comments", "Failed to update comment", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	comment, err := s.store.GetComment(id)
	if err == store.ErrNotFound || (err == nil && !comment.IsActive) {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	if comment.AuthorID != claims.UserID && claims.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "not your comment")
		return
	}

	if err := s.store.DeactivateComment(comment.ID); err != nil {
		logg.Error("http/comments", "Failed to deactivate comment", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}
