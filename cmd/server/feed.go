package server

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/VangaRenuka/SocialConnect/internal/middleware"
	"github.com/VangaRenuka/SocialConnect/internal/models"
)

const (
	trendingCacheKey = "trending:posts"
	trendingTTL      = 5 * time.Minute
	trendingWindow   = 24 * time.Hour
)

// getFeedHandler serves the precomputed personalized feed.
// Query parameters: ?limit=50
func (s *Server) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := queryInt(r, "limit", 50)

	feed, err := s.store.GetFeed(userID, limit)
	if err != nil {
		logg.Error("http/feed", "Failed to get feed for user_id="+userID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	following, err := s.store.GetFollowing(userID)
	if err != nil {
		logg.Error("http/feed", "Failed to count following for user_id="+userID, err)
	}

	logg.Info("http/feed", "Feed retrieved for user_id="+userID+" with limit="+strconv.Itoa(limit))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts": feed,
		"feed_info": map[string]interface{}{
			"total_posts":     len(feed),
			"following_count": len(following),
			"feed_type":       "personalized",
		},
	})
}

// trendingHandler ranks recent posts by engagement. The ranked list is
// cached briefly since every user sees the same result.
func (s *Server) trendingHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	var posts []models.Post
	hit, err := s.cache.Get(r.Context(), trendingCacheKey, &posts)
	if err != nil {
		logg.Error("http/feed", "Trending cache lookup failed", err)
	}
	if !hit {
		posts, err = s.store.GetRecentPosts(time.Now().Add(-trendingWindow), 200)
		if err != nil {
			logg.Error("http/feed", "Failed to load recent posts", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].EngagementScore() > posts[j].EngagementScore()
		})
		if err := s.cache.Set(r.Context(), trendingCacheKey, posts, trendingTTL); err != nil {
			logg.Error("http/feed", "Failed to cache trending posts", err)
		}
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"feed_info": map[string]interface{}{
			"total_posts": len(posts),
			"feed_type":   "trending",
		},
	})
}

// categoryFeedHandler lists posts in one category; unknown categories
// yield an empty result rather than an error.
func (s *Server) categoryFeedHandler(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	limit := queryInt(r, "limit", 50)

	posts := []models.Post{}
	if models.ValidCategory(category) {
		var err error
		posts, err = s.store.GetPostsByCategory(category, limit)
		if err != nil {
			logg.Error("http/feed", "Failed to list category posts", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"feed_info": map[string]interface{}{
			"total_posts": len(posts),
			"feed_type":   "category",
			"category":    category,
		},
	})
}
