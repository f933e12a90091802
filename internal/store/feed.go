package store

import (
	"time"

	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/gocql/gocql"
)

// AddToFeed writes a post into a user's precomputed feed partition.
func (s *Store) AddToFeed(userID string, post models.Post) error {
	if err := s.Session.Query(`
		INSERT INTO feed_by_user (user_id, created_at, post_id, author_id, content, category, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, post.Created, post.ID, post.AuthorID, post.Content, post.Category, post.ImageURL,
	).Exec(); err != nil {
		logg.Error("store", "Failed to add post to feed", err)
		return err
	}

	logg.Info("store", "Post added to user's feed (IDs and content anonymized)")
	return nil
}

// GetFeed returns the newest entries of a user's feed. Feed rows are
// denormalized copies; entries whose source post has been deleted or
// deactivated since fan-out are dropped here.
func (s *Store) GetFeed(userID string, limit int) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id, created_at, author_id, content, category, image_url
		FROM feed_by_user WHERE user_id = ? LIMIT ?`,
		userID, limit,
	).Iter()

	var res []models.Post
	var p models.Post
	for iter.Scan(&p.ID, &p.Created, &p.AuthorID, &p.Content, &p.Category, &p.ImageURL) {
		res = append(res, p)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to retrieve user feed", err)
		return nil, err
	}

	live := res[:0]
	for _, entry := range res {
		var isActive bool
		err := s.Session.Query(
			`SELECT is_active FROM posts WHERE post_id = ?`, entry.ID,
		).Scan(&isActive)
		if err == gocql.ErrNotFound {
			continue
		}
		if err != nil {
			logg.Error("store", "Failed to check feed entry status", err)
			return nil, err
		}
		if !isActive {
			continue
		}
		entry.IsActive = true
		live = append(live, entry)
	}
	res = live

	s.fillCounts(res)

	logg.Info("store", "User feed retrieved successfully (IDs and content anonymized)")
	return res, nil
}

// GetRecentPosts returns active posts created since the cutoff. Feeds the
// trending computation; the filtering scan runs behind a Redis cache.
func (s *Store) GetRecentPosts(since time.Time, limit int) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT `+postColumns+` FROM posts WHERE created_at >= ? LIMIT ? ALLOW FILTERING`,
		since, limit,
	).Iter()

	var res []models.Post
	var p models.Post
	for iter.Scan(&p.ID, &p.AuthorID, &p.Content, &p.Category, &p.ImageURL,
		&p.Created, &p.Updated, &p.IsActive) {
		if !p.IsActive {
			continue
		}
		res = append(res, p)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to retrieve recent posts", err)
		return nil, err
	}

	s.fillCounts(res)
	return res, nil
}
