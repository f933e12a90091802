package store

import (
	"strings"
	"time"

	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/gocql/gocql"
)

const postColumns = `post_id, author_id, content, category, image_url, created_at, updated_at, is_active`

// AddPost writes the post to its primary table and the per-author and
// per-category listings in one batch.
func (s *Store) AddPost(post models.Post) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.Content, post.Category, post.ImageURL,
		post.Created, post.Updated, post.IsActive)
	batch.Query(`
		INSERT INTO posts_by_author (author_id, created_at, post_id, content, category, image_url, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.AuthorID, post.Created, post.ID, post.Content, post.Category, post.ImageURL, post.IsActive)
	batch.Query(`
		INSERT INTO posts_by_category (category, created_at, post_id, author_id, content, image_url, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.Category, post.Created, post.ID, post.AuthorID, post.Content, post.ImageURL, post.IsActive)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add post", err)
		return err
	}

	logg.Info("store", "Post added (post content anonymized)")
	return nil
}

func (s *Store) scanPostRow(q *gocql.Query) (*models.Post, error) {
	var p models.Post
	err := q.Scan(&p.ID, &p.AuthorID, &p.Content, &p.Category, &p.ImageURL,
		&p.Created, &p.Updated, &p.IsActive)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetPost returns the post with its counter values merged in.
func (s *Store) GetPost(id string) (*models.Post, error) {
	p, err := s.scanPostRow(s.Session.Query(
		`SELECT `+postColumns+` FROM posts WHERE post_id = ?`, id))
	if err != nil {
		return nil, err
	}
	p.LikeCount, p.CommentCount, err = s.GetPostCounts(id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePost rewrites the content of an existing post in all listings.
// A category change moves the posts_by_category row to its new partition.
func (s *Store) UpdatePost(post models.Post) error {
	prev, err := s.GetPost(post.ID)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		UPDATE posts SET content = ?, category = ?, image_url = ?, updated_at = ?
		WHERE post_id = ?`,
		post.Content, post.Category, post.ImageURL, post.Updated, post.ID)
	batch.Query(`
		UPDATE posts_by_author SET content = ?, category = ?, image_url = ?
		WHERE author_id = ? AND created_at = ? AND post_id = ?`,
		post.Content, post.Category, post.ImageURL, post.AuthorID, post.Created, post.ID)

	if prev.Category == post.Category {
		batch.Query(`
			UPDATE posts_by_category SET content = ?, image_url = ?
			WHERE category = ? AND created_at = ? AND post_id = ?`,
			post.Content, post.ImageURL, post.Category, post.Created, post.ID)
	} else {
		batch.Query(`DELETE FROM posts_by_category WHERE category = ? AND created_at = ? AND post_id = ?`,
			prev.Category, prev.Created, post.ID)
		batch.Query(`
			INSERT INTO posts_by_category (category, created_at, post_id, author_id, content, image_url, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			post.Category, prev.Created, post.ID, post.AuthorID, post.Content, post.ImageURL, prev.IsActive)
	}

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to update post", err)
		return err
	}
	return nil
}

// DeactivatePost soft-deletes the post.
func (s *Store) DeactivatePost(id string) error {
	post, err := s.GetPost(id)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`UPDATE posts SET is_active = false WHERE post_id = ?`, id)
	batch.Query(`
		UPDATE posts_by_author SET is_active = false
		WHERE author_id = ? AND created_at = ? AND post_id = ?`,
		post.AuthorID, post.Created, post.ID)
	batch.Query(`
		UPDATE posts_by_category SET is_active = false
		WHERE category = ? AND created_at = ? AND post_id = ?`,
		post.Category, post.Created, post.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to deactivate post", err)
		return err
	}
	return nil
}

// DeletePost removes the post permanently from every table. Admin only.
func (s *Store) DeletePost(id string) error {
	post, err := s.GetPost(id)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM posts WHERE post_id = ?`, id)
	batch.Query(`DELETE FROM posts_by_author WHERE author_id = ? AND created_at = ? AND post_id = ?`,
		post.AuthorID, post.Created, post.ID)
	batch.Query(`DELETE FROM posts_by_category WHERE category = ? AND created_at = ? AND post_id = ?`,
		post.Category, post.Created, post.ID)
	batch.Query(`DELETE FROM likes_by_post WHERE post_id = ?`, id)
	batch.Query(`DELETE FROM comments_by_post WHERE post_id = ?`, id)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete post", err)
		return err
	}

	// Counter columns cannot share a batch with regular mutations.
	return s.Session.Query(`DELETE FROM post_counters WHERE post_id = ?`, id).Exec()
}

// ListPosts scans the posts table and filters client-side.
func (s *Store) ListPosts(f PostFilter) ([]models.Post, error) {
	iter := s.Session.Query(`SELECT ` + postColumns + ` FROM posts`).Iter()

	var res []models.Post
	var p models.Post
	search := strings.ToLower(f.Search)

	for iter.Scan(&p.ID, &p.AuthorID, &p.Content, &p.Category, &p.ImageURL,
		&p.Created, &p.Updated, &p.IsActive) {
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.AuthorID != "" && p.AuthorID != f.AuthorID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Content), search) {
			continue
		}
		res = append(res, p)
		if f.Limit > 0 && len(res) >= f.Limit {
			break
		}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list posts", err)
		return nil, err
	}

	s.fillCounts(res)
	return res, nil
}

func (s *Store) fillCounts(posts []models.Post) {
	for i := range posts {
		likes, comments, err := s.GetPostCounts(posts[i].ID)
		if err != nil {
			continue
		}
		posts[i].LikeCount = likes
		posts[i].CommentCount = comments
	}
}

func (s *Store) GetUserPosts(authorID string, limit int) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id, created_at, content, category, image_url, is_active
		FROM posts_by_author WHERE author_id = ? LIMIT ?`,
		authorID, limit,
	).Iter()

	var res []models.Post
	var p models.Post
	for iter.Scan(&p.ID, &p.Created, &p.Content, &p.Category, &p.ImageURL, &p.IsActive) {
		if !p.IsActive {
			continue
		}
		p.AuthorID = authorID
		res = append(res, p)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get user posts", err)
		return nil, err
	}

	s.fillCounts(res)
	return res, nil
}

func (s *Store) GetPostsByCategory(category string, limit int) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id, created_at, author_id, content, image_url, is_active
		FROM posts_by_category WHERE category = ? LIMIT ?`,
		category, limit,
	).Iter()

	var res []models.Post
	var p models.Post
	for iter.Scan(&p.ID, &p.Created, &p.AuthorID, &p.Content, &p.ImageURL, &p.IsActive) {
		if !p.IsActive {
			continue
		}
		p.Category = category
		res = append(res, p)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get category posts", err)
		return nil, err
	}

	s.fillCounts(res)
	return res, nil
}

func (s *Store) CountPosts() (int64, error) {
	var n int64
	err := s.Session.Query(`SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

// --- Likes ---

// AddLike records the like; the bool result is false when the user
// had already liked the post.
func (s *Store) AddLike(postID, userID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO likes_by_post (post_id, user_id, created_at)
		VALUES (?, ?, ?) IF NOT EXISTS`,
		postID, userID, time.Now(),
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to add like", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(
		`UPDATE post_counters SET likes = likes + 1 WHERE post_id = ?`, postID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to bump like counter", err)
		return true, err
	}
	return true, nil
}

// RemoveLike deletes the like; the bool result is false when the user
// had not liked the post.
func (s *Store) RemoveLike(postID, userID string) (bool, error) {
	liked, err := s.HasLiked(postID, userID)
	if err != nil {
		return false, err
	}
	if !liked {
		return false, nil
	}

	if err := s.Session.Query(
		`DELETE FROM likes_by_post WHERE post_id = ? AND user_id = ?`, postID, userID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to remove like", err)
		return false, err
	}

	if err := s.Session.Query(
		`UPDATE post_counters SET likes = likes - 1 WHERE post_id = ?`, postID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to lower like counter", err)
		return true, err
	}
	return true, nil
}

func (s *Store) HasLiked(postID, userID string) (bool, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM likes_by_post WHERE post_id = ? AND user_id = ?`,
		postID, userID,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GetPostCounts(postID string) (int64, int64, error) {
	var likes, comments int64
	err := s.Session.Query(
		`SELECT likes, comments FROM post_counters WHERE post_id = ?`, postID,
	).Scan(&likes, &comments)
	if err != nil {
		if err == gocql.ErrNotFound {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return likes, comments, nil
}

// --- Comments ---

const commentColumns = `comment_id, post_id, author_id, content, created_at, is_active`

func (s *Store) AddComment(c models.Comment) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO comments (`+commentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.AuthorID, c.Content, c.Created, c.IsActive)
	batch.Query(`
		INSERT INTO comments_by_post (post_id, created_at, comment_id, author_id, content, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.PostID, c.Created, c.ID, c.AuthorID, c.Content, c.IsActive)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add comment", err)
		return err
	}

	return s.Session.Query(
		`UPDATE post_counters SET comments = comments + 1 WHERE post_id = ?`, c.PostID,
	).Exec()
}

func (s *Store) GetComment(id string) (*models.Comment, error) {
	var c models.Comment
	err := s.Session.Query(
		`SELECT `+commentColumns+` FROM comments WHERE comment_id = ?`, id,
	).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.Created, &c.IsActive)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListComments(postID string, limit int) ([]models.Comment, error) {
	iter := s.Session.Query(`
		SELECT comment_id, created_at, author_id, content, is_active
		FROM comments_by_post WHERE post_id = ? LIMIT ?`,
		postID, limit,
	).Iter()

	var res []models.Comment
	var c models.Comment
	for iter.Scan(&c.ID, &c.Created, &c.AuthorID, &c.Content, &c.IsActive) {
		if !c.IsActive {
			continue
		}
		c.PostID = postID
		res = append(res, c)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list comments", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) UpdateComment(c models.Comment) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`UPDATE comments SET content = ? WHERE comment_id = ?`, c.Content, c.ID)
	batch.Query(`
		UPDATE comments_by_post SET content = ?
		WHERE post_id = ? AND created_at = ? AND comment_id = ?`,
		c.Content, c.PostID, c.Created, c.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to update comment", err)
		return err
	}
	return nil
}

func (s *Store) DeactivateComment(id string) error {
	c, err := s.GetComment(id)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`UPDATE comments SET is_active = false WHERE comment_id = ?`, id)
	batch.Query(`
		UPDATE comments_by_post SET is_active = false
		WHERE post_id = ? AND created_at = ? AND comment_id = ?`,
		c.PostID, c.Created, c.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to deactivate comment", err)
		return err
	}

	return s.Session.Query(
		`UPDATE post_counters SET comments = comments - 1 WHERE post_id = ?`, c.PostID,
	).Exec()
}

// DeleteComment removes the comment permanently. Admin only.
func (s *Store) DeleteComment(id string) error {
	c, err := s.GetComment(id)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM comments WHERE comment_id = ?`, id)
	batch.Query(`DELETE FROM comments_by_post WHERE post_id = ? AND created_at = ? AND comment_id = ?`,
		c.PostID, c.Created, c.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete comment", err)
		return err
	}

	return s.Session.Query(
		`UPDATE post_counters SET comments = comments - 1 WHERE post_id = ?`, c.PostID,
	).Exec()
}

// ListAllComments scans every comment for the admin view.
func (s *Store) ListAllComments(limit int) ([]models.Comment, error) {
	iter := s.Session.Query(`SELECT `+commentColumns+` FROM comments LIMIT ?`, limit).Iter()

	var res []models.Comment
	var c models.Comment
	for iter.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.Created, &c.IsActive) {
		res = append(res, c)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list all comments", err)
		return nil, err
	}
	return res, nil
}
