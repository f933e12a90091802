package store

import (
	"time"

	"github.com/gocql/gocql"
)

// CreateFollow writes both directions of the follow edge in one batch.
func (s *Store) CreateFollow(followerID, followeeID string) error {
	now := time.Now()
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
		followerID, followeeID, now)
	batch.Query(`INSERT INTO followers_by_followee (followee_id, follower_id, created_at) VALUES (?, ?, ?)`,
		followeeID, followerID, now)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to create follow relationship", err)
		return err
	}

	logg.Info("store", "Follow relationship created (user IDs anonymized)")
	return nil
}

// DeleteFollow removes both directions of the follow edge.
func (s *Store) DeleteFollow(followerID, followeeID string) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID)
	batch.Query(`DELETE FROM followers_by_followee WHERE followee_id = ? AND follower_id = ?`,
		followeeID, followerID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete follow relationship", err)
		return err
	}
	return nil
}

func (s *Store) IsFollowing(followerID, followeeID string) (bool, error) {
	var id string
	err := s.Session.Query(
		`SELECT followee_id FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GetFollowers(userID string) ([]string, error) {
	iter := s.Session.Query(
		`SELECT follower_id FROM followers_by_followee WHERE followee_id = ?`,
		userID,
	).Iter()

	var id string
	var res []string
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get followers", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) GetFollowing(userID string) ([]string, error) {
	iter := s.Session.Query(
		`SELECT followee_id FROM follows WHERE follower_id = ?`,
		userID,
	).Iter()

	var id string
	var res []string
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get following list", err)
		return nil, err
	}
	return res, nil
}
