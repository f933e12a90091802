package store

import (
	"strings"
	"time"

	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/gocql/gocql"
)

const userColumns = `user_id, username, email, password_hash, role, bio, avatar_url,
	website, location, visibility, joined_at, last_login, is_active, is_deactivated, deactivated_at`

func scanUser(q *gocql.Query) (*models.User, error) {
	var u models.User
	var lastLogin, deactivatedAt time.Time
	err := q.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Bio,
		&u.AvatarURL, &u.Website, &u.Location, &u.Visibility, &u.JoinedAt,
		&lastLogin, &u.IsActive, &u.IsDeactivated, &deactivatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !lastLogin.IsZero() {
		u.LastLogin = &lastLogin
	}
	if !deactivatedAt.IsZero() {
		u.DeactivatedAt = &deactivatedAt
	}
	return &u, nil
}

// CreateUser inserts a user, reserving username and email via CAS lookup
// tables so concurrent registrations cannot collide.
func (s *Store) CreateUser(u models.User) error {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO users_by_username (username, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		u.Username, u.ID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to reserve username", err)
		return err
	}
	if !applied {
		return ErrUsernameTaken
	}

	result = make(map[string]interface{})
	applied, err = s.Session.Query(`
		INSERT INTO users_by_email (email, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		u.Email, u.ID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to reserve email", err)
		return err
	}
	if !applied {
		// Roll back the username reservation.
		_ = s.Session.Query(`DELETE FROM users_by_username WHERE username = ?`, u.Username).Exec()
		return ErrEmailTaken
	}

	err = s.Session.Query(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Bio, u.AvatarURL,
		u.Website, u.Location, u.Visibility, u.JoinedAt, timeOrZero(u.LastLogin),
		u.IsActive, u.IsDeactivated, timeOrZero(u.DeactivatedAt),
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		return err
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	return scanUser(s.Session.Query(
		`SELECT `+userColumns+` FROM users WHERE user_id = ?`, id))
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	id, err := s.GetUserIDByUsername(username)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}
	return s.GetUserByID(id)
}

// GetUserIDByUsername returns the existing user_id by username.
// If the user does not exist, it returns empty string without an error.
func (s *Store) GetUserIDByUsername(username string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users_by_username WHERE username = ?`,
		username,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", nil
		}
		logg.Error("store", "Failed to query user by username", err)
		return "", err
	}
	return id, nil
}

// GetUserIDByEmail mirrors GetUserIDByUsername for the email lookup table.
func (s *Store) GetUserIDByEmail(email string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users_by_email WHERE email = ?`,
		email,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", nil
		}
		logg.Error("store", "Failed to query user by email", err)
		return "", err
	}
	return id, nil
}

// SaveProfile updates the mutable profile fields of an existing user.
func (s *Store) SaveProfile(u models.User) error {
	err := s.Session.Query(`
		UPDATE users SET bio = ?, avatar_url = ?, website = ?, location = ?, visibility = ?
		WHERE user_id = ?`,
		u.Bio, u.AvatarURL, u.Website, u.Location, u.Visibility, u.ID,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to update profile", err)
	}
	return err
}

func (s *Store) SetPasswordHash(userID, hash string) error {
	return s.Session.Query(
		`UPDATE users SET password_hash = ? WHERE user_id = ?`, hash, userID,
	).Exec()
}

func (s *Store) UpdateLastLogin(userID string, t time.Time) error {
	return s.Session.Query(
		`UPDATE users SET last_login = ? WHERE user_id = ?`, t, userID,
	).Exec()
}

// SetResetToken records a single-use password reset token with expiry.
func (s *Store) SetResetToken(userID, token string, expires time.Time) error {
	return s.Session.Query(
		`INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expires,
	).Exec()
}

// ConsumeResetToken resolves a reset token to its user and invalidates it.
// Expired or unknown tokens return ErrNotFound.
func (s *Store) ConsumeResetToken(token string) (string, error) {
	var userID string
	var expires time.Time
	err := s.Session.Query(
		`SELECT user_id, expires_at FROM password_resets WHERE token = ?`, token,
	).Scan(&userID, &expires)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", ErrNotFound
		}
		return "", err
	}

	_ = s.Session.Query(`DELETE FROM password_resets WHERE token = ?`, token).Exec()

	if time.Now().After(expires) {
		return "", ErrNotFound
	}
	return userID, nil
}

// ListUsers returns active users, newest first. Search and role matching
// happen client-side; Cassandra has no secondary text search.
func (s *Store) ListUsers(search, role string, limit int) ([]models.User, error) {
	iter := s.Session.Query(`SELECT ` + userColumns + ` FROM users`).Iter()

	var res []models.User
	var u models.User
	var lastLogin, deactivatedAt time.Time
	search = strings.ToLower(search)

	for iter.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Bio,
		&u.AvatarURL, &u.Website, &u.Location, &u.Visibility, &u.JoinedAt,
		&lastLogin, &u.IsActive, &u.IsDeactivated, &deactivatedAt) {
		if !u.IsActive || u.IsDeactivated {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		cp := u
		if !lastLogin.IsZero() {
			ll := lastLogin
			cp.LastLogin = &ll
		}
		res = append(res, cp)
		if limit > 0 && len(res) >= limit {
			break
		}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list users", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) DeactivateUser(userID string, t time.Time) error {
	err := s.Session.Query(`
		UPDATE users SET is_deactivated = true, is_active = false, deactivated_at = ?
		WHERE user_id = ?`, t, userID,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to deactivate user", err)
	}
	return err
}

func (s *Store) SetUserRole(userID, role string) error {
	err := s.Session.Query(
		`UPDATE users SET role = ? WHERE user_id = ?`, role, userID,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to set user role", err)
	}
	return err
}

func (s *Store) ReactivateUser(userID string) error {
	err := s.Session.Query(`
		UPDATE users SET is_deactivated = false, is_active = true, deactivated_at = ?
		WHERE user_id = ?`, time.Time{}, userID,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to reactivate user", err)
	}
	return err
}

func (s *Store) CountUsers() (int64, error) {
	var n int64
	err := s.Session.Query(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountActiveSince and CountJoinedSince back the admin stats view only;
// the filtering scan is acceptable at admin-tool frequency.
func (s *Store) CountActiveSince(t time.Time) (int64, error) {
	var n int64
	err := s.Session.Query(
		`SELECT COUNT(*) FROM users WHERE last_login >= ? ALLOW FILTERING`, t,
	).Scan(&n)
	return n, err
}

func (s *Store) CountJoinedSince(t time.Time) (int64, error) {
	var n int64
	err := s.Session.Query(
		`SELECT COUNT(*) FROM users WHERE joined_at >= ? ALLOW FILTERING`, t,
	).Scan(&n)
	return n, err
}

// HasAdmin reports whether any admin-role user exists. Used by setup.
func (s *Store) HasAdmin() (bool, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users WHERE role = ? LIMIT 1 ALLOW FILTERING`,
		models.RoleAdmin,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return id != "", nil
}
