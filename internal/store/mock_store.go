package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/VangaRenuka/SocialConnect/internal/models"
)

// MockStore simulates Cassandra operations for testing.
type MockStore struct {
	mu sync.Mutex

	Users       map[string]models.User            // user_id -> user
	ByUsername  map[string]string                 // username -> user_id
	ByEmail     map[string]string                 // email -> user_id
	ResetTokens map[string][2]interface{}         // token -> {user_id, expiry}
	Following   map[string]map[string]bool        // follower_id -> followee set
	Followers   map[string][]string               // followee_id -> follower ids
	Posts       map[string]models.Post            // post_id -> post
	ByCategory  map[string]map[string]bool        // category -> post id set
	Likes       map[string]map[string]bool        // post_id -> user set
	Comments    map[string]models.Comment         // comment_id -> comment
	Feed        map[string][]models.Post          // user_id -> feed entries
	Notifs      map[string][]models.Notification  // recipient_id -> notifications
	Prefs       map[string]models.NotificationPreference

	ShouldFail bool // flag to simulate failures
}

// NewMock initializes a new mock store.
func NewMock() *MockStore {
	return &MockStore{
		Users:       make(map[string]models.User),
		ByUsername:  make(map[string]string),
		ByEmail:     make(map[string]string),
		ResetTokens: make(map[string][2]interface{}),
		Following:   make(map[string]map[string]bool),
		Followers:   make(map[string][]string),
		Posts:       make(map[string]models.Post),
		ByCategory:  make(map[string]map[string]bool),
		Likes:       make(map[string]map[string]bool),
		Comments:    make(map[string]models.Comment),
		Feed:        make(map[string][]models.Post),
		Notifs:      make(map[string][]models.Notification),
		Prefs:       make(map[string]models.NotificationPreference),
	}
}

func (m *MockStore) Close() {}

func (m *MockStore) fail() error {
	if m.ShouldFail {
		return errors.New("mock store failure")
	}
	return nil
}

// --- Users ---

func (m *MockStore) CreateUser(u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if _, ok := m.ByUsername[u.Username]; ok {
		return ErrUsernameTaken
	}
	if _, ok := m.ByEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	m.Users[u.ID] = u
	m.ByUsername[u.Username] = u.ID
	m.ByEmail[u.Email] = u.ID
	return nil
}

func (m *MockStore) GetUserByID(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (m *MockStore) GetUserByUsername(username string) (*models.User, error) {
	m.mu.Lock()
	id, ok := m.ByUsername[username]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUserByID(id)
}

func (m *MockStore) GetUserIDByUsername(username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", err
	}
	return m.ByUsername[username], nil
}

func (m *MockStore) GetUserIDByEmail(email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", err
	}
	return m.ByEmail[email], nil
}

func (m *MockStore) SaveProfile(u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	cur, ok := m.Users[u.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Bio = u.Bio
	cur.AvatarURL = u.AvatarURL
	cur.Website = u.Website
	cur.Location = u.Location
	cur.Visibility = u.Visibility
	m.Users[u.ID] = cur
	return nil
}

func (m *MockStore) SetPasswordHash(userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	m.Users[userID] = u
	return nil
}

func (m *MockStore) UpdateLastLogin(userID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &t
	m.Users[userID] = u
	return nil
}

func (m *MockStore) SetResetToken(userID, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.ResetTokens[token] = [2]interface{}{userID, expires}
	return nil
}

func (m *MockStore) ConsumeResetToken(token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.ResetTokens[token]
	if !ok {
		return "", ErrNotFound
	}
	delete(m.ResetTokens, token)
	if time.Now().After(entry[1].(time.Time)) {
		return "", ErrNotFound
	}
	return entry[0].(string), nil
}

func (m *MockStore) ListUsers(search, role string, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	search = strings.ToLower(search)
	var res []models.User
	for _, u := range m.Users {
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
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].JoinedAt.After(res[j].JoinedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MockStore) DeactivateUser(userID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	u, ok := m.Users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsDeactivated = true
	u.IsActive = false
	u.DeactivatedAt = &t
	m.Users[userID] = u
	return nil
}

func (m *MockStore) ReactivateUser(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	u, ok := m.Users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsDeactivated = false
	u.IsActive = true
	u.DeactivatedAt = nil
	m.Users[userID] = u
	return nil
}

func (m *MockStore) SetUserRole(userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	u, ok := m.Users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	m.Users[userID] = u
	return nil
}

func (m *MockStore) CountUsers() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Users)), nil
}

func (m *MockStore) CountActiveSince(t time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.Users {
		if u.LastLogin != nil && !u.LastLogin.Before(t) {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) CountJoinedSince(t time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.Users {
		if !u.JoinedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) HasAdmin() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	for _, u := range m.Users {
		if u.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

// --- Social ---

func (m *MockStore) CreateFollow(followerID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if m.Following[followerID] == nil {
		m.Following[followerID] = make(map[string]bool)
	}
	m.Following[followerID][followeeID] = true
	m.Followers[followeeID] = append(m.Followers[followeeID], followerID)
	return nil
}

func (m *MockStore) DeleteFollow(followerID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.Following[followerID], followeeID)
	ids := m.Followers[followeeID]
	for i, id := range ids {
		if id == followerID {
			m.Followers[followeeID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockStore) IsFollowing(followerID, followeeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	return m.Following[followerID][followeeID], nil
}

func (m *MockStore) GetFollowers(userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]string, len(m.Followers[userID]))
	copy(out, m.Followers[userID])
	return out, nil
}

func (m *MockStore) GetFollowing(userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []string
	for id := range m.Following[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// --- Posts ---

func (m *MockStore) AddPost(post models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Posts[post.ID] = post
	m.indexCategory(post.Category, post.ID)
	return nil
}

// indexCategory mirrors the posts_by_category table: rows live under
// the category they were written with, not the post's current value.
func (m *MockStore) indexCategory(category, postID string) {
	if m.ByCategory[category] == nil {
		m.ByCategory[category] = make(map[string]bool)
	}
	m.ByCategory[category][postID] = true
}

func (m *MockStore) GetPost(id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	p, ok := m.Posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MockStore) UpdatePost(post models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.Posts[post.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Category != post.Category {
		delete(m.ByCategory[cur.Category], post.ID)
		m.indexCategory(post.Category, post.ID)
	}
	cur.Content = post.Content
	cur.Category = post.Category
	cur.ImageURL = post.ImageURL
	cur.Updated = post.Updated
	m.Posts[post.ID] = cur
	return nil
}

func (m *MockStore) DeactivatePost(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Posts[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = false
	m.Posts[id] = p
	return nil
}

func (m *MockStore) DeletePost(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Posts[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.ByCategory[p.Category], id)
	delete(m.Posts, id)
	delete(m.Likes, id)
	return nil
}

func (m *MockStore) ListPosts(f PostFilter) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	search := strings.ToLower(f.Search)
	var res []models.Post
	for _, p := range m.Posts {
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
		res = append(res, m.withCounts(p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.After(res[j].Created) })
	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func (m *MockStore) withCounts(p models.Post) models.Post {
	p.LikeCount = int64(len(m.Likes[p.ID]))
	var comments int64
	for _, c := range m.Comments {
		if c.PostID == p.ID && c.IsActive {
			comments++
		}
	}
	p.CommentCount = comments
	return p
}

func (m *MockStore) GetUserPosts(authorID string, limit int) ([]models.Post, error) {
	return m.ListPosts(PostFilter{AuthorID: authorID, Limit: limit})
}

func (m *MockStore) GetPostsByCategory(category string, limit int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var res []models.Post
	for id := range m.ByCategory[category] {
		p, ok := m.Posts[id]
		if !ok || !p.IsActive {
			continue
		}
		res = append(res, m.withCounts(p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.After(res[j].Created) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MockStore) CountPosts() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Posts)), nil
}

func (m *MockStore) AddLike(postID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	if m.Likes[postID] == nil {
		m.Likes[postID] = make(map[string]bool)
	}
	if m.Likes[postID][userID] {
		return false, nil
	}
	m.Likes[postID][userID] = true
	return true, nil
}

func (m *MockStore) RemoveLike(postID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	if !m.Likes[postID][userID] {
		return false, nil
	}
	delete(m.Likes[postID], userID)
	return true, nil
}

func (m *MockStore) HasLiked(postID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Likes[postID][userID], nil
}

func (m *MockStore) GetPostCounts(postID string) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.withCounts(models.Post{ID: postID})
	return p.LikeCount, p.CommentCount, nil
}

func (m *MockStore) AddComment(c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Comments[c.ID] = c
	return nil
}

func (m *MockStore) GetComment(id string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (m *MockStore) ListComments(postID string, limit int) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var res []models.Comment
	for _, c := range m.Comments {
		if c.PostID == postID && c.IsActive {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.Before(res[j].Created) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MockStore) UpdateComment(c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.Comments[c.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Content = c.Content
	m.Comments[c.ID] = cur
	return nil
}

func (m *MockStore) DeactivateComment(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = false
	m.Comments[id] = c
	return nil
}

func (m *MockStore) DeleteComment(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Comments[id]; !ok {
		return ErrNotFound
	}
	delete(m.Comments, id)
	return nil
}

func (m *MockStore) ListAllComments(limit int) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []models.Comment
	for _, c := range m.Comments {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.Before(res[j].Created) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// --- Feed ---

func (m *MockStore) AddToFeed(userID string, post models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	// Prepend: feed partitions are read newest-first.
	m.Feed[userID] = append([]models.Post{post}, m.Feed[userID]...)
	return nil
}

func (m *MockStore) GetFeed(userID string, limit int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	// Feed entries are copies; drop any whose source post is gone or
	// deactivated, as the real store does.
	var out []models.Post
	for _, entry := range m.Feed[userID] {
		p, ok := m.Posts[entry.ID]
		if !ok || !p.IsActive {
			continue
		}
		entry.IsActive = true
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockStore) GetRecentPosts(since time.Time, limit int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var res []models.Post
	for _, p := range m.Posts {
		if p.IsActive && !p.Created.Before(since) {
			res = append(res, m.withCounts(p))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.After(res[j].Created) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// --- Notifications ---

func (m *MockStore) AddNotification(n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Notifs[n.RecipientID] = append([]models.Notification{n}, m.Notifs[n.RecipientID]...)
	return nil
}

func (m *MockStore) GetNotification(recipientID, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.Notifs[recipientID] {
		if n.ID == id {
			cp := n
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListNotifications(recipientID string, f NotificationFilter) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var res []models.Notification
	for _, n := range m.Notifs[recipientID] {
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

func (m *MockStore) mutateNotification(recipientID, id string, fn func(*models.Notification)) error {
	list := m.Notifs[recipientID]
	for i := range list {
		if list[i].ID == id {
			fn(&list[i])
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) MarkRead(recipientID, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateNotification(recipientID, id, func(n *models.Notification) {
		n.IsRead = true
		n.ReadAt = &t
	})
}

func (m *MockStore) MarkAllRead(recipientID string, t time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	list := m.Notifs[recipientID]
	for i := range list {
		if !list[i].IsRead {
			list[i].IsRead = true
			list[i].ReadAt = &t
			count++
		}
	}
	return count, nil
}

func (m *MockStore) SetArchived(recipientID, id string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateNotification(recipientID, id, func(n *models.Notification) {
		n.IsArchived = archived
	})
}

func (m *MockStore) DeleteNotification(recipientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.Notifs[recipientID]
	for i := range list {
		if list[i].ID == id {
			m.Notifs[recipientID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) NotificationStats(recipientID string) (models.NotificationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st models.NotificationStats
	for _, n := range m.Notifs[recipientID] {
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

func (m *MockStore) GetPreferences(userID string) (models.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.NotificationPreference{}, err
	}
	if p, ok := m.Prefs[userID]; ok {
		return p, nil
	}
	return models.DefaultPreferences(userID), nil
}

func (m *MockStore) SavePreferences(p models.NotificationPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Prefs[p.UserID] = p
	return nil
}

func (m *MockStore) ListAllNotifications(f AdminNotificationFilter) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []models.Notification
	for recipient, list := range m.Notifs {
		if f.RecipientID != "" && recipient != f.RecipientID {
			continue
		}
		for _, n := range list {
			if f.Type != "" && n.Type != f.Type {
				continue
			}
			if f.IsRead != nil && n.IsRead != *f.IsRead {
				continue
			}
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.After(res[j].Created) })
	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func (m *MockStore) FindNotificationRecipient(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for recipient, list := range m.Notifs {
		for _, n := range list {
			if n.ID == id {
				return recipient, nil
			}
		}
	}
	return "", ErrNotFound
}
