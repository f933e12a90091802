package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile visibility levels.
const (
	VisibilityPublic        = "public"
	VisibilityPrivate       = "private"
	VisibilityFollowersOnly = "followers_only"
)

// Post categories.
const (
	CategoryGeneral      = "general"
	CategoryAnnouncement = "announcement"
	CategoryQuestion     = "question"
)

// ValidCategory reports whether c is a known post category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryGeneral, CategoryAnnouncement, CategoryQuestion:
		return true
	}
	return false
}

type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email,omitempty"`
	PasswordHash  string     `json:"-"`
	Role          string     `json:"role"`
	Bio           string     `json:"bio,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Website       string     `json:"website,omitempty"`
	Location      string     `json:"location,omitempty"`
	Visibility    string     `json:"profile_visibility"`
	JoinedAt      time.Time  `json:"joined_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	IsActive      bool       `json:"is_active"`
	IsDeactivated bool       `json:"is_deactivated"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// CanViewProfile reports whether viewer may see this user's profile and posts.
// Followers-only checks require the caller to resolve the follow edge.
func (u *User) CanViewProfile(viewerID string, isFollower bool) bool {
	switch u.Visibility {
	case VisibilityPrivate:
		return viewerID == u.ID
	case VisibilityFollowersOnly:
		return viewerID == u.ID || isFollower
	default:
		return true
	}
}

type Follow struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	Created    time.Time `json:"created_at"`
}

type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Author       string    `json:"author,omitempty"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	ImageURL     string    `json:"image_url,omitempty"`
	Created      time.Time `json:"created_at"`
	Updated      time.Time `json:"updated_at"`
	IsActive     bool      `json:"is_active"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
}

// EngagementScore orders the trending feed.
func (p *Post) EngagementScore() int64 { return p.LikeCount + p.CommentCount }

type Comment struct {
	ID       string    `json:"id"`
	PostID   string    `json:"post_id"`
	AuthorID string    `json:"author_id"`
	Author   string    `json:"author,omitempty"`
	Content  string    `json:"content"`
	Created  time.Time `json:"created_at"`
	IsActive bool      `json:"is_active"`
}

type Like struct {
	PostID  string    `json:"post_id"`
	UserID  string    `json:"user_id"`
	Created time.Time `json:"created_at"`
}

// Notification types.
const (
	NotifyFollow  = "follow"
	NotifyLike    = "like"
	NotifyComment = "comment"
	NotifyMention = "mention"
	NotifySystem  = "system"
)

type Notification struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	SenderID    string            `json:"sender_id,omitempty"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Data        map[string]string `json:"data,omitempty"`
	IsRead      bool              `json:"is_read"`
	IsArchived  bool              `json:"is_archived"`
	Created     time.Time         `json:"created_at"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
}

// NotificationStats aggregates a user's notification counts.
type NotificationStats struct {
	Total    int64 `json:"total_notifications"`
	Unread   int64 `json:"unread_count"`
	Read     int64 `json:"read_count"`
	Archived int64 `json:"archived_count"`
	Follows  int64 `json:"follow_count"`
	Likes    int64 `json:"like_count"`
	Comments int64 `json:"comment_count"`
	Mentions int64 `json:"mention_count"`
	System   int64 `json:"system_count"`
}

// NotificationPreference holds per-type delivery toggles and quiet hours.
// Only in-app delivery is acted on; email/push toggles are stored for clients.
type NotificationPreference struct {
	UserID string `json:"user_id"`

	EmailFollows  bool `json:"email_follows"`
	EmailLikes    bool `json:"email_likes"`
	EmailComments bool `json:"email_comments"`
	EmailMentions bool `json:"email_mentions"`
	EmailSystem   bool `json:"email_system"`

	PushFollows  bool `json:"push_follows"`
	PushLikes    bool `json:"push_likes"`
	PushComments bool `json:"push_comments"`
	PushMentions bool `json:"push_mentions"`
	PushSystem   bool `json:"push_system"`

	InAppFollows  bool `json:"in_app_follows"`
	InAppLikes    bool `json:"in_app_likes"`
	InAppComments bool `json:"in_app_comments"`
	InAppMentions bool `json:"in_app_mentions"`
	InAppSystem   bool `json:"in_app_system"`

	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start,omitempty"` // "HH:MM"
	QuietHoursEnd     string `json:"quiet_hours_end,omitempty"`   // "HH:MM"
}

// DefaultPreferences returns a preference row with every channel enabled.
func DefaultPreferences(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:        userID,
		EmailFollows:  true, EmailLikes: true, EmailComments: true, EmailMentions: true, EmailSystem: true,
		PushFollows:  true, PushLikes: true, PushComments: true, PushMentions: true, PushSystem: true,
		InAppFollows: true, InAppLikes: true, InAppComments: true, InAppMentions: true, InAppSystem: true,
	}
}

// AllowsInApp reports whether in-app delivery is enabled for the given type.
func (p *NotificationPreference) AllowsInApp(notifType string) bool {
	switch notifType {
	case NotifyFollow:
		return p.InAppFollows
	case NotifyLike:
		return p.InAppLikes
	case NotifyComment:
		return p.InAppComments
	case NotifyMention:
		return p.InAppMentions
	case NotifySystem:
		return p.InAppSystem
	}
	return true
}

// InQuietHours reports whether t falls inside the configured quiet window.
// A window whose start is after its end crosses midnight.
func (p *NotificationPreference) InQuietHours(t time.Time) bool {
	if !p.QuietHoursEnabled || p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}
	start, err := time.Parse("15:04", p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", p.QuietHoursEnd)
	if err != nil {
		return false
	}
	cur := t.Hour()*60 + t.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	if s <= e {
		return cur >= s && cur <= e
	}
	return cur >= s || cur <= e
}

// Event types carried on the broker between the API server and the worker.
const (
	EventPostCreated  = "post_created"
	EventPostLiked    = "post_liked"
	EventCommentAdded = "comment_added"
	EventUserFollowed = "user_followed"
)

// Event is the envelope published to Kafka for every write that has
// downstream effects (feed fan-out, notification creation).
type Event struct {
	Type     string    `json:"type"`
	ActorID  string    `json:"actor_id"`
	TargetID string    `json:"target_id,omitempty"` // followee or post author
	Post     *Post     `json:"post,omitempty"`
	Comment  *Comment  `json:"comment,omitempty"`
	Created  time.Time `json:"created_at"`
}

// AdminStats is the platform-wide summary served to admins.
type AdminStats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalPosts    int64 `json:"total_posts"`
	ActiveToday   int64 `json:"active_today"`
	NewUsersToday int64 `json:"new_users_today"`
}
