package store

import (
	"fmt"
	"time"

	"github.com/VangaRenuka/SocialConnect/internal/config"
	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var logg = logger.New()

// --- Interfaces ---

type SessionInterface interface {
	Query(stmt string, values ...interface{}) *gocql.Query
	NewBatch(batchType gocql.BatchType) *gocql.Batch
	ExecuteBatch(batch *gocql.Batch) error
	Close()
}

// UserStore covers accounts, credentials and admin user management.
type UserStore interface {
	CreateUser(u models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserIDByUsername(username string) (string, error)
	GetUserIDByEmail(email string) (string, error)
	SaveProfile(u models.User) error
	SetPasswordHash(userID, hash string) error
	UpdateLastLogin(userID string, t time.Time) error
	SetResetToken(userID, token string, expires time.Time) error
	ConsumeResetToken(token string) (string, error)
	ListUsers(search, role string, limit int) ([]models.User, error)
	DeactivateUser(userID string, t time.Time) error
	ReactivateUser(userID string) error
	SetUserRole(userID, role string) error
	CountUsers() (int64, error)
	CountActiveSince(t time.Time) (int64, error)
	CountJoinedSince(t time.Time) (int64, error)
	HasAdmin() (bool, error)
}

// SocialStore covers the follow graph.
type SocialStore interface {
	CreateFollow(followerID, followeeID string) error
	DeleteFollow(followerID, followeeID string) error
	IsFollowing(followerID, followeeID string) (bool, error)
	GetFollowers(userID string) ([]string, error)
	GetFollowing(userID string) ([]string, error)
}

// PostFilter narrows post listings.
type PostFilter struct {
	Category        string
	AuthorID        string
	Search          string
	IncludeInactive bool
	Limit           int
}

// PostStore covers posts, likes and comments.
type PostStore interface {
	AddPost(post models.Post) error
	GetPost(id string) (*models.Post, error)
	UpdatePost(post models.Post) error
	DeactivatePost(id string) error
	DeletePost(id string) error
	ListPosts(f PostFilter) ([]models.Post, error)
	GetUserPosts(authorID string, limit int) ([]models.Post, error)
	GetPostsByCategory(category string, limit int) ([]models.Post, error)
	CountPosts() (int64, error)

	AddLike(postID, userID string) (bool, error)
	RemoveLike(postID, userID string) (bool, error)
	HasLiked(postID, userID string) (bool, error)
	GetPostCounts(postID string) (likes, comments int64, err error)

	AddComment(c models.Comment) error
	GetComment(id string) (*models.Comment, error)
	ListComments(postID string, limit int) ([]models.Comment, error)
	UpdateComment(c models.Comment) error
	DeactivateComment(id string) error
	DeleteComment(id string) error
	ListAllComments(limit int) ([]models.Comment, error)
}

// FeedStore covers per-user precomputed feeds and trending input.
type FeedStore interface {
	AddToFeed(userID string, post models.Post) error
	GetFeed(userID string, limit int) ([]models.Post, error)
	GetRecentPosts(since time.Time, limit int) ([]models.Post, error)
}

// NotificationFilter narrows a user's notification listing.
type NotificationFilter struct {
	IsRead     *bool
	IsArchived *bool
	Type       string
	Limit      int
}

// AdminNotificationFilter narrows the admin-wide notification listing.
type AdminNotificationFilter struct {
	RecipientID string
	Type        string
	IsRead      *bool
	Limit       int
}

// NotificationStore covers notifications and delivery preferences.
type NotificationStore interface {
	AddNotification(n models.Notification) error
	GetNotification(recipientID, id string) (*models.Notification, error)
	ListNotifications(recipientID string, f NotificationFilter) ([]models.Notification, error)
	MarkRead(recipientID, id string, t time.Time) error
	MarkAllRead(recipientID string, t time.Time) (int64, error)
	SetArchived(recipientID, id string, archived bool) error
	DeleteNotification(recipientID, id string) error
	NotificationStats(recipientID string) (models.NotificationStats, error)
	GetPreferences(userID string) (models.NotificationPreference, error)
	SavePreferences(p models.NotificationPreference) error
	ListAllNotifications(f AdminNotificationFilter) ([]models.Notification, error)
	FindNotificationRecipient(id string) (string, error)
}

// StoreInterface is the complete storage surface.
type StoreInterface interface {
	UserStore
	SocialStore
	PostStore
	FeedStore
	NotificationStore
	Close()
}

// --- Store Implementation ---

type Store struct {
	Session SessionInterface
}

// New initializes Cassandra connection using config package.
func New() (StoreInterface, error) {
	cfg := config.Get()

	if err := EnsureKeyspace(cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure keyspace: %w", err)
	}

	if err := RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	sess, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	logg.Info("store", "Connected to Cassandra keyspace (host anonymized)")
	return &Store{Session: sess}, nil
}

// Connect opens a session against the configured keyspace without
// touching the schema.
func Connect(cfg *config.Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout

	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.CassandraUsername,
			Password: cfg.CassandraPassword,
		}
	}

	if cfg.CassandraDC != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(cfg.CassandraDC)
	}

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}
	return sess, nil
}

// Ping verifies the cluster is reachable without assuming the
// application keyspace exists yet. The setup command probes with this.
func Ping(cfg *config.Config) error {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Keyspace = "system"
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout

	sess, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("cassandra unreachable: %w", err)
	}
	sess.Close()
	return nil
}

// EnsureKeyspace creates the keyspace if it does not exist yet.
func EnsureKeyspace(cfg *config.Config) error {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Keyspace = "system"
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout
	sess, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra system keyspace: %w", err)
	}
	defer sess.Close()

	query := fmt.Sprintf(`
        CREATE KEYSPACE IF NOT EXISTS %s
        WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1};
    `, cfg.CassandraKeyspace)

	if err := sess.Query(query).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}

	logg.Info("store", "Ensured Cassandra keyspace exists (keyspace name anonymized)")
	return nil
}

// RunMigrations applies the versioned schema migrations.
func RunMigrations(cfg *config.Config) error {
	sourceURL := fmt.Sprintf("file://%s", cfg.MigrationsDir)
	dbURL := fmt.Sprintf(
		"cassandra://%s/%s?x-migrations-table=schema_migrations&x-multi-statement=true",
		cfg.CassandraHost, cfg.CassandraKeyspace,
	)

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logg.Info("store", "No new migrations to apply")
	} else {
		logg.Info("store", "Migrations applied successfully")
	}
	return nil
}

// Close gracefully closes Cassandra session.
func (s *Store) Close() {
	if s.Session != nil {
		s.Session.Close()
		logg.Info("store", "Cassandra session closed")
	}
}
