package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	appkafka "github.com/VangaRenuka/SocialConnect/internal/broker"
	"github.com/VangaRenuka/SocialConnect/internal/cache"
	"github.com/VangaRenuka/SocialConnect/internal/config"
	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/VangaRenuka/SocialConnect/internal/middleware"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/notify"
	"github.com/VangaRenuka/SocialConnect/internal/store"
	"github.com/VangaRenuka/SocialConnect/internal/ws"
)

type Server struct {
	store       store.StoreInterface
	kafkaWriter appkafka.KafkaWriter
	cache       cache.Cache
	hub         *ws.Hub
	notifier    *notify.Service
	cfg         *config.Config
}

var logg = logger.New()

// revokerAdapter lets the auth middleware consult the cache without
// carrying a request context through its interface.
type revokerAdapter struct{ c cache.Cache }

func (a revokerAdapter) IsTokenRevoked(jti string) (bool, error) {
	return a.c.IsTokenRevoked(context.Background(), jti)
}

// New assembles a Server with all its dependencies. The hub is created
// here but started by Run.
func New(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, c cache.Cache, cfg *config.Config) *Server {
	hub := ws.NewHub(logg, ctx, func(userID string) (int64, error) {
		return c.GetUnread(context.Background(), userID)
	})
	return &Server{
		store:       st,
		kafkaWriter: writer,
		cache:       c,
		hub:         hub,
		notifier:    notify.NewService(st, c, logg),
		cfg:         cfg,
	}
}

// Routes builds the full HTTP surface.
func (s *Server) Routes() http.Handler {
	secret := []byte(s.cfg.JWTSecret)
	auth := middleware.JWTAuth(secret, revokerAdapter{s.cache})
	authLimiter := middleware.NewRateLimiter(5, 10)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Public auth endpoints, rate limited per IP.
	pub := api.PathPrefix("/auth").Subrouter()
	pub.Use(authLimiter.Middleware)
	pub.HandleFunc("/register", s.registerHandler).Methods(http.MethodPost)
	pub.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)
	pub.HandleFunc("/refresh", s.refreshHandler).Methods(http.MethodPost)
	pub.HandleFunc("/password/reset", s.passwordResetRequestHandler).Methods(http.MethodPost)
	pub.HandleFunc("/password/reset/confirm", s.passwordResetConfirmHandler).Methods(http.MethodPost)

	// Everything below requires a valid token.
	priv := api.NewRoute().Subrouter()
	priv.Use(auth)

	priv.HandleFunc("/auth/logout", s.logoutHandler).Methods(http.MethodPost)
	priv.HandleFunc("/auth/password/change", s.passwordChangeHandler).Methods(http.MethodPost)

	priv.HandleFunc("/users", s.listUsersHandler).Methods(http.MethodGet)
	priv.HandleFunc("/users/me", s.updateProfileHandler).Methods(http.MethodPut)
	priv.HandleFunc("/users/{username}", s.getProfileHandler).Methods(http.MethodGet)
	priv.HandleFunc("/users/{username}/follow", s.followHandler).Methods(http.MethodPost)
	priv.HandleFunc("/users/{username}/follow", s.unfollowHandler).Methods(http.MethodDelete)
	priv.HandleFunc("/users/{username}/followers", s.followersHandler).Methods(http.MethodGet)
	priv.HandleFunc("/users/{username}/following", s.followingHandler).Methods(http.MethodGet)
	priv.HandleFunc("/users/{username}/posts", s.userPostsHandler).Methods(http.MethodGet)

	priv.HandleFunc("/posts", s.listPostsHandler).Methods(http.MethodGet)
	priv.HandleFunc("/posts", s.createPostHandler).Methods(http.MethodPost)
	priv.HandleFunc("/posts/{id}", s.getPostHandler).Methods(http.MethodGet)
	priv.HandleFunc("/posts/{id}", s.updatePostHandler).Methods(http.MethodPut)
	priv.HandleFunc("/posts/{id}", s.deletePostHandler).Methods(http.MethodDelete)
	priv.HandleFunc("/posts/{id}/like", s.likeHandler).Methods(http.MethodPost)
	priv.HandleFunc("/posts/{id}/like", s.unlikeHandler).Methods(http.MethodDelete)
	priv.HandleFunc("/posts/{id}/like", s.likeStatusHandler).Methods(http.MethodGet)
	priv.HandleFunc("/posts/{id}/comments", s.listCommentsHandler).Methods(http.MethodGet)
	priv.HandleFunc("/posts/{id}/comments", s.createCommentHandler).Methods(http.MethodPost)
	priv.HandleFunc("/comments/{id}", s.updateCommentHandler).Methods(http.MethodPut)
	priv.HandleFunc("/comments/{id}", s.deleteCommentHandler).Methods(http.MethodDelete)

	priv.HandleFunc("/feed", s.getFeedHandler).Methods(http.MethodGet)
	priv.HandleFunc("/feed/trending", s.trendingHandler).Methods(http.MethodGet)
	priv.HandleFunc("/feed/category/{category}", s.categoryFeedHandler).Methods(http.MethodGet)

	priv.HandleFunc("/notifications", s.listNotificationsHandler).Methods(http.MethodGet)
	priv.HandleFunc("/notifications/stats", s.notificationStatsHandler).Methods(http.MethodGet)
	priv.HandleFunc("/notifications/unread-count", s.unreadCountHandler).Methods(http.MethodGet)
	priv.HandleFunc("/notifications/read-all", s.markAllReadHandler).Methods(http.MethodPost)
	priv.HandleFunc("/notifications/preferences", s.getPreferencesHandler).Methods(http.MethodGet)
	priv.HandleFunc("/notifications/preferences", s.updatePreferencesHandler).Methods(http.MethodPut)
	priv.HandleFunc("/notifications/test", s.testNotificationHandler).Methods(http.MethodPost)
	priv.HandleFunc("/notifications/{id}", s.getNotificationHandler).Methods(http.MethodGet)
	priv.HandleFunc("/notifications/{id}", s.deleteNotificationHandler).Methods(http.MethodDelete)
	priv.HandleFunc("/notifications/{id}/read", s.markReadHandler).Methods(http.MethodPost)
	priv.HandleFunc("/notifications/{id}/archive", s.archiveHandler).Methods(http.MethodPost)
	priv.HandleFunc("/notifications/{id}/unarchive", s.unarchiveHandler).Methods(http.MethodPost)

	admin := priv.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/stats", s.adminStatsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.adminListUsersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", s.adminGetUserHandler).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", s.adminUpdateUserHandler).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}/deactivate", s.adminDeactivateUserHandler).Methods(http.MethodPost)
	admin.HandleFunc("/posts", s.adminListPostsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/posts/{id}", s.adminDeletePostHandler).Methods(http.MethodDelete)
	admin.HandleFunc("/comments", s.adminListCommentsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/comments/{id}", s.adminDeleteCommentHandler).Methods(http.MethodDelete)
	admin.HandleFunc("/notifications", s.adminListNotificationsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/notifications/{id}", s.adminDeleteNotificationHandler).Methods(http.MethodDelete)
	admin.HandleFunc("/notifications/broadcast", s.adminBroadcastHandler).Methods(http.MethodPost)

	r.HandleFunc("/ws/notifications", s.wsHandler)

	return r
}

// forwardNotifications subscribes to the cache pub/sub channel and
// pushes each notification to the recipient's WebSocket connections.
// Worker-created notifications reach connected clients this way.
func (s *Server) forwardNotifications(ctx context.Context) {
	msgs, closeSub := s.cache.Subscribe(ctx, cache.NotificationsChannel)
	defer closeSub()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			var n models.Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				logg.Error("server", "bad notification payload on pub/sub", err)
				continue
			}
			s.hub.SendToUser(n.RecipientID, "notification", n)
		}
	}
}

// wsHandler authenticates the upgrade request itself: browsers cannot
// set headers on WebSocket connects, so a token query param is accepted.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		header := r.Header.Get("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			raw = header[7:]
		}
	}
	claims, err := middleware.ParseToken([]byte(s.cfg.JWTSecret), raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	s.hub.ServeWS(w, r, claims.UserID)
}

// Run starts the HTTP(S) server, the WebSocket hub and the pub/sub
// forwarder, then blocks until ctx is cancelled and shuts down cleanly.
func Run(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, c cache.Cache, cfg *config.Config) {
	s := New(ctx, st, writer, c, cfg)

	go s.hub.Start()
	go s.forwardNotifications(ctx)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			logg.Info("server", "Starting HTTPS server on "+cfg.ServerAddr)
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			logg.Info("server", "Starting HTTP server on "+cfg.ServerAddr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
	s.hub.Stop()
}
