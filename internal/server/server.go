// Package server assembles the portal: dependencies, routes and the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"homecare-portal/internal/availability"
	"homecare-portal/internal/backend"
	"homecare-portal/internal/booking"
	"homecare-portal/internal/cache"
	"homecare-portal/internal/chat"
	"homecare-portal/internal/config"
	"homecare-portal/internal/db"
	"homecare-portal/internal/handlers"
	"homecare-portal/internal/inbox"
	"homecare-portal/internal/middleware"
	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
	"homecare-portal/internal/rabbitmq"
	"homecare-portal/internal/repositories"
	"homecare-portal/internal/session"
	"homecare-portal/internal/telemetry"
	"homecare-portal/internal/ws"
)

const (
	serviceName = "homecare-portal"

	// sessionPurgeInterval bounds how long an expired, idle session keeps its polling alive.
	sessionPurgeInterval = time.Minute
)

// Server owns every long-lived component of the portal.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	engine *gin.Engine

	db        *sqlx.DB
	redis     *redis.Client
	publisher rabbitmq.Publisher
	sessions  *session.Manager
	registry  *chat.Registry
	tracker   *inbox.Tracker
	limiter   *middleware.RateLimiter
	tracing   func(context.Context) error
}

// New connects dependencies and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	shutdown, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	s.tracing = shutdown

	database, err := db.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	s.db = database

	var providers cache.ProviderCache = cache.NoopProviderCache{}
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, provider cache disabled", zap.Error(err))
		} else {
			s.redis = client
			providers = cache.NewRedisProviderCache(client, cfg.ProviderCacheTTL, logger)
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s.publisher = rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if reason := rabbitmq.PublisherNoopReason(s.publisher); reason != "" {
		logger.Warn("activity events disabled", zap.String("reason", reason))
	}
	emitter := telemetry.NewActivityEmitter(s.publisher, "portal", serviceName, cfg.Env, logger)

	api := backend.NewClient(backend.Config{BaseURL: cfg.BackendURL, Timeout: cfg.BackendTimeout}, logger)
	validator := availability.NewValidator(
		availability.WithLanguage(language.Make(cfg.Locale)),
		availability.WithLocation(loc),
	)

	s.sessions = session.NewManager(api, repositories.NewSessionRepo(database), cfg.SessionTTL, logger)
	s.registry = chat.NewRegistry(api, cfg.ChatPollInterval, logger)
	s.tracker = inbox.NewTracker(api, inbox.Config{
		PushURL:      cfg.PushURL,
		PollInterval: cfg.UnreadPollInterval,
		Logger:       logger,
	})
	hub := ws.NewHub(emitter, logger)
	s.limiter = middleware.NewRateLimiter(cfg.MaxRequestsPerMin, 0)

	s.sessions.OnLogout(teardownHook(hub, s.registry, s.tracker))

	deps := routes{
		auth:     handlers.NewAuthHandler(s.sessions, emitter, cfg.IsProduction(), logger),
		booking:  handlers.NewBookingHandler(booking.NewService(api, providers, validator, emitter, logger)),
		chat:     handlers.NewChatHandler(api, s.registry, emitter, logger),
		unread:   handlers.NewUnreadHandler(s.tracker),
		health:   handlers.NewHealthHandler(s.healthChecks(), func() string { return rabbitmq.PublisherMode(s.publisher) }),
		chatWS:   ws.NewChatWebSocketHandler(hub, s.registry, emitter, logger),
		unreadWS: ws.NewUnreadWebSocketHandler(hub, s.tracker, logger),
		auther:   middleware.AuthMiddleware(s.sessions),
		limiter:  s.limiter.Middleware(logger),
	}
	s.engine = newRouter(cfg, logger, deps)
	return s, nil
}

type routes struct {
	auth     *handlers.AuthHandler
	booking  *handlers.BookingHandler
	chat     *handlers.ChatHandler
	unread   *handlers.UnreadHandler
	health   *handlers.HealthHandler
	chatWS   *ws.ChatWebSocketHandler
	unreadWS *ws.UnreadWebSocketHandler
	auther   gin.HandlerFunc
	limiter  gin.HandlerFunc
}

func newRouter(cfg config.Config, logger *zap.Logger, r routes) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.RequestIDMiddleware())
	router.Use(observability.GinLogger(logger))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/health", r.health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/auth/login", r.limiter, r.auth.Login)

	authed := router.Group("/", r.auther, r.limiter)
	authed.POST("/auth/logout", r.auth.Logout)
	authed.GET("/auth/me", r.auth.Me)

	authed.GET("/providers/:provider_id/availability", r.booking.CheckAvailability)
	authed.POST("/appointments", r.booking.CreateAppointment)

	authed.GET("/chats/:appointment_id", r.chat.GetChat)
	authed.GET("/chats/:appointment_id/messages", r.chat.GetChatMessages)
	authed.POST("/chats/:appointment_id/messages", r.chat.PostChatMessage)
	authed.GET("/unread", r.unread.GetUnread)

	authed.GET("/ws/chats/:appointment_id", r.chatWS.Handle)
	authed.GET("/ws/unread", r.unreadWS.Handle)

	return router
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then drains connections and stops background work.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.AppPort,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.purgeSessions(ctx)
	go s.limiter.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close(shutdownCtx)
	return err
}

// Close stops background loops and releases connections.
func (s *Server) Close(ctx context.Context) {
	s.registry.Close()
	s.tracker.Close()
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("publisher close failed", zap.Error(err))
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = s.db.Close()
	if err := s.tracing(ctx); err != nil {
		s.logger.Warn("tracer shutdown failed", zap.Error(err))
	}
}

// teardownHook releases everything a session holds: browser sockets, chat poll loops and
// unread producers.
func teardownHook(hub *ws.Hub, registry *chat.Registry, tracker *inbox.Tracker) session.LogoutHook {
	return func(sess models.Session) {
		hub.CloseSession(sess.ID)
		registry.CloseSession(sess.ID)
		tracker.Stop(sess.ID)
	}
}

func (s *Server) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired sessions purged", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) healthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"db": s.db}
	if s.redis != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return s.redis.Ping(ctx).Err() })
	}
	return checks
}
