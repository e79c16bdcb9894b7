package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/marketchat/internal/config"
	"github.com/shinyyama/marketchat/internal/handler"
	appmw "github.com/shinyyama/marketchat/internal/middleware"
	"github.com/shinyyama/marketchat/internal/repository"
	"github.com/shinyyama/marketchat/internal/service"
	"github.com/shinyyama/marketchat/internal/session"
	"github.com/shinyyama/marketchat/internal/subscription"
	"go.uber.org/zap"
)

type Server struct {
	e        *echo.Echo
	registry *session.Registry
	log      *zap.Logger
}

type BuildInfo struct {
	SHA  string
	Time string
}

// New wires services over store and registers every route. verifier may be nil when
// cfg.AuthMode is header.
func New(cfg *config.Config, store *repository.Store, verifier appmw.TokenVerifier, log *zap.Logger, build BuildInfo) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	allowOrigin := originAllowed(cfg.CORSOriginSuffixes)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestContext)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("rid", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", appmw.HeaderUID},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			return allowOrigin(origin), nil
		},
	}))

	profiles := service.NewProfileService(store.Users, log)
	notifSvc := service.NewNotificationService(store.Notifications, log, cfg.NotificationBulkParallel)
	convSvc := service.NewConversationService(store.Conversations, store.Messages, store.Listings, notifSvc, profiles, log)

	registry := session.NewRegistry()
	deps := session.Deps{
		Conversations: convSvc,
		Notifications: notifSvc,
		Profiles:      profiles,
		Messages:      store.Messages,
		Feed:          store.Notifications,
		Subscriptions: subscription.Options{
			InitialInterval: cfg.ResubscribeInitialInterval,
			MaxInterval:     cfg.ResubscribeMaxInterval,
		},
		Log: log,
	}

	convHandler := handler.NewConversationHandler(convSvc, log)
	notifHandler := handler.NewNotificationHandler(notifSvc, log)
	userHandler := handler.NewUserHandler(profiles, log)
	rtHandler := handler.NewRealtimeHandler(deps, registry, allowOrigin)

	requireAuth := appmw.RequireHeaderUID
	if cfg.AuthMode == config.AuthFirebase {
		requireAuth = appmw.NewAuthMiddleware(verifier).RequireAuth
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"ok":         true,
			"sessions":   registry.Len(),
			"git_sha":    build.SHA,
			"build_time": build.Time,
		})
	})
	e.GET("/ws", rtHandler.Connect, requireAuth)

	api := e.Group("/api")
	api.GET("/users/:uid/public", userHandler.GetPublic)

	authed := api.Group("", requireAuth)
	authed.POST("/listings/:id/conversations", convHandler.StartFromListing)
	authed.GET("/conversations", convHandler.List)
	authed.GET("/conversations/:id", convHandler.Get)
	authed.DELETE("/conversations/:id", convHandler.Delete)
	authed.GET("/conversations/:id/messages", convHandler.ListMessages)
	authed.POST("/conversations/:id/messages", convHandler.CreateMessage)
	authed.GET("/notifications", notifHandler.List)
	authed.POST("/notifications/read-all", notifHandler.MarkAllRead)
	authed.POST("/notifications/:id/read", notifHandler.MarkRead)
	authed.DELETE("/notifications/:id", notifHandler.Delete)
	authed.DELETE("/notifications", notifHandler.DeleteAll)

	return &Server{e: e, registry: registry, log: log}
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting server", zap.String("addr", addr))
	return s.e.Start(addr)
}

// Shutdown closes every live session, which disconnects its websocket, then drains HTTP.
func (s *Server) Shutdown(ctx context.Context) error {
	s.registry.CloseAll()
	return s.e.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func originAllowed(suffixes []string) func(string) bool {
	return func(origin string) bool {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}
		host := u.Hostname()
		for _, suffix := range suffixes {
			suffix = strings.TrimSpace(suffix)
			if suffix != "" && strings.HasSuffix(host, suffix) {
				return true
			}
		}
		return false
	}
}
