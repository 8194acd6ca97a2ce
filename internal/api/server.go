// Package api is the dashboard-facing HTTP surface.
package api

import (
	"context"
	"net/http"

	"skyfall-dashboard/internal/discord"
	"skyfall-dashboard/internal/moderation"
	"skyfall-dashboard/internal/probe"
	"skyfall-dashboard/internal/stats"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdentitySource resolves the dashboard caller and their guild standing
// from the bearer token they present.
type IdentitySource interface {
	CurrentUser(ctx context.Context, userToken string) (discord.User, error)
	MembershipFor(ctx context.Context, userToken, userID, guildID string) (discord.GuildMembership, error)
}

type ActionDispatcher interface {
	Dispatch(ctx context.Context, req moderation.Request) (moderation.Ack, error)
}

type EndpointSource interface {
	Active() *probe.Endpoint
}

type Server struct {
	engine     *gin.Engine
	identity   IdentitySource
	dispatcher ActionDispatcher
	stats      *stats.Service
	endpoints  EndpointSource
	logger     *zap.Logger
}

func NewServer(identity IdentitySource, dispatcher ActionDispatcher, statsService *stats.Service, endpoints EndpointSource, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		identity:   identity,
		dispatcher: dispatcher,
		stats:      statsService,
		endpoints:  endpoints,
		logger:     logger,
	}

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/api/bot/status", s.getBotStatus)

	authed := engine.Group("/api", s.bearerAuth())
	authed.POST("/moderation/:guildID", s.postModeration)
	authed.GET("/moderation/:guildID", s.getModeration)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}
