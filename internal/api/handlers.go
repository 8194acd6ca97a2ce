package api

import (
	"errors"
	"net/http"
	"time"

	"skyfall-dashboard/internal/discord"
	"skyfall-dashboard/internal/identity"
	"skyfall-dashboard/internal/moderation"
	"skyfall-dashboard/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type moderationRequest struct {
	Action   string `json:"action"`
	User     string `json:"user"`
	UserID   string `json:"userId"`
	Reason   string `json:"reason"`
	Duration int64  `json:"duration"`
}

type caseResponse struct {
	ID              int64  `json:"id"`
	ActionKind      string `json:"actionKind"`
	TargetUserID    string `json:"targetUserId"`
	ModeratorUserID string `json:"moderatorUserId"`
	Reason          string `json:"reason"`
	DurationSeconds int64  `json:"durationSeconds,omitempty"`
	CreatedAt       string `json:"createdAt"`
}

func (s *Server) postModeration(c *gin.Context) {
	guildID := c.Param("guildID")
	userID := c.GetString(contextUserID)
	token := c.GetString(contextToken)

	var body moderationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	kind, err := moderation.ParseActionKind(body.Action)
	if err != nil {
		s.writeError(c, err)
		return
	}
	target := body.UserID
	if target == "" {
		target = body.User
	}

	ack, err := s.dispatcher.Dispatch(c.Request.Context(), moderation.Request{
		GuildID:         guildID,
		Target:          target,
		Kind:            kind,
		Reason:          body.Reason,
		DurationSeconds: body.Duration,
		ModeratorID:     userID,
		ModeratorToken:  token,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": ack.Message})
}

func (s *Server) getModeration(c *gin.Context) {
	guildID := c.Param("guildID")
	userID := c.GetString(contextUserID)
	token := c.GetString(contextToken)

	membership, err := s.identity.MembershipFor(c.Request.Context(), token, userID, guildID)
	if err != nil {
		if errors.Is(err, discord.ErrNotMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to moderate this server."})
			return
		}
		s.writeError(c, &moderation.OfflineError{Err: err})
		return
	}
	if !discord.CanModerate(membership) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to moderate this server."})
		return
	}

	summary, err := s.stats.Summary(c.Request.Context(), guildID, 50)
	if err != nil {
		s.logger.Error("case summary failed", zap.String("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load moderation cases"})
		return
	}

	cases := make([]caseResponse, 0, len(summary.Cases))
	for _, entry := range summary.Cases {
		cases = append(cases, toCaseResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{
		"cases":       cases,
		"totalCases":  summary.TotalCases,
		"todaysCases": summary.TodaysCases,
	})
}

// getBotStatus reports the companion endpoint chosen by the last probe
// cycle. An unreachable companion is an expected outcome served as demo
// data, not an error.
func (s *Server) getBotStatus(c *gin.Context) {
	active := s.endpoints.Active()
	if active == nil {
		c.JSON(http.StatusOK, demoStatus())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"online":         true,
		"demo":           false,
		"endpoint":       active.BaseURL,
		"priority":       active.Priority,
		"responseTimeMs": active.ResponseTimeMs,
		"capabilities":   active.Capabilities,
	})
}

func toCaseResponse(entry storage.Case) caseResponse {
	return caseResponse{
		ID:              entry.ID,
		ActionKind:      entry.ActionKind,
		TargetUserID:    entry.TargetUserID,
		ModeratorUserID: entry.ModeratorUserID,
		Reason:          entry.Reason,
		DurationSeconds: entry.DurationSeconds,
		CreatedAt:       entry.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// writeError maps the moderation error taxonomy onto HTTP statuses:
// validation and unresolved identities are the caller's problem,
// authorization is forbidden, upstream rejections and unreachability are
// gateway-class.
func (s *Server) writeError(c *gin.Context, err error) {
	var validation *moderation.ValidationError
	var notFound *identity.NotFoundError
	var authz *moderation.AuthorizationError
	var dispatch *moderation.DispatchError
	var offline *moderation.OfflineError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": notFound.Error()})
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, gin.H{"error": authz.Error()})
	case errors.As(err, &dispatch):
		s.logger.Warn("dispatch rejected upstream", zap.Int("status", dispatch.Status))
		c.JSON(http.StatusBadGateway, gin.H{"error": dispatch.Error()})
	case errors.As(err, &offline):
		s.logger.Warn("upstream unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": offline.Error()})
	default:
		s.logger.Error("unclassified dispatch error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
