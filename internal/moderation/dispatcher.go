// Package moderation dispatches authorized moderation mutations to the
// upstream API and records each performed action as an audit case.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skyfall-dashboard/internal/audit"
	"skyfall-dashboard/internal/discord"
	"skyfall-dashboard/internal/identity"
	"skyfall-dashboard/internal/storage"

	"go.uber.org/zap"
)

type ActionKind string

const (
	KindBan     ActionKind = "Ban"
	KindKick    ActionKind = "Kick"
	KindTimeout ActionKind = "Timeout"
)

func ParseActionKind(raw string) (ActionKind, error) {
	switch raw {
	case "ban":
		return KindBan, nil
	case "kick":
		return KindKick, nil
	case "timeout":
		return KindTimeout, nil
	default:
		return "", &ValidationError{Field: "action"}
	}
}

type Upstream interface {
	BanMember(ctx context.Context, guildID, userID, reason string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error
}

type MembershipSource interface {
	MembershipFor(ctx context.Context, userToken, userID, guildID string) (discord.GuildMembership, error)
}

type TargetResolver interface {
	ResolveUserID(ctx context.Context, rawInput, guildID string) (string, error)
}

type Request struct {
	GuildID         string
	Target          string
	Kind            ActionKind
	Reason          string
	DurationSeconds int64
	ModeratorID     string
	ModeratorToken  string
}

type Ack struct {
	TargetUserID string
	Message      string
}

type Dispatcher struct {
	upstream    Upstream
	memberships MembershipSource
	resolver    TargetResolver
	audit       *audit.Recorder
	logger      *zap.Logger
	now         func() time.Time
}

func NewDispatcher(upstream Upstream, memberships MembershipSource, resolver TargetResolver, recorder *audit.Recorder, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		upstream:    upstream,
		memberships: memberships,
		resolver:    resolver,
		audit:       recorder,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the dispatcher's clock. Test hook.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch runs one action through validation, target resolution,
// authorization, execution, and logging. Every stage can exit with a typed
// error; no outbound mutation is issued before authorization passes.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Ack, error) {
	if req.Target == "" {
		return Ack{}, &ValidationError{Field: "user"}
	}
	if req.Kind == "" {
		return Ack{}, &ValidationError{Field: "action"}
	}
	if req.Reason == "" {
		return Ack{}, &ValidationError{Field: "reason"}
	}
	if req.Kind == KindTimeout && req.DurationSeconds <= 0 {
		return Ack{}, &ValidationError{Field: "duration"}
	}

	targetID, err := d.resolver.ResolveUserID(ctx, req.Target, req.GuildID)
	if err != nil {
		var notFound *identity.NotFoundError
		if errors.As(err, &notFound) {
			return Ack{}, err
		}
		var apiErr *discord.APIError
		if errors.As(err, &apiErr) {
			return Ack{}, &DispatchError{Kind: req.Kind, Status: apiErr.Status, Body: apiErr.Body}
		}
		return Ack{}, &OfflineError{Err: err}
	}

	membership, err := d.memberships.MembershipFor(ctx, req.ModeratorToken, req.ModeratorID, req.GuildID)
	if err != nil {
		if errors.Is(err, discord.ErrNotMember) {
			return Ack{}, &AuthorizationError{GuildID: req.GuildID, UserID: req.ModeratorID}
		}
		var apiErr *discord.APIError
		if errors.As(err, &apiErr) {
			return Ack{}, &DispatchError{Kind: req.Kind, Status: apiErr.Status, Body: apiErr.Body}
		}
		return Ack{}, &OfflineError{Err: err}
	}
	if !d.authorized(membership, req.Kind) {
		return Ack{}, &AuthorizationError{GuildID: req.GuildID, UserID: req.ModeratorID}
	}

	if err := d.execute(ctx, req, targetID); err != nil {
		return Ack{}, err
	}

	d.audit.Record(ctx, storage.Case{
		GuildID:         req.GuildID,
		ActionKind:      string(req.Kind),
		TargetUserID:    targetID,
		ModeratorUserID: req.ModeratorID,
		Reason:          req.Reason,
		DurationSeconds: req.DurationSeconds,
		CreatedAt:       d.now(),
	})

	return Ack{
		TargetUserID: targetID,
		Message:      fmt.Sprintf("%s issued for user %s", req.Kind, targetID),
	}, nil
}

// Timeouts accept the ModerateMembers bit; ban and kick require the full
// dashboard-level gate.
func (d *Dispatcher) authorized(membership discord.GuildMembership, kind ActionKind) bool {
	if kind == KindTimeout {
		return discord.CanPerformModerationAction(membership)
	}
	return discord.CanModerate(membership)
}

func (d *Dispatcher) execute(ctx context.Context, req Request, targetID string) error {
	var err error
	switch req.Kind {
	case KindBan:
		err = d.upstream.BanMember(ctx, req.GuildID, targetID, req.Reason)
	case KindKick:
		err = d.upstream.KickMember(ctx, req.GuildID, targetID, req.Reason)
	case KindTimeout:
		until := d.now().Add(time.Duration(req.DurationSeconds) * time.Second)
		err = d.upstream.TimeoutMember(ctx, req.GuildID, targetID, until, req.Reason)
	default:
		return &ValidationError{Field: "action"}
	}
	if err == nil {
		return nil
	}

	var apiErr *discord.APIError
	if errors.As(err, &apiErr) {
		d.logger.Warn("moderation action rejected upstream",
			zap.String("guild_id", req.GuildID),
			zap.String("action", string(req.Kind)),
			zap.Int("status", apiErr.Status))
		return &DispatchError{Kind: req.Kind, Status: apiErr.Status, Body: apiErr.Body}
	}
	d.logger.Warn("moderation action unreachable upstream",
		zap.String("guild_id", req.GuildID),
		zap.String("action", string(req.Kind)),
		zap.Error(err))
	return &OfflineError{Err: err}
}
