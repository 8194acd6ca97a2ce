// Package discord is a typed client for the Discord-shaped upstream REST
// API: guild membership reads and the three moderation mutations.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"skyfall-dashboard/internal/config"
	"skyfall-dashboard/internal/fetch"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNotMember is returned when the requested guild does not appear in the
// caller's guild list.
var ErrNotMember = errors.New("guild not found in caller's guild list")

// APIError carries a terminal non-2xx upstream response. Only 429s are
// retried, inside the fetch client; anything surfacing here is final.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

type Client struct {
	base        string
	memberLimit int
	timeout     time.Duration
	bot         *fetch.Client
	user        *fetch.Client
	logger      *zap.Logger
}

func NewClient(cfg config.DiscordConfig, timeouts config.TimeoutConfig, retry config.RetryConfig, logger *zap.Logger) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BotToken, TokenType: "Bot"})
	botHTTP := oauth2.NewClient(context.Background(), source)

	return &Client{
		base:        cfg.APIBase,
		memberLimit: cfg.MemberPageLimit,
		timeout:     timeouts.Upstream(),
		bot:         fetch.New(botHTTP, retry.MaxAttempts, logger),
		user:        fetch.New(http.DefaultClient, retry.MaxAttempts, logger),
		logger:      logger,
	}
}

// CurrentUser resolves the caller behind a dashboard bearer token.
func (c *Client) CurrentUser(ctx context.Context, userToken string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, c.user, http.MethodGet, "/users/@me", nil, userToken)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()
	return decodeUser(resp.Body)
}

// UserGuilds fetches the caller's OAuth-scoped guild list. Never cached:
// permissions must be fresh on every authorization check.
func (c *Client) UserGuilds(ctx context.Context, userToken string) ([]Guild, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, c.user, http.MethodGet, "/users/@me/guilds", nil, userToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeGuilds(resp.Body)
}

// MembershipFor locates guildID in the caller's guild list and parses its
// permission mask into a GuildMembership for the resolver.
func (c *Client) MembershipFor(ctx context.Context, userToken, userID, guildID string) (GuildMembership, error) {
	guilds, err := c.UserGuilds(ctx, userToken)
	if err != nil {
		return GuildMembership{}, err
	}
	for _, guild := range guilds {
		if guild.ID != guildID {
			continue
		}
		permissions, err := ParsePermissions(guild.Permissions)
		if err != nil {
			return GuildMembership{}, err
		}
		return GuildMembership{
			GuildID:     guild.ID,
			UserID:      userID,
			IsOwner:     guild.Owner,
			Permissions: permissions,
		}, nil
	}
	return GuildMembership{}, ErrNotMember
}

// GuildMembers fetches a single member page, capped at the configured
// limit (at most 1000 upstream). Larger guilds need pagination this client
// does not implement.
func (c *Client) GuildMembers(ctx context.Context, guildID string) ([]Member, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	path := fmt.Sprintf("/guilds/%s/members?limit=%d", guildID, c.memberLimit)
	resp, err := c.send(ctx, c.bot, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeMembers(resp.Body)
}

func (c *Client) BanMember(ctx context.Context, guildID, userID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	path := fmt.Sprintf("/guilds/%s/bans/%s", guildID, userID)
	body := map[string]any{"delete_message_days": 1, "reason": reason}
	resp, err := c.send(ctx, c.bot, http.MethodPut, path, body, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

func (c *Client) KickMember(ctx context.Context, guildID, userID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	resp, err := c.send(ctx, c.bot, http.MethodDelete, path, map[string]any{"reason": reason}, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

func (c *Client) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	body := map[string]any{
		"communication_disabled_until": until.UTC().Format(time.RFC3339),
		"reason":                       reason,
	}
	resp, err := c.send(ctx, c.bot, http.MethodPatch, path, body, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

func (c *Client) send(ctx context.Context, client *fetch.Client, method, path string, body any, bearer string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, Body: string(detail)}
	}
	return resp, nil
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
