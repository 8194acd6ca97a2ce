package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skyfall-dashboard/internal/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		config.DiscordConfig{APIBase: server.URL, BotToken: "bot-token", MemberPageLimit: 1000},
		config.TimeoutConfig{ProbeSeconds: 8, CapabilitySeconds: 5, UpstreamSeconds: 10},
		config.RetryConfig{MaxAttempts: 3},
		nil,
	)
}

func TestBanMemberRequestShape(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.BanMember(context.Background(), "g1", "u1", "spamming"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/guilds/g1/bans/u1" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bot bot-token" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}
	if gotBody["delete_message_days"] != float64(1) || gotBody["reason"] != "spamming" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestTimeoutMemberRequestShape(t *testing.T) {
	var gotMethod string
	var gotBody map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	until := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := client.TimeoutMember(context.Background(), "g1", "u1", until, "cooldown"); err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", gotMethod)
	}
	if gotBody["communication_disabled_until"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected disabled-until %v", gotBody["communication_disabled_until"])
	}
}

func TestUpstreamErrorSurfaced(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Missing Permissions"}`))
	}))

	err := client.KickMember(context.Background(), "g1", "u1", "test")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", apiErr.Status)
	}
}

func TestMembershipFor(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":"g1","name":"Alpha","owner":false,"permissions":"32"},
			{"id":"g2","name":"Beta","owner":true,"permissions":"0"}
		]`))
	}))

	membership, err := client.MembershipFor(context.Background(), "user-token", "u1", "g1")
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if !membership.Permissions.Has(PermissionManageGuild) {
		t.Fatal("expected ManageGuild bit from permissions string 32")
	}

	if _, err := client.MembershipFor(context.Background(), "user-token", "u1", "g9"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestMalformedMemberPayloadFailsFast(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"nick":"ghost"}]`))
	}))

	if _, err := client.GuildMembers(context.Background(), "g1"); err == nil {
		t.Fatal("expected error for member without user id")
	}
}
