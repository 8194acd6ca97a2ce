package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skyfall-dashboard/internal/config"
)

func okServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func timeouts() config.TimeoutConfig {
	return config.TimeoutConfig{ProbeSeconds: 2, CapabilitySeconds: 1, UpstreamSeconds: 2}
}

func TestTunnelPriorityWins(t *testing.T) {
	local := okServer(t, 0)                    // loopback, priority 2
	tunnel := okServer(t, 50*time.Millisecond) // marked as tunnel, slower but higher priority

	prober := New(config.CompanionConfig{
		TunnelMarkers:        []string{tunnel.URL},
		CapabilityTTLSeconds: 30,
	}, timeouts(), nil)

	endpoint := prober.ProbeAll(context.Background(), []string{local.URL, tunnel.URL})
	if endpoint == nil {
		t.Fatal("expected an endpoint")
	}
	if endpoint.BaseURL != tunnel.URL {
		t.Fatalf("expected tunnel candidate %s, got %s", tunnel.URL, endpoint.BaseURL)
	}
	if endpoint.Priority != 1 {
		t.Fatalf("expected priority 1, got %d", endpoint.Priority)
	}
	if active := prober.Active(); active == nil || active.BaseURL != tunnel.URL {
		t.Fatalf("expected active endpoint carried forward, got %+v", active)
	}
}

func TestLatencyBreaksPriorityTies(t *testing.T) {
	fast := okServer(t, 0)
	slow := okServer(t, 200*time.Millisecond)

	prober := New(config.CompanionConfig{CapabilityTTLSeconds: 30}, timeouts(), nil)
	endpoint := prober.ProbeAll(context.Background(), []string{slow.URL, fast.URL})
	if endpoint == nil || endpoint.BaseURL != fast.URL {
		t.Fatalf("expected fastest same-priority candidate, got %+v", endpoint)
	}
}

func TestNoReachableCandidates(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	prober := New(config.CompanionConfig{CapabilityTTLSeconds: 30}, timeouts(), nil)
	if endpoint := prober.ProbeAll(context.Background(), []string{dead.URL, "http://127.0.0.1:1"}); endpoint != nil {
		t.Fatalf("expected nil endpoint, got %+v", endpoint)
	}
	if active := prober.Active(); active != nil {
		t.Fatalf("expected no active endpoint, got %+v", active)
	}
}

func TestErrorStatusIsNotConnected(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	prober := New(config.CompanionConfig{CapabilityTTLSeconds: 30}, timeouts(), nil)
	if endpoint := prober.ProbeAll(context.Background(), []string{broken.URL}); endpoint != nil {
		t.Fatalf("expected nil endpoint for 500 status, got %+v", endpoint)
	}
}

func TestCapabilityProbesTolerateFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status", "/guilds":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	prober := New(config.CompanionConfig{CapabilityTTLSeconds: 30}, timeouts(), nil)
	endpoint := prober.ProbeAll(context.Background(), []string{server.URL})
	if endpoint == nil {
		t.Fatal("expected an endpoint")
	}
	if !endpoint.Capabilities["guilds"] {
		t.Fatal("expected guilds capability available")
	}
	if endpoint.Capabilities["commands"] {
		t.Fatal("expected commands capability unavailable")
	}
}
