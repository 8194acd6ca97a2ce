// Package probe selects the best reachable companion backend out of a set
// of candidate base URLs. Absence of any reachable candidate is a valid
// outcome, not an error: callers degrade to canned data.
package probe

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"skyfall-dashboard/internal/config"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type Status string

const (
	StatusConnected Status = "connected"
	StatusError     Status = "error"
	StatusFailed    Status = "failed"
)

// Candidate is one probe cycle's verdict for a single base URL.
type Candidate struct {
	BaseURL        string
	Priority       int
	ResponseTimeMs int64
	Status         Status
}

// Endpoint is the winning candidate carried forward as process-wide state,
// plus capability availability reported by the winner itself.
type Endpoint struct {
	BaseURL        string
	Priority       int
	ResponseTimeMs int64
	Capabilities   map[string]bool
}

type Prober struct {
	http              *http.Client
	probeTimeout      time.Duration
	capabilityTimeout time.Duration
	tunnelMarkers     []string
	logger            *zap.Logger
	caps              *cache.Cache

	mu     sync.Mutex
	active *Endpoint
}

func New(cfg config.CompanionConfig, timeouts config.TimeoutConfig, logger *zap.Logger) *Prober {
	ttl := time.Duration(cfg.CapabilityTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Prober{
		http:              &http.Client{},
		probeTimeout:      timeouts.Probe(),
		capabilityTimeout: timeouts.Capability(),
		tunnelMarkers:     cfg.TunnelMarkers,
		logger:            logger,
		caps:              cache.New(ttl, 2*ttl),
	}
}

// ProbeAll fans out one status probe per candidate, each with its own
// timeout and failure isolation, waits for all of them, and selects by
// (connected, priority asc, latency asc). The active endpoint is replaced
// with the outcome either way; last probe wins.
func (p *Prober) ProbeAll(ctx context.Context, candidates []string) *Endpoint {
	results := make([]Candidate, len(candidates))
	var wg sync.WaitGroup
	for i, base := range candidates {
		wg.Add(1)
		go func(i int, base string) {
			defer wg.Done()
			results[i] = p.probeOne(ctx, base)
		}(i, base)
	}
	wg.Wait()

	var best *Candidate
	for i := range results {
		candidate := &results[i]
		if candidate.Status != StatusConnected {
			continue
		}
		if best == nil ||
			candidate.Priority < best.Priority ||
			(candidate.Priority == best.Priority && candidate.ResponseTimeMs < best.ResponseTimeMs) {
			best = candidate
		}
	}

	if best == nil {
		if p.logger != nil {
			p.logger.Info("no companion endpoint reachable", zap.Int("candidates", len(candidates)))
		}
		p.setActive(nil)
		return nil
	}

	endpoint := &Endpoint{
		BaseURL:        best.BaseURL,
		Priority:       best.Priority,
		ResponseTimeMs: best.ResponseTimeMs,
		Capabilities:   p.capabilities(ctx, best.BaseURL),
	}
	if p.logger != nil {
		p.logger.Info("companion endpoint selected",
			zap.String("base_url", endpoint.BaseURL),
			zap.Int("priority", endpoint.Priority),
			zap.Int64("response_time_ms", endpoint.ResponseTimeMs))
	}
	p.setActive(endpoint)
	return endpoint
}

// Active returns the endpoint chosen by the most recent probe cycle, or
// nil when the companion is unreachable. A stale value is tolerated; the
// next cycle corrects it.
func (p *Prober) Active() *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Run re-probes on an interval until the context is cancelled.
func (p *Prober) Run(ctx context.Context, interval time.Duration, candidates []string) {
	if interval <= 0 {
		interval = time.Minute
	}
	p.ProbeAll(ctx, candidates)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProbeAll(ctx, candidates)
		}
	}
}

func (p *Prober) setActive(endpoint *Endpoint) {
	p.mu.Lock()
	p.active = endpoint
	p.mu.Unlock()
}

func (p *Prober) probeOne(ctx context.Context, base string) Candidate {
	candidate := Candidate{BaseURL: base, Priority: p.classify(base)}

	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/status", nil)
	if err != nil {
		candidate.Status = StatusFailed
		return candidate
	}

	start := time.Now()
	resp, err := p.http.Do(req)
	if err != nil {
		candidate.Status = StatusFailed
		return candidate
	}
	defer resp.Body.Close()

	candidate.ResponseTimeMs = time.Since(start).Milliseconds()
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		candidate.Status = StatusConnected
	} else {
		candidate.Status = StatusError
	}
	return candidate
}

// classify ranks a candidate URL: tunnel-domain markers first, private or
// loopback addresses second, everything else last.
func (p *Prober) classify(base string) int {
	for _, marker := range p.tunnelMarkers {
		if marker != "" && strings.Contains(base, marker) {
			return 1
		}
	}
	if parsed, err := url.Parse(base); err == nil {
		host := parsed.Hostname()
		if host == "localhost" {
			return 2
		}
		if ip := net.ParseIP(host); ip != nil && (ip.IsPrivate() || ip.IsLoopback()) {
			return 2
		}
	}
	return 3
}

// capabilities probes the winner's guild and command listing endpoints.
// Each probe tolerates failure independently; results are cached so status
// polling does not hammer the companion.
func (p *Prober) capabilities(ctx context.Context, base string) map[string]bool {
	if cached, ok := p.caps.Get(base); ok {
		if caps, ok := cached.(map[string]bool); ok {
			return caps
		}
	}

	caps := map[string]bool{
		"guilds":   p.capabilityProbe(ctx, base+"/guilds"),
		"commands": p.capabilityProbe(ctx, base+"/commands"),
	}
	p.caps.SetDefault(base, caps)
	return caps
}

func (p *Prober) capabilityProbe(ctx context.Context, target string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.capabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
