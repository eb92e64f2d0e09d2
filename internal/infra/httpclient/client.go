// Package httpclient builds the outbound HTTP client used to fetch comic feeds and pages.
//
// Every request goes through a per-host token bucket (politeness towards comic hosts)
// and a per-host circuit breaker (a host that keeps failing is skipped quickly).
// Webhook deliveries do not use this client.
package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"comic-notifier/internal/resilience/circuitbreaker"
)

// errServerStatus marks a 5xx response as a breaker failure without losing the response.
var errServerStatus = errors.New("server error status")

// Config holds outbound client settings.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration
	// RatePerHost is the sustained request rate allowed per host (requests per second).
	RatePerHost float64
	// BurstPerHost is the number of requests a host may receive at once.
	BurstPerHost int
	// UserAgent is sent when the request does not set one.
	UserAgent string
	// OnBreakerStateChange is called after a host's breaker changes state.
	OnBreakerStateChange func(host string, from, to gobreaker.State)
}

// DefaultConfig returns the default outbound client settings.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		RatePerHost:  2,
		BurstPerHost: 4,
		UserAgent:    "comic-notifier/1.0",
	}
}

// New creates an *http.Client whose transport throttles and circuit-breaks per host.
func New(cfg Config) *http.Client {
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: NewTransport(http.DefaultTransport, cfg),
	}
}

// Transport is an http.RoundTripper applying per-host rate limiting and circuit breaking.
type Transport struct {
	base http.RoundTripper
	cfg  Config

	mu    sync.Mutex
	hosts map[string]*hostGuard
}

type hostGuard struct {
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// NewTransport wraps base. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper, cfg Config) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.RatePerHost <= 0 {
		cfg.RatePerHost = DefaultConfig().RatePerHost
	}
	if cfg.BurstPerHost <= 0 {
		cfg.BurstPerHost = DefaultConfig().BurstPerHost
	}
	return &Transport{
		base:  base,
		cfg:   cfg,
		hosts: make(map[string]*hostGuard),
	}
}

func (t *Transport) guard(host string) *hostGuard {
	t.mu.Lock()
	defer t.mu.Unlock()

	if g, ok := t.hosts[host]; ok {
		return g
	}

	bcfg := circuitbreaker.HostConfig(host)
	if hook := t.cfg.OnBreakerStateChange; hook != nil {
		bcfg.OnStateChange = func(_ string, from, to gobreaker.State) {
			hook(host, from, to)
		}
	}
	g := &hostGuard{
		limiter: rate.NewLimiter(rate.Limit(t.cfg.RatePerHost), t.cfg.BurstPerHost),
		breaker: circuitbreaker.New(bcfg),
	}
	t.hosts[host] = g
	return g
}

// RoundTrip waits for the host's limiter, then sends req through the host's breaker.
// Transport errors and 5xx responses count as breaker failures; 5xx responses are
// still returned to the caller so the status and body can be reported.
// While a host's breaker is open, requests fail immediately with gobreaker.ErrOpenState.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	g := t.guard(host)

	if err := g.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", host, err)
	}

	if t.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}

	var resp *http.Response
	_, err := g.breaker.Execute(func() (interface{}, error) {
		r, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return r, errServerStatus
		}
		return r, nil
	})

	switch {
	case errors.Is(err, errServerStatus):
		return resp, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", host, err)
	default:
		return resp, nil
	}
}

// BreakerState reports the breaker state of host, or StateClosed for an unseen host.
func (t *Transport) BreakerState(host string) gobreaker.State {
	t.mu.Lock()
	g, ok := t.hosts[host]
	t.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return g.breaker.State()
}

// BreakerStates returns a snapshot of the breaker state of every host seen so far.
func (t *Transport) BreakerStates() map[string]gobreaker.State {
	t.mu.Lock()
	defer t.mu.Unlock()

	states := make(map[string]gobreaker.State, len(t.hosts))
	for host, g := range t.hosts {
		states[host] = g.breaker.State()
	}
	return states
}
