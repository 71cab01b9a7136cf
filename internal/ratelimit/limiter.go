// Package ratelimit provides per-identity sliding-window admission control
// for outbound provider calls.
package ratelimit

import (
	"sync"
	"time"

	"github.com/abhisek/aptiq/internal/metrics"
)

// Anonymous is the identity used when the caller supplies none.
const Anonymous = "anonymous"

// Decision is the outcome of an admission check.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Config configures a Limiter.
type Config struct {
	// Window is the trailing interval events are counted over. Default: 60s.
	Window time.Duration

	// Limit is the maximum number of allowed events per identity within
	// Window. Default: 20.
	Limit int

	// IdleTTL is how long an identity with no recent events is kept before
	// Sweep evicts it. Never shorter than Window. Default: 10m.
	IdleTTL time.Duration
}

// DefaultConfig returns the default limiter configuration.
func DefaultConfig() Config {
	return Config{
		Window:  60 * time.Second,
		Limit:   20,
		IdleTTL: 10 * time.Minute,
	}
}

// window is the ordered list of admitted timestamps for one identity.
type window struct {
	mu      sync.Mutex
	events  []time.Time
	evicted bool
}

// Limiter is a sliding-window log limiter. Each identity has its own lock;
// the identity map has a separate lock only held for lookup and eviction.
type Limiter struct {
	cfg     Config
	metrics *metrics.Metrics

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a Limiter. Zero-valued config fields take their defaults.
func New(cfg Config, m *metrics.Metrics) *Limiter {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	if cfg.IdleTTL < cfg.Window {
		cfg.IdleTTL = cfg.Window
	}
	return &Limiter{
		cfg:     cfg,
		metrics: m,
		windows: make(map[string]*window),
	}
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config {
	return l.cfg
}

// CheckAndRecord decides whether identity may make another call at now.
// Expired timestamps are pruned first; a denial is not recorded.
func (l *Limiter) CheckAndRecord(identity string, now time.Time) Decision {
	var w *window
	for {
		w = l.window(identity)
		w.mu.Lock()
		if !w.evicted {
			break
		}
		// Swept between lookup and lock; fetch the replacement.
		w.mu.Unlock()
	}

	w.prune(now.Add(-l.cfg.Window))
	d := Denied
	if len(w.events) < l.cfg.Limit {
		w.events = append(w.events, w.monotonic(now))
		d = Allowed
	}
	w.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RateLimitDecisions.WithLabelValues(d.String()).Inc()
	}
	return d
}

// Remaining reports how many calls identity could still make at now.
func (l *Limiter) Remaining(identity string, now time.Time) int {
	l.mu.Lock()
	w, ok := l.windows[normalize(identity)]
	l.mu.Unlock()
	if !ok {
		return l.cfg.Limit
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now.Add(-l.cfg.Window))
	if n := l.cfg.Limit - len(w.events); n > 0 {
		return n
	}
	return 0
}

// Sweep evicts identities whose most recent event is older than IdleTTL and
// returns how many were removed.
func (l *Limiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, w := range l.windows {
		w.mu.Lock()
		idle := len(w.events) == 0 || w.events[len(w.events)-1].Before(cutoff)
		if idle {
			w.evicted = true
		}
		w.mu.Unlock()
		if idle {
			delete(l.windows, id)
			removed++
		}
	}

	if l.metrics != nil {
		l.metrics.RateLimitIdentities.Set(float64(len(l.windows)))
	}
	return removed
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) window(identity string) *window {
	id := normalize(identity)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[id]
	if !ok {
		w = &window{}
		l.windows[id] = w
		if l.metrics != nil {
			l.metrics.RateLimitIdentities.Set(float64(len(l.windows)))
		}
	}
	return w
}

// prune drops timestamps strictly older than cutoff; an event exactly W old
// still counts. Must be called with w.mu held.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.events) && w.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}

// monotonic keeps the log ordered when callers race with slightly older
// clock readings. Must be called with w.mu held.
func (w *window) monotonic(now time.Time) time.Time {
	if n := len(w.events); n > 0 && now.Before(w.events[n-1]) {
		return w.events[n-1]
	}
	return now
}

func normalize(identity string) string {
	if identity == "" {
		return Anonymous
	}
	return identity
}
