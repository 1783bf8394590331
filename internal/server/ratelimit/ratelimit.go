// Package ratelimit throttles the intake endpoints with per-client token buckets.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Rule limits one method and path prefix.
type Rule struct {
	Method string
	Path   string // exact, or a prefix when it ends with "/"
	Limit  int    // requests per Window; <= 0 means unlimited
	Window time.Duration
	Burst  int // defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	Rules   []Rule
	// Idle buckets older than this are dropped by the sweeper.
	IdleAfter       time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig limits the routes that call the oracle. Reads are unlimited.
func DefaultConfig(intakePerMinute int) Config {
	if intakePerMinute <= 0 {
		intakePerMinute = 60
	}
	burst := intakePerMinute / 6
	if burst < 1 {
		burst = 1
	}
	return Config{
		Enabled: true,
		Rules: []Rule{
			{Method: "POST", Path: "/issues", Limit: intakePerMinute, Window: time.Minute, Burst: burst},
			{Method: "POST", Path: "/issues/", Limit: intakePerMinute, Window: time.Minute, Burst: burst},
			{Method: "POST", Path: "/commits", Limit: intakePerMinute * 5, Window: time.Minute, Burst: burst * 5},
		},
		IdleAfter:       time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// Match returns the rule for method and path, or nil. Exact paths win over prefixes.
func Match(method, path string, rules []Rule) *Rule {
	for i := range rules {
		if rules[i].Method == method && rules[i].Path == path {
			return &rules[i]
		}
	}
	for i := range rules {
		r := &rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return nil
}

// Info describes the bucket state after a request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucket struct {
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
}

func (b *bucket) refill(now time.Time) {
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now
}

// resetTime is when the bucket is full again.
func (b *bucket) resetTime(now time.Time) time.Time {
	if b.tokens >= b.capacity {
		return now
	}
	return now.Add(time.Duration((b.capacity - b.tokens) / b.refillRate * float64(time.Second)))
}

// Limiter keeps one bucket per client, method and rule.
type Limiter struct {
	config  Config
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	done    chan struct{}
}

// NewLimiter returns a Limiter. A positive CleanupInterval starts a sweeper
// that runs until Stop.
func NewLimiter(config Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = time.Hour
	}
	l := &Limiter{config: config, now: now, buckets: make(map[string]*bucket)}
	if config.Enabled && config.CleanupInterval > 0 {
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.sweep(config.CleanupInterval)
	}
	return l
}

// Allow consumes a token for clientID on the matching rule.
func (l *Limiter) Allow(clientID, method, path string) Info {
	if !l.config.Enabled {
		return Info{Allowed: true}
	}
	rule := Match(method, path, l.config.Rules)
	if rule == nil || rule.Limit <= 0 {
		return Info{Allowed: true}
	}

	now := l.now()
	key := clientID + " " + method + " " + rule.Path

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		capacity := rule.Burst
		if capacity <= 0 {
			capacity = rule.Limit
		}
		b = &bucket{
			capacity:   float64(capacity),
			refillRate: float64(rule.Limit) / rule.Window.Seconds(),
			tokens:     float64(capacity),
			lastRefill: now,
		}
		l.buckets[key] = b
	}
	b.lastAccess = now
	b.refill(now)

	info := Info{Limit: rule.Limit}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	} else {
		info.RetryAfter = time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
	}
	info.Remaining = int(b.tokens)
	info.ResetTime = b.resetTime(now)
	return info
}

func (l *Limiter) sweep(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}

// Sweep drops buckets idle for longer than IdleAfter.
func (l *Limiter) Sweep() {
	cutoff := l.now().Add(-l.config.IdleAfter)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Size reports the number of live buckets.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the sweeper and waits for it to exit.
func (l *Limiter) Stop() {
	if l.stop == nil {
		return
	}
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
	<-l.done
}
