// Package ratelimit limits how many jobs one client may start per day.
// Each client identity owns a token bucket that refills over 24 hours, so
// the budget is a sliding window instead of a calendar-day reset.
package ratelimit

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Window is the period over which the per-identity limit applies.
const Window = 24 * time.Hour

// ErrInvalidProxy is returned by ParseTrustedProxies for an entry that is
// neither an IP address nor a CIDR prefix.
var ErrInvalidProxy = errors.New("ratelimit: invalid trusted proxy")

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per identity. It is safe for concurrent
// use. The zero value is not usable; call New.
type Limiter struct {
	mu      sync.Mutex
	perDay  int
	idleTTL time.Duration
	entries map[string]*entry
	trusted []netip.Prefix
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithIdleTTL sets how long an untouched identity is remembered.
// Defaults to Window.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idleTTL = d
		}
	}
}

// WithTrustedProxies lets requests arriving from these networks name the
// client in X-Forwarded-For. Without it the header is ignored.
func WithTrustedProxies(prefixes ...netip.Prefix) Option {
	return func(l *Limiter) {
		l.trusted = append(l.trusted, prefixes...)
	}
}

// ParseTrustedProxies parses CIDR prefixes and bare IP addresses. Blank
// entries are skipped.
func ParseTrustedProxies(specs []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if strings.Contains(spec, "/") {
			p, err := netip.ParsePrefix(spec)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, spec)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, spec)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// New returns a limiter allowing perDay requests per identity within Window.
// perDay <= 0 disables limiting.
func New(perDay int, opts ...Option) *Limiter {
	l := &Limiter{
		perDay:  perDay,
		idleTTL: Window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enabled reports whether the limiter rejects anything at all.
func (l *Limiter) Enabled() bool {
	return l.perDay > 0
}

// Allow consumes one request from identity's budget and reports whether it
// was available.
func (l *Limiter) Allow(identity string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictLocked(now)

	e, ok := l.entries[identity]
	if !ok {
		every := rate.Every(Window / time.Duration(l.perDay))
		e = &entry{limiter: rate.NewLimiter(every, l.perDay)}
		l.entries[identity] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of identities currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// evictLocked forgets identities idle for longer than idleTTL. A bucket idle
// for a full Window has refilled completely, so dropping it changes nothing.
func (l *Limiter) evictLocked(now time.Time) {
	for id, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.entries, id)
		}
	}
}

// Identity returns the host part of r.RemoteAddr, the peer that actually
// opened the connection.
func Identity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Identity returns the client identity of r. When the peer is a trusted
// proxy, X-Forwarded-For is walked from the right and the first hop outside
// the trusted networks is the client. Everything left of it was written by
// the client and is ignored.
func (l *Limiter) Identity(r *http.Request) string {
	client := Identity(r)
	if !l.isTrusted(client) {
		return client
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = addr.Unmap().String()
		if !l.isTrusted(client) {
			break
		}
	}
	return client
}

func (l *Limiter) isTrusted(host string) bool {
	if len(l.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Middleware rejects requests over the limit by calling reject instead of
// next.
func (l *Limiter) Middleware(reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(l.Identity(r)) {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
