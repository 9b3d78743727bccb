// Package ratelimit implements the per-client-IP limiter used by the
// Ingress Middleware Chain: requests-per-minute, requests-per-hour, and a
// concurrent in-flight cap. The per-minute and per-hour bounds are token
// buckets (golang.org/x/time/rate) that refill continuously and allow a
// burst of up to the full RPM/RPH count; they are not sliding-window
// counters.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jowpereira/bradax/pkg/kernel"
	"golang.org/x/time/rate"
)

// Policy bounds a single client.
type Policy struct {
	RPM           int
	RPH           int
	MaxConcurrent int
}

// entry is the per-IP limiter state: one x/time/rate.Limiter per window,
// plus a kernel.TokenBucket repurposed as an admit/release concurrency
// semaphore.
type entry struct {
	perMinute  *rate.Limiter
	perHour    *rate.Limiter
	concurrent *kernel.TokenBucket
	lastSeen   time.Time
}

// Limiter tracks rate-limit state per client IP and evicts idle entries.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*entry
	policy  Policy
}

// New builds a Limiter under policy. It starts a background goroutine
// that evicts entries idle for more than 10 minutes.
func New(policy Policy) *Limiter {
	l := &Limiter{
		clients: make(map[string]*entry),
		policy:  policy,
	}
	go l.evictIdle()
	return l
}

func (l *Limiter) evictIdle() {
	for {
		time.Sleep(time.Minute)
		l.mu.Lock()
		for ip, e := range l.clients {
			if time.Since(e.lastSeen) > 10*time.Minute {
				delete(l.clients, ip)
			}
		}
		l.mu.Unlock()
	}
}

func (l *Limiter) get(ip string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clients[ip]
	if !ok {
		e = &entry{
			perMinute:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxInt(l.policy.RPM, 1))), maxInt(l.policy.RPM, 1)),
			perHour:    rate.NewLimiter(rate.Every(time.Hour/time.Duration(maxInt(l.policy.RPH, 1))), maxInt(l.policy.RPH, 1)),
			concurrent: kernel.NewTokenBucket(0, maxInt(l.policy.MaxConcurrent, 1)),
		}
		l.clients[ip] = e
	}
	e.lastSeen = time.Now()
	return e
}

// Allow admits one request from ip against all three bounds. The
// returned release func must be called exactly once when the request
// finishes, to return the concurrency-cap slot; release is a no-op if
// admission was denied.
func (l *Limiter) Allow(ip string) (admitted bool, release func()) {
	e := l.get(ip)

	if !e.perMinute.Allow() {
		return false, func() {}
	}
	if !e.perHour.Allow() {
		return false, func() {}
	}
	if !e.concurrent.Allow(1) {
		return false, func() {}
	}
	return true, func() { e.concurrent.Release(1) }
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ClientIP extracts the request's client IP, stripping the port and any
// IPv6 brackets.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return strings.Trim(ip, "[]")
}
