package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-viewer/internal/config"
	"github.com/fakhrymubarak/weather-viewer/internal/model"
	"golang.org/x/time/rate"
)

// CityParam is the query parameter the forecast endpoints are limited on.
const CityParam = "city"

// noParam is the bucket used when the request carries no parameter value.
const noParam = "__none__"

// visitor holds the limiter and last seen time for one bucket.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limits is a per-minute rate and burst for one limiter tier.
type Limits struct {
	PerMinute float64
	Burst     int
}

func (l Limits) limit() rate.Limit {
	return rate.Limit(l.PerMinute / 60.0)
}

// RateLimiter enforces a per-IP limit and a per-IP-per-parameter limit.
type RateLimiter struct {
	paramKey string
	global   Limits
	param    Limits
	idle     time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor            // ip
	params   map[string]map[string]*visitor // ip -> param value
	now      func() time.Time
}

// NewRateLimiter builds a limiter keyed on paramKey with limits read from config.
func NewRateLimiter(paramKey string) *RateLimiter {
	globalRate, globalBurst := config.GetGlobalRateLimiterConfig()
	paramRate, paramBurst := config.GetParamRateLimiterConfig()
	return NewRateLimiterWithLimits(paramKey,
		Limits{PerMinute: globalRate, Burst: globalBurst},
		Limits{PerMinute: paramRate, Burst: paramBurst},
		config.GetRateLimiterCleanupTimeout())
}

// NewRateLimiterWithLimits builds a limiter with explicit limits.
func NewRateLimiterWithLimits(paramKey string, global, param Limits, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		paramKey: paramKey,
		global:   global,
		param:    param,
		idle:     idle,
		visitors: make(map[string]*visitor),
		params:   make(map[string]map[string]*visitor),
		now:      time.Now,
	}
}

func (rl *RateLimiter) globalLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.global.limit(), rl.global.Burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) paramLimiter(ip, value string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	byValue, ok := rl.params[ip]
	if !ok {
		byValue = make(map[string]*visitor)
		rl.params[ip] = byValue
	}
	v, ok := byValue[value]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.param.limit(), rl.param.Burst)}
		byValue[value] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Cleanup drops buckets idle for longer than the configured timeout.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
	for ip, byValue := range rl.params {
		for value, v := range byValue {
			if v.lastSeen.Before(cutoff) {
				delete(byValue, value)
			}
		}
		if len(byValue) == 0 {
			delete(rl.params, ip)
		}
	}
}

// StartCleanup runs Cleanup every minute until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Reset clears every bucket.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.visitors = make(map[string]*visitor)
	rl.params = make(map[string]map[string]*visitor)
}

// Len reports the number of tracked IPs and IP/parameter pairs.
func (rl *RateLimiter) Len() (ips, pairs int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, byValue := range rl.params {
		pairs += len(byValue)
	}
	return len(rl.visitors), pairs
}

// clientIP extracts the caller address, preferring the first X-Forwarded-For entry.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// paramValue normalizes the limited parameter so "Boston" and " boston" share a bucket.
func (rl *RateLimiter) paramValue(r *http.Request) string {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(rl.paramKey)))
	if value == "" {
		return noParam
	}
	return value
}

func writeTooMany(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.Response{Error: &errMsg, Message: message})
}

// Handler wraps next with both limiter tiers. Rejected requests get a 429
// with a JSON error envelope.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.globalLimiter(ip).Allow() {
			writeTooMany(w,
				fmt.Sprintf("Rate limit exceeded: max %g requests per minute per user/IP", rl.global.PerMinute),
				"Too Many Requests (global limit)")
			return
		}
		if !rl.paramLimiter(ip, rl.paramValue(r)).Allow() {
			writeTooMany(w,
				fmt.Sprintf("Rate limit exceeded: max %g requests per minute per %s per user/IP", rl.param.PerMinute, rl.paramKey),
				"Too Many Requests (per-param limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}
