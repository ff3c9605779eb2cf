package v1

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const contextClaimsKey = "auth_claims"

// AuthRequired validates the Bearer token and stores the resulting claims in
// the request context. Requests without a valid access token never reach a
// handler.
func AuthRequired(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "authorization header is required", codeInvalidAuthToken)
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, "authorization header must be a Bearer token", codeInvalidAuthToken)
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, err.Error(), codeInvalidAuthToken)
			c.Abort()
			return
		}

		c.Set(contextClaimsKey, claims)
		c.Next()
	}
}

// RequireRoles rejects authenticated requests whose role is not in the allow
// list. Must run after AuthRequired.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil {
			respondError(c, http.StatusUnauthorized, "authentication required", codeInvalidAuthToken)
			c.Abort()
			return
		}
		if _, ok := allowed[string(claims.Role)]; !ok {
			respondError(c, http.StatusForbidden, "access denied", codeForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Metrics records request counts, latency, and in-flight gauge. Uses the
// route template rather than the raw path to bound label cardinality.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		collector.InFlightGauge.Inc()
		start := time.Now()

		c.Next()

		collector.InFlightGauge.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		labels := []string{c.Request.Method, path, statusLabel(c.Writer.Status())}
		collector.RequestsTotal.WithLabelValues(labels...).Inc()
		collector.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	}
}

func statusLabel(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// RateLimiter applies a per-client token bucket keyed by IP. Stale client
// buckets are evicted on a background interval so the map does not grow
// without bound; Stop ends the evictor on shutdown.
type RateLimiter struct {
	cfg     config.RateLimitConfig
	mu      sync.Mutex
	clients map[string]*rateLimiterClient
	stop    chan struct{}
}

type rateLimiterClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	l := &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*rateLimiterClient),
		stop:    make(chan struct{}),
	}
	if cfg.RequestsPerSecond > 0 {
		go l.evict()
	}
	return l
}

func (l *RateLimiter) evict() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for ip, cl := range l.clients {
				if time.Since(cl.lastSeen) > 3*time.Minute {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop ends the eviction goroutine. Call once during shutdown.
func (l *RateLimiter) Stop() {
	close(l.stop)
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	if l.cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()

		l.mu.Lock()
		cl, ok := l.clients[ip]
		if !ok {
			cl = &rateLimiterClient{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.BurstSize)}
			l.clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		l.mu.Unlock()

		if !cl.limiter.Allow() {
			respondError(c, http.StatusTooManyRequests, "rate limit exceeded", codeValidation)
			c.Abort()
			return
		}
		c.Next()
	}
}
