package httpkit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	ContextActorKey = "actor"
	HeaderRequestID = "X-Request-ID"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestID propagates or mints a request id and stores it on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs each request once it completes, plus any errors the
// handler attached with c.Error.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		reqLog := log.WithContext(c.Request.Context())
		for _, ginErr := range c.Errors {
			reqLog.Error("request failed", "path", path, "error", ginErr.Err)
		}
		reqLog.HTTPRequest(c.Request.Method, path, c.Writer.Status(), float64(time.Since(start).Milliseconds()), c.ClientIP())
	}
}

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

// IPRateLimiter keeps one token bucket per client IP. Buckets unused for
// longer than the idle TTL are dropped by a sweep that piggybacks on
// incoming requests.
type IPRateLimiter struct {
	limiters  sync.Map
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep atomic.Int64
	log       *logger.Logger
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	i := &IPRateLimiter{rate: r, burst: burst, idleTTL: limiterIdleTTL, now: time.Now, log: log}
	// An evicted bucket must already have refilled, or eviction would hand out extra tokens.
	if r > 0 {
		if refill := time.Duration(float64(burst) / float64(r) * float64(time.Second)); refill > i.idleTTL {
			i.idleTTL = refill
		}
	}
	i.lastSweep.Store(i.now().UnixNano())
	return i
}

func (i *IPRateLimiter) limiter(ip string) *rate.Limiter {
	now := i.now()
	entry, ok := i.limiters.Load(ip)
	if !ok {
		entry, _ = i.limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(i.rate, i.burst)})
	}
	l := entry.(*ipLimiter)
	l.lastSeen.Store(now.UnixNano())
	i.maybeSweep(now)
	return l.limiter
}

func (i *IPRateLimiter) maybeSweep(now time.Time) {
	last := i.lastSweep.Load()
	if now.UnixNano()-last < int64(limiterSweepInterval) {
		return
	}
	if i.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		i.sweep(now)
	}
}

// sweep removes buckets idle for longer than the TTL.
func (i *IPRateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-i.idleTTL).UnixNano()
	i.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiter).lastSeen.Load() < cutoff {
			i.limiters.Delete(key)
		}
		return true
	})
}

// size reports the number of tracked client IPs.
func (i *IPRateLimiter) size() int {
	n := 0
	i.limiters.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !i.limiter(ip).Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Code: "RATE_LIMITED", Retryable: true})
			return
		}
		c.Next()
	}
}

// AuthRequired verifies the HMAC-signed bearer token issued by the identity
// provider and stores the resulting Actor on the gin and request contexts.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		claims, err := parseClaims(rawToken, cfg.GetJWTAccessSecret())
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		subject, _ := claims["sub"].(string)
		actorID, err := uuid.Parse(subject)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		actor := Actor{ID: actorID, Roles: extractRoles(claims["roles"])}
		c.Set(ContextActorKey, actor)
		c.Request = c.Request.WithContext(withActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole allows the request through when the actor holds any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if ok {
			for _, role := range roles {
				if actor.HasRole(role) {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: "FORBIDDEN"})
	}
}

func extractRoles(value any) []string {
	roles := make([]string, 0)
	switch typed := value.(type) {
	case []string:
		roles = append(roles, typed...)
	case []any:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				roles = append(roles, text)
			}
		}
	case string:
		if typed != "" {
			roles = append(roles, typed)
		}
	}
	return roles
}

func extractBearerToken(authHeader string) (string, bool) {
	rawToken, found := strings.CutPrefix(authHeader, "Bearer ")
	rawToken = strings.TrimSpace(rawToken)
	if !found || rawToken == "" {
		return "", false
	}
	return rawToken, true
}

func parseClaims(rawToken, secret string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message, Code: "UNAUTHORIZED"})
}
